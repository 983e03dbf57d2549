package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"placegrad/internal/models"
	"placegrad/internal/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionResult is returned when the OTP step completes.
type SessionResult struct {
	User      models.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresIn int               `json:"expiresIn"`
}

// VerifyOTP completes sign-in with the emailed code. The code shape is
// checked before the token or the store are touched.
func (s *Service) VerifyOTP(ctx context.Context, code, tempToken string) (*SessionResult, error) {
	if code == "" || tempToken == "" {
		return nil, validationError(CodeMissingFields, "OTP and token are required")
	}
	if !otpPattern.MatchString(code) {
		return nil, errInvalidOTPFormat
	}

	now := s.now()
	claims, user, err := s.pendingUser(ctx, tempToken, now)
	if err != nil {
		return nil, err
	}

	if user.OTP == "" || subtle.ConstantTimeCompare([]byte(user.OTP), []byte(code)) != 1 {
		user.OTPAttempts++
		if user.OTPAttempts >= MaxOTPAttempts {
			user.ClearOTP()
			if err := s.save(ctx, user, models.FieldsOTP); err != nil {
				return nil, err
			}
			return nil, errOTPExceeded
		}
		if err := s.save(ctx, user, models.FieldsOTP); err != nil {
			return nil, err
		}
		return nil, newError(http.StatusUnauthorized, CodeInvalidOTP,
			fmt.Sprintf("Invalid OTP. %d attempts remaining.", MaxOTPAttempts-user.OTPAttempts))
	}

	if user.OTPExpires == nil || user.OTPExpires.Before(now) {
		user.ClearOTP()
		if err := s.save(ctx, user, models.FieldsOTP); err != nil {
			return nil, err
		}
		return nil, errOTPExpired
	}

	user.ClearOTP()
	user.ClearLock()
	user.IsEmailVerified = true
	user.LastLogin = timePtr(now)
	if err := s.save(ctx, user, models.FieldsOTP, models.FieldsLock, models.FieldsSignIn); err != nil {
		return nil, err
	}

	token, ttl, err := s.tokens.IssueSession(user, claims.Remember, now)
	if err != nil {
		return nil, err
	}

	log.Printf("[AUTH] Login successful for user %s", user.ID.Hex())
	return &SessionResult{
		User:      user.Public(),
		Token:     token,
		ExpiresIn: int(ttl / time.Second),
	}, nil
}

// ResendOTP issues a fresh code for a pending login, at most once a minute.
// It returns the masked address the code was sent to.
func (s *Service) ResendOTP(ctx context.Context, tempToken string) (string, error) {
	if tempToken == "" {
		return "", validationError(CodeMissingToken, "Token is required")
	}

	now := s.now()
	_, user, err := s.pendingUser(ctx, tempToken, now)
	if err != nil {
		return "", err
	}

	if user.OTPGeneratedAt != nil {
		if elapsed := now.Sub(*user.OTPGeneratedAt); elapsed < OTPResendInterval {
			wait := int(math.Ceil(float64(OTPResendInterval-elapsed) / float64(time.Second)))
			return "", newError(http.StatusTooManyRequests, CodeOTPRateLimited,
				fmt.Sprintf("Please wait %d seconds before requesting a new OTP.", wait))
		}
	}

	code, err := s.otps.Generate(now)
	if err != nil {
		return "", err
	}
	if err := s.mailer.SendOTP(ctx, user.Email, user.DisplayName(), code); err != nil {
		log.Printf("[AUTH] Failed to resend OTP email for user %s: %v", user.ID.Hex(), err)
		return "", errEmailSend
	}
	applyOTP(user, code, now)
	if err := s.save(ctx, user, models.FieldsOTP); err != nil {
		return "", err
	}
	return util.MaskEmail(user.Email), nil
}

// pendingUser resolves a step token to the active user it was issued for.
func (s *Service) pendingUser(ctx context.Context, tempToken string, now time.Time) (*StepClaims, *models.User, error) {
	claims, err := s.tokens.ParseStep(tempToken, now)
	if err != nil {
		return nil, nil, errInvalidToken
	}
	if claims.Step != StepOTPVerification {
		return nil, nil, errInvalidTokenType
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, errInvalidToken
	}
	user, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return claims, user, nil
}
