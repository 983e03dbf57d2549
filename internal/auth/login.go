package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"placegrad/internal/models"
	"placegrad/internal/util"
)

// LoginResult is returned once the password is verified and an OTP is on
// its way.
type LoginResult struct {
	TempToken   string `json:"tempToken"`
	Email       string `json:"email"`
	RequiresOTP bool   `json:"requiresOTP"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Login checks credentials and moves the caller to the OTP step. It never
// yields a session token directly.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if verr := validateLogin(in); verr != nil {
		return nil, verr
	}
	identifier := util.SanitizeInput(in.Username)

	user, err := s.store.FindByLogin(ctx, identifier)
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, errLoginDeactivated
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, lockedError(*user.LockUntil, now)
	}

	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		user.LoginAttempts++
		if user.LoginAttempts >= models.MaxLoginAttempts {
			user.LockUntil = timePtr(now.Add(LockDuration))
			log.Printf("[AUTH] Account %s locked after %d failed attempts", user.ID.Hex(), user.LoginAttempts)
		}
		if err := s.save(ctx, user, models.FieldsLock); err != nil {
			return nil, err
		}
		return nil, errInvalidCredentials
	}

	if user.LoginAttempts != 0 || user.LockUntil != nil {
		user.ClearLock()
		if err := s.save(ctx, user, models.FieldsLock); err != nil {
			return nil, err
		}
	}

	// The code is stored only after the mail went out, so a failed send
	// never leaves an undelivered but valid OTP on the account.
	code, err := s.otps.Generate(now)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendOTP(ctx, user.Email, user.DisplayName(), code); err != nil {
		log.Printf("[AUTH] Failed to send OTP email for user %s: %v", user.ID.Hex(), err)
		return nil, errEmailSend
	}
	applyOTP(user, code, now)
	if err := s.save(ctx, user, models.FieldsOTP); err != nil {
		return nil, err
	}

	tempToken, err := s.tokens.IssueStep(user.ID.Hex(), in.Remember, now)
	if err != nil {
		return nil, err
	}

	log.Printf("[AUTH] Credentials verified for user %s, OTP sent", user.ID.Hex())
	return &LoginResult{
		TempToken:   tempToken,
		Email:       util.MaskEmail(user.Email),
		RequiresOTP: true,
		ExpiresIn:   int(StepTokenTTL / time.Second),
	}, nil
}

func lockedError(lockUntil, now time.Time) *Error {
	minutes := int(math.Ceil(float64(lockUntil.Sub(now)) / float64(time.Minute)))
	return newError(http.StatusTooManyRequests, CodeAccountLocked,
		fmt.Sprintf("Account temporarily locked. Try again in %d minutes.", minutes))
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrUserNotFound)
}
