package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"placegrad/internal/models"
	"placegrad/internal/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ForgotPassword starts a reset for email. Apart from input-shape errors it
// reports nothing about the account: unknown, inactive and throttled
// addresses all return nil, and a failed reset email is only logged.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validationError(CodeMissingEmail, "Email is required")
	}
	if !util.ValidateEmail(email) {
		return validationError(CodeInvalidEmailFormat, "Invalid email format")
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	now := s.now()
	if user.ResetRequestedAt != nil && now.Sub(*user.ResetRequestedAt) < ResetRequestBackoff {
		return nil
	}

	token, hash, err := newResetToken()
	if err != nil {
		return err
	}
	user.ResetPasswordToken = hash
	user.ResetPasswordExpires = timePtr(now.Add(ResetTokenTTL))
	user.ResetRequestedAt = timePtr(now)
	if err := s.save(ctx, user, models.FieldsReset); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.DisplayName(), token); err != nil {
		log.Printf("[AUTH] Failed to send password reset email for user %s: %v", user.ID.Hex(), err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return validationError(CodeMissingFields, "Token and new password are required")
	}
	if verr := checkResetPassword(newPassword); verr != nil {
		return verr
	}

	now := s.now()
	user, err := s.store.FindByResetToken(ctx, hashResetToken(token), now)
	if err != nil {
		if isNotFound(err) {
			return errInvalidResetToken
		}
		return err
	}
	if !user.IsActive {
		return errDeactivated
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ClearReset()
	user.ClearLock()
	user.PasswordChangedAt = timePtr(now)
	if err := s.save(ctx, user, models.FieldsPassword, models.FieldsReset, models.FieldsLock); err != nil {
		return err
	}
	log.Printf("[AUTH] Password for user %s reset successfully.", user.ID.Hex())
	return nil
}

// ChangePassword replaces the password of a signed-in user.
func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, newPassword string) error {
	if current == "" || newPassword == "" {
		return validationError(CodeMissingFields, "Current password and new password are required")
	}
	if utf8.RuneCountInString(newPassword) < 8 {
		return validationError(CodeWeakPassword, "New password must be at least 8 characters long")
	}
	if len(newPassword) > MaxPasswordBytes {
		return validationError(CodeWeakPassword, passwordTooLong)
	}
	if current == newPassword {
		return validationError(CodeSamePassword, "New password must be different from current password")
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return errUserNotFound
		}
		return err
	}
	if !s.hasher.Compare(user.PasswordHash, current) {
		return newError(http.StatusUnauthorized, CodeInvalidCurrentPassword, "Current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = timePtr(s.now())
	return s.save(ctx, user, models.FieldsPassword)
}

// newResetToken returns the plaintext token to email and the hash to store.
func newResetToken() (string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(b)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
