package auth

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"placegrad/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// OTPGenerator produces six-digit one-time codes.
type OTPGenerator interface {
	Generate(now time.Time) (string, error)
}

// HOTPGenerator derives each code from a fresh random secret, so codes are
// independent of each other and of the user.
type HOTPGenerator struct{}

func (HOTPGenerator) Generate(now time.Time) (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("otp secret: %w", err)
	}
	code, err := hotp.GenerateCodeCustom(
		base32.StdEncoding.EncodeToString(secret),
		uint64(now.UnixNano()),
		hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1},
	)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return code, nil
}

// applyOTP stamps a freshly generated code on u.
func applyOTP(u *models.User, code string, now time.Time) {
	u.OTP = code
	u.OTPExpires = timePtr(now.Add(OTPTTL))
	u.OTPGeneratedAt = timePtr(now)
	u.OTPAttempts = 0
}
