package auth

import (
	"errors"
	"fmt"
	"time"

	"placegrad/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// StepOTPVerification marks a token that proves the password was checked
// and an OTP is pending.
const StepOTPVerification = "otp_verification"

var errMissingSecret = errors.New("token signing secret is empty")

// StepClaims is the payload of a step token.
type StepClaims struct {
	UserID    string `json:"userId"`
	Step      string `json:"step"`
	Remember  bool   `json:"remember"`
	Timestamp int64  `json:"timestamp"`
	jwt.RegisteredClaims
}

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	LoginTime int64       `json:"loginTime"`
	Step      string      `json:"step,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies stateless HS256 tokens. Nothing is stored
// server side, so a token stays valid until it expires.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer returns an issuer for the given signing secret.
func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errMissingSecret
	}
	return &TokenIssuer{secret: secret}, nil
}

// IssueStep signs a 15 minute token for the OTP step.
func (t *TokenIssuer) IssueStep(userID string, remember bool, now time.Time) (string, error) {
	claims := StepClaims{
		UserID:    userID,
		Step:      StepOTPVerification,
		Remember:  remember,
		Timestamp: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StepTokenTTL)),
		},
	}
	return t.sign(claims)
}

// IssueSession signs a session token and returns it with its lifetime.
func (t *TokenIssuer) IssueSession(u *models.User, remember bool, now time.Time) (string, time.Duration, error) {
	ttl := SessionTTL
	if remember {
		ttl = RememberSessionTTL
	}
	claims := SessionClaims{
		UserID:    u.ID.Hex(),
		Username:  u.Username,
		Role:      u.Role,
		LoginTime: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := t.sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, ttl, nil
}

// ParseStep verifies signature and expiry of a step token. The step marker
// is left for the caller to check.
func (t *TokenIssuer) ParseStep(token string, now time.Time) (*StepClaims, error) {
	var claims StepClaims
	if err := t.parse(token, &claims, now); err != nil {
		return nil, err
	}
	return &claims, nil
}

// ParseSession verifies a session token. Step tokens are rejected.
func (t *TokenIssuer) ParseSession(token string, now time.Time) (*SessionClaims, error) {
	var claims SessionClaims
	if err := t.parse(token, &claims, now); err != nil {
		return nil, err
	}
	if claims.Step != "" {
		return nil, fmt.Errorf("step token used as session token")
	}
	return &claims, nil
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, now time.Time) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	return err
}
