// Package auth implements the PlaceGrad sign-in flow: password check with
// account lockout, an emailed one-time code, and signed session tokens, plus
// the forgot/reset password flow.
//
// Failed-login counters are not decayed by time. Once a lock window passes
// the account may try again, but the counter stays at or above the threshold
// until a full login or a password reset clears it, so a further wrong
// password locks the account again straight away.
package auth

import (
	"context"
	"time"

	"placegrad/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timing and threshold policy of the flow.
const (
	LockDuration        = 30 * time.Minute
	OTPTTL              = 10 * time.Minute
	MaxOTPAttempts      = 3
	OTPResendInterval   = 60 * time.Second
	StepTokenTTL        = 15 * time.Minute
	SessionTTL          = 24 * time.Hour
	RememberSessionTTL  = 30 * 24 * time.Hour
	ResetTokenTTL       = 30 * time.Minute
	ResetRequestBackoff = 5 * time.Minute
)

// Store is the credential store the flow reads and writes.
type Store interface {
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	// Save persists the named fields of u; see models.Fields.
	Save(ctx context.Context, u *models.User, fields ...string) error
}

// Mailer delivers one-time codes and reset links.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, code string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// Service runs the authentication state machine.
type Service struct {
	store  Store
	mailer Mailer
	hasher Hasher
	otps   OTPGenerator
	tokens *TokenIssuer
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHasher replaces the default bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithOTPGenerator replaces the default code generator.
func WithOTPGenerator(g OTPGenerator) Option {
	return func(s *Service) { s.otps = g }
}

// NewService wires the flow.
func NewService(store Store, mailer Mailer, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		mailer: mailer,
		hasher: NewBcryptHasher(DefaultBcryptCost),
		otps:   HOTPGenerator{},
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) loadActive(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errDeactivated
	}
	return user, nil
}

func (s *Service) save(ctx context.Context, u *models.User, fields ...[]string) error {
	u.UpdatedAt = s.now()
	return s.store.Save(ctx, u, models.Fields(fields...)...)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
