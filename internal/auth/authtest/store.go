// Package authtest provides in-memory collaborators for exercising the auth
// flow without MongoDB or a mail provider.
package authtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"placegrad/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is a concurrency-safe in-memory user store. Reads return copies,
// so callers only change stored state through Save.
type MemStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
	calls int

	// SaveErr, when set, is returned by Save and Create.
	SaveErr error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{users: make(map[primitive.ObjectID]*models.User)}
}

// Calls reports how many store operations have run.
func (m *MemStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Get returns a copy of the stored user, or nil.
func (m *MemStore) Get(id primitive.ObjectID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c
	}
	return nil
}

// Put stores u as-is, assigning an id when missing.
func (m *MemStore) Put(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	c := *u
	m.users[u.ID] = &c
	return u
}

// Delete removes a user.
func (m *MemStore) Delete(id primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *MemStore) FindByLogin(_ context.Context, identifier string) (*models.User, error) {
	lower := strings.ToLower(identifier)
	return m.find(func(u *models.User) bool {
		return u.Username == identifier || u.Email == lower
	})
}

func (m *MemStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *MemStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	lower := strings.ToLower(email)
	return m.find(func(u *models.User) bool { return u.Email == lower })
}

func (m *MemStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	lower := strings.ToLower(email)
	return m.find(func(u *models.User) bool {
		return u.Username == username || u.Email == lower
	})
}

func (m *MemStore) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return u.ResetPasswordToken != "" && u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now)
	})
}

func (m *MemStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return models.ErrDuplicateUser
		}
	}
	u.ID = primitive.NewObjectID()
	c := *u
	m.users[u.ID] = &c
	return nil
}

// Save copies the named fields of u onto the stored user, like a $set/$unset
// update would.
func (m *MemStore) Save(_ context.Context, u *models.User, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	stored, ok := m.users[u.ID]
	if !ok {
		return models.ErrUserNotFound
	}
	if len(fields) == 0 {
		return fmt.Errorf("save user: no fields named")
	}
	c := *stored
	for _, f := range fields {
		if err := copyField(&c, u, f); err != nil {
			return err
		}
	}
	c.UpdatedAt = u.UpdatedAt
	m.users[u.ID] = &c
	return nil
}

func copyField(dst, src *models.User, field string) error {
	switch field {
	case "loginAttempts":
		dst.LoginAttempts = src.LoginAttempts
	case "lockUntil":
		dst.LockUntil = src.LockUntil
	case "otp":
		dst.OTP = src.OTP
	case "otpExpires":
		dst.OTPExpires = src.OTPExpires
	case "otpAttempts":
		dst.OTPAttempts = src.OTPAttempts
	case "otpGeneratedAt":
		dst.OTPGeneratedAt = src.OTPGeneratedAt
	case "resetPasswordToken":
		dst.ResetPasswordToken = src.ResetPasswordToken
	case "resetPasswordExpires":
		dst.ResetPasswordExpires = src.ResetPasswordExpires
	case "resetRequestedAt":
		dst.ResetRequestedAt = src.ResetRequestedAt
	case "password":
		dst.PasswordHash = src.PasswordHash
	case "passwordChangedAt":
		dst.PasswordChangedAt = src.PasswordChangedAt
	case "isEmailVerified":
		dst.IsEmailVerified = src.IsEmailVerified
	case "lastLogin":
		dst.LastLogin = src.LastLogin
	default:
		return fmt.Errorf("save user: unknown field %q", field)
	}
	return nil
}

func (m *MemStore) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, u := range m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// Clock is a manually advanced time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// SequenceOTP hands out the given codes in order, repeating the last one.
type SequenceOTP struct {
	mu    sync.Mutex
	codes []string
	next  int
}

// NewSequenceOTP returns a generator over codes.
func NewSequenceOTP(codes ...string) *SequenceOTP {
	return &SequenceOTP{codes: codes}
}

func (s *SequenceOTP) Generate(time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes[s.next]
	if s.next < len(s.codes)-1 {
		s.next++
	}
	return code, nil
}
