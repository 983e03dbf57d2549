package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"placegrad/internal/auth/authtest"
	"placegrad/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var testStart = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendOTP(ctx context.Context, to, name, code string) error {
	args := m.Called(ctx, to, name, code)
	return args.Error(0)
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	args := m.Called(ctx, to, name, token)
	return args.Error(0)
}

// mockStore fails the test on any call that was not expected.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	args := m.Called(ctx, identifier)
	return nil, args.Error(1)
}

func (m *mockStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	return nil, args.Error(1)
}

func (m *mockStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	return nil, args.Error(1)
}

func (m *mockStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	return nil, args.Error(1)
}

func (m *mockStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, tokenHash, now)
	return nil, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockStore) Save(ctx context.Context, u *models.User, fields ...string) error {
	return m.Called(ctx, u, fields).Error(0)
}

type fixture struct {
	svc    *Service
	store  *authtest.MemStore
	mailer *mockMailer
	clock  *authtest.Clock
	tokens *TokenIssuer
	hasher Hasher
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()
	if len(codes) == 0 {
		codes = []string{"123456"}
	}
	tokens, err := NewTokenIssuer([]byte("test-secret"))
	require.NoError(t, err)

	f := &fixture{
		store:  authtest.NewMemStore(),
		mailer: &mockMailer{},
		clock:  authtest.NewClock(testStart),
		tokens: tokens,
		hasher: NewBcryptHasher(bcrypt.MinCost),
	}
	f.mailer.Test(t)
	f.svc = NewService(f.store, f.mailer, tokens,
		WithClock(f.clock.Now),
		WithHasher(f.hasher),
		WithOTPGenerator(authtest.NewSequenceOTP(codes...)),
	)
	return f
}

func (f *fixture) seedUser(t *testing.T, username, email, password string) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return f.store.Put(&models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		Profile:      models.Profile{FirstName: "Alice"},
		IsActive:     true,
		CreatedAt:    testStart,
	})
}

func (f *fixture) expectOTPMail(email, code string) {
	f.mailer.On("SendOTP", mock.Anything, email, mock.Anything, code).Return(nil)
}

// loginToStep runs a successful login and returns its step token.
func (f *fixture) loginToStep(t *testing.T, username, password string, remember bool) string {
	t.Helper()
	res, err := f.svc.Login(context.Background(), LoginInput{Username: username, Password: password, Remember: remember})
	require.NoError(t, err)
	return res.TempToken
}

func requireCode(t *testing.T, err error, code string) *Error {
	t.Helper()
	require.Error(t, err)
	var ae *Error
	require.True(t, errors.As(err, &ae), "expected *auth.Error, got %T: %v", err, err)
	require.Equal(t, code, ae.Code, ae.Message)
	return ae
}

func requireStatus(t *testing.T, ae *Error, status int) {
	t.Helper()
	require.Equal(t, status, ae.Status, http.StatusText(status))
}
