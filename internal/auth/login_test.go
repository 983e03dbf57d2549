package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLogin_ValidCredentialsRequireOTP(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", "alice@example.com", "secret123")
	f.expectOTPMail("alice@example.com", "123456")

	res, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	assert.True(t, res.RequiresOTP)
	assert.Equal(t, "al***@example.com", res.Email)
	assert.Equal(t, 15*60, res.ExpiresIn)

	claims, err := f.tokens.ParseStep(res.TempToken, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, StepOTPVerification, claims.Step)
	assert.False(t, claims.Remember)

	_, err = f.tokens.ParseSession(res.TempToken, f.clock.Now())
	assert.Error(t, err, "a step token must not authenticate")

	stored := f.store.Get(user.ID)
	assert.Equal(t, "123456", stored.OTP)
	require.NotNil(t, stored.OTPExpires)
	assert.Equal(t, testStart.Add(10*time.Minute), *stored.OTPExpires)
	require.NotNil(t, stored.OTPGeneratedAt)
	assert.Equal(t, testStart, *stored.OTPGeneratedAt)
	assert.Zero(t, stored.OTPAttempts)
	f.mailer.AssertExpectations(t)
}

func TestLogin_ByEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice@example.com", "secret123")
	f.expectOTPMail("alice@example.com", "123456")

	res, err := f.svc.Login(context.Background(), LoginInput{Username: "Alice@Example.com", Password: "secret123", Remember: true})
	require.NoError(t, err)

	claims, err := f.tokens.ParseStep(res.TempToken, f.clock.Now())
	require.NoError(t, err)
	assert.True(t, claims.Remember)
}

func TestLogin_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice@example.com", "secret123")
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, LoginInput{Username: "mallory", Password: "whatever1"})
	_, errWrong := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "whatever1"})

	unknown := requireCode(t, errUnknown, CodeInvalidCredentials)
	wrong := requireCode(t, errWrong, CodeInvalidCredentials)
	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, http.StatusUnauthorized, unknown.Status)
	assert.Equal(t, unknown.Status, wrong.Status)
}

func TestLogin_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		in   LoginInput
	}{
		{"empty username", LoginInput{Username: "  ", Password: "secret123"}},
		{"empty password", LoginInput{Username: "alice"}},
		{"short username", LoginInput{Username: "al", Password: "secret123"}},
		{"bad characters", LoginInput{Username: "al-ice", Password: "secret123"}},
		{"malformed email", LoginInput{Username: "alice@", Password: "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tt.in)
			ae := requireCode(t, err, CodeValidation)
			requireStatus(t, ae, http.StatusBadRequest)
		})
	}
	assert.Zero(t, f.store.Calls())
}

func TestLogin_Deactivated(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "alice", "alice@example.com", "secret123")
	u.IsActive = false
	f.store.Put(u)

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret123"})
	requireCode(t, err, CodeAccountDeactivated)
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", "alice@example.com", "secret123")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "wrongpass"})
		requireCode(t, err, CodeInvalidCredentials)
		assert.Equal(t, i, f.store.Get(user.ID).LoginAttempts)
	}

	stored := f.store.Get(user.ID)
	require.NotNil(t, stored.LockUntil)
	assert.Equal(t, testStart.Add(30*time.Minute), *stored.LockUntil)

	// Sixth attempt is refused even with the right password.
	_, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "secret123"})
	ae := requireCode(t, err, CodeAccountLocked)
	requireStatus(t, ae, http.StatusTooManyRequests)
	assert.Contains(t, ae.Message, "Try again in 30 minutes.")

	f.clock.Advance(10*time.Minute + 30*time.Second)
	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "wrongpass"})
	ae = requireCode(t, err, CodeAccountLocked)
	assert.Contains(t, ae.Message, "Try again in 20 minutes.")
	assert.Equal(t, 5, f.store.Get(user.ID).LoginAttempts, "locked attempts are not counted")

	f.clock.Advance(20 * time.Minute)
	f.expectOTPMail("alice@example.com", "123456")
	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	stored = f.store.Get(user.ID)
	assert.Zero(t, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)
}

func TestLogin_CounterIsNotDecayedByTime(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", "alice@example.com", "secret123")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "wrongpass"})
	}
	f.clock.Advance(31 * time.Minute)

	_, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "wrongpass"})
	requireCode(t, err, CodeInvalidCredentials)

	stored := f.store.Get(user.ID)
	assert.Equal(t, 6, stored.LoginAttempts)
	require.NotNil(t, stored.LockUntil)
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), *stored.LockUntil)

	_, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "secret123"})
	requireCode(t, err, CodeAccountLocked)
}

func TestLogin_EmailFailureLeavesNoOTP(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", "alice@example.com", "secret123")
	user.LoginAttempts = 2
	f.store.Put(user)
	f.mailer.On("SendOTP", mock.Anything, "alice@example.com", "Alice", "123456").Return(errors.New("smtp down"))

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secret123"})
	ae := requireCode(t, err, CodeEmailSend)
	requireStatus(t, ae, http.StatusInternalServerError)

	stored := f.store.Get(user.ID)
	assert.Empty(t, stored.OTP)
	assert.Nil(t, stored.OTPExpires)
	assert.Zero(t, stored.LoginAttempts, "password was right, so the counter is still cleared")
}

func TestLogin_StoreErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice@example.com", "secret123")
	boom := errors.New("connection reset")
	f.store.SaveErr = boom

	_, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrongpass"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, CodeOf(err))
}
