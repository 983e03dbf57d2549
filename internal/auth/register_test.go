package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"placegrad/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegister_PublicSignupIsStudent(t *testing.T) {
	f := newFixture(t)
	in := RegisterInput{
		Username: "bob_1",
		Email:    " Bob@Example.com ",
		Password: "hunter22",
		Role:     "admin",
		Profile:  models.Profile{FirstName: "Bob", Semester: 3},
	}

	pub, err := f.svc.Register(context.Background(), in, false)
	require.NoError(t, err)

	assert.Equal(t, models.RoleStudent, pub.Role)
	assert.Equal(t, "bob@example.com", pub.Email)
	assert.True(t, pub.IsActive)
	assert.False(t, pub.IsEmailVerified)
	assert.Equal(t, testStart, pub.CreatedAt)

	user, err := f.store.FindByLogin(context.Background(), "bob_1")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.True(t, f.hasher.Compare(user.PasswordHash, "hunter22"))
	assert.Equal(t, 3, user.Profile.Semester)
}

func TestRegister_AdminChoosesRole(t *testing.T) {
	f := newFixture(t)
	pub, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "prof_x",
		Email:    "prof@example.com",
		Password: "lecture9",
		Role:     "faculty",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, pub.Role)
	assert.True(t, pub.IsEmailVerified)

	pub, err = f.svc.Register(context.Background(), RegisterInput{
		Username: "someone",
		Email:    "someone@example.com",
		Password: "lecture9",
		Role:     "superuser",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, pub.Role)
}

func TestRegister_Duplicates(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice@example.com", "secret123")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "secret123"}, false)
	ae := requireCode(t, err, CodeUserExists)
	requireStatus(t, ae, http.StatusBadRequest)
	assert.Equal(t, "Username already exists", ae.Message)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "secret123"}, false)
	ae = requireCode(t, err, CodeUserExists)
	assert.Equal(t, "Email already exists", ae.Message)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing username", RegisterInput{Email: "a@b.io", Password: "secret123"}, "Username is required"},
		{"short username", RegisterInput{Username: "ab", Email: "a@b.io", Password: "secret123"}, "Username must be at least 3 characters long"},
		{"long username", RegisterInput{Username: "abcdefghijklmnopqrstu", Email: "a@b.io", Password: "secret123"}, "Username must be less than 20 characters"},
		{"bad username", RegisterInput{Username: "bob smith", Email: "a@b.io", Password: "secret123"}, "Username can only contain letters, numbers, and underscores"},
		{"bad email", RegisterInput{Username: "bob", Email: "bob@", Password: "secret123"}, "Please enter a valid email address"},
		{"short password", RegisterInput{Username: "bob", Email: "a@b.io", Password: "a1"}, "Password must be at least 6 characters long"},
		{"no digit", RegisterInput{Username: "bob", Email: "a@b.io", Password: "secretpw"}, "Password must contain at least one letter and one number"},
		{"only non-ascii letters", RegisterInput{Username: "bob", Email: "a@b.io", Password: "ééééé1"}, "Password must contain at least one letter and one number"},
		{"long password", RegisterInput{Username: "bob", Email: "a@b.io", Password: strings.Repeat("a", 90) + "1"}, "Password must be at most 72 bytes long"},
		{"long multibyte password", RegisterInput{Username: "bob", Email: "a@b.io", Password: strings.Repeat("é", 40) + "a1"}, "Password must be at most 72 bytes long"},
		{"bad semester", RegisterInput{Username: "bob", Email: "a@b.io", Password: "secret123", Profile: models.Profile{Semester: 9}}, "Invalid profile data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in, false)
			ae := requireCode(t, err, CodeValidation)
			assert.Equal(t, tt.msg, ae.Message)
		})
	}
	assert.Zero(t, f.store.Calls())
}

func TestRegister_LongestPassword(t *testing.T) {
	f := newFixture(t)
	pw := strings.Repeat("a", MaxPasswordBytes-1) + "1"

	user, err := f.svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: pw}, false)
	require.NoError(t, err)

	id, err := primitive.ObjectIDFromHex(user.ID)
	require.NoError(t, err)
	assert.True(t, f.hasher.Compare(f.store.Get(id).PasswordHash, pw))
}

func TestRegister_CreateRace(t *testing.T) {
	f := newFixture(t)
	f.store.SaveErr = models.ErrDuplicateUser

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret123"}, false)
	requireCode(t, err, CodeUserExists)

	f.store.SaveErr = errors.New("write concern")
	_, err = f.svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret123"}, false)
	assert.Empty(t, CodeOf(err))
}
