package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"placegrad/internal/models"
	"placegrad/internal/util"
)

// Register creates an account. Self-service sign-ups are always students;
// only an admin may pick another role, and admin-created accounts skip
// email verification.
func (s *Service) Register(ctx context.Context, in RegisterInput, byAdmin bool) (*models.PublicUser, error) {
	if verr := validateRegistration(in); verr != nil {
		return nil, verr
	}

	username := util.SanitizeInput(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		field := "Email"
		if existing.Username == username {
			field = "Username"
		}
		return nil, newError(http.StatusBadRequest, CodeUserExists, field+" already exists")
	case !isNotFound(err):
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	role := models.RoleStudent
	if byAdmin {
		role = models.ParseRole(in.Role)
	}

	now := s.now()
	user := &models.User{
		Username:        username,
		Email:           email,
		PasswordHash:    hash,
		Role:            role,
		Profile:         in.Profile,
		IsActive:        true,
		IsEmailVerified: byAdmin,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return nil, newError(http.StatusBadRequest, CodeUserExists, "Username or email already exists")
		}
		return nil, err
	}

	log.Printf("[AUTH] User %s registered successfully.", user.ID.Hex())
	pub := user.Public()
	return &pub, nil
}
