package auth

import (
	"context"
	"fmt"
	"log"
	"strings"

	"placegrad/internal/models"
)

// AdminUsername is the login name of the seeded administrator.
const AdminUsername = "Admin"

// EnsureAdmin creates the administrator account for email unless one
// already exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, fmt.Errorf("admin email and password are required")
	}

	existing, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.Role == models.RoleAdmin:
		return false, nil
	case err == nil:
		return false, fmt.Errorf("email %s belongs to a %s account", email, existing.Role)
	case !isNotFound(err):
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	now := s.now()
	admin := &models.User{
		Username:        AdminUsername,
		Email:           email,
		PasswordHash:    hash,
		Role:            models.RoleAdmin,
		Profile:         models.Profile{FirstName: "Admin", LastName: "User"},
		IsActive:        true,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	log.Printf("[AUTH] Admin user %s created", admin.ID.Hex())
	return true, nil
}
