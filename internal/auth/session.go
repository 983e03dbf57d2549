package auth

import (
	"context"
	"net/http"

	"placegrad/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authenticate resolves a bearer session token to its active user.
//
// Tokens are not tracked server side, so there is no way to revoke one
// before it expires; logout is the client dropping its copy.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ParseSession(token, s.now())
	if err != nil {
		return nil, newError(http.StatusUnauthorized, CodeInvalidToken, "Token is invalid")
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, newError(http.StatusUnauthorized, CodeInvalidToken, "Token is invalid")
	}
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(http.StatusUnauthorized, CodeInvalidToken, "Token is invalid - user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, newError(http.StatusUnauthorized, CodeAccountDeactivated, "Account is deactivated")
	}
	return user, nil
}
