package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the salt rounds used for existing accounts.
const DefaultBcryptCost = 10

// Hasher performs one-way password hashing.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher; out-of-range costs fall back to the default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
