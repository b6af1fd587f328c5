package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Identity is the stored form of a user's API key.
type Identity struct {
	UserID  int64
	KeyHash string
	Active  bool
}

// Repository looks up identities. Both methods return ErrIdentityNotFound
// when no user matches.
type Repository interface {
	FindByKeyHash(ctx context.Context, hash string) (*Identity, error)
	FindByUserID(ctx context.Context, userID int64) (*Identity, error)
}

// KeyHasher derives the stored form of an API key. Raw keys are never persisted.
type KeyHasher struct {
	pepper []byte
}

// NewKeyHasher creates a KeyHasher keyed with pepper.
func NewKeyHasher(pepper []byte) *KeyHasher {
	return &KeyHasher{pepper: pepper}
}

// Sum returns the raw HMAC-SHA256 of key.
func (h *KeyHasher) Sum(key string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Hash returns the hex-encoded HMAC-SHA256 of key.
func (h *KeyHasher) Hash(key string) string {
	return hex.EncodeToString(h.Sum(key))
}

// NewAPIKey returns a fresh 32 character hex API key.
func NewAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
