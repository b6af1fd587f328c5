// Package auth resolves request credentials to a user id.
//
// Two credential forms are accepted in the Authorization header: a session
// token issued on login ("Bearer <jwt>") and a raw API key.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrMissingToken is returned when no credential was presented.
	ErrMissingToken = errors.New("api key is missing")
	// ErrInvalidToken is returned when a credential does not resolve to an active user.
	ErrInvalidToken = errors.New("access denied, invalid api key")
	// ErrIdentityNotFound is returned by a Repository when no user matches.
	ErrIdentityNotFound = errors.New("identity not found")
)

const bearerPrefix = "Bearer "

// Resolver turns an Authorization header value into a user id.
type Resolver struct {
	identities Repository
	hasher     *KeyHasher
	tokens     *Tokens
}

// NewResolver creates a Resolver.
func NewResolver(identities Repository, hasher *KeyHasher, tokens *Tokens) *Resolver {
	return &Resolver{identities: identities, hasher: hasher, tokens: tokens}
}

// Resolve returns the user id the credential belongs to.
func (r *Resolver) Resolve(ctx context.Context, credential string) (int64, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return 0, ErrMissingToken
	}
	if token, ok := strings.CutPrefix(credential, bearerPrefix); ok {
		userID, err := r.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			return 0, err
		}
		id, err := r.identities.FindByUserID(ctx, userID)
		if err != nil {
			return 0, lookupErr(err)
		}
		if !id.Active {
			return 0, ErrInvalidToken
		}
		return id.UserID, nil
	}

	sum := r.hasher.Sum(credential)
	id, err := r.identities.FindByKeyHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		return 0, lookupErr(err)
	}

	stored, err := hex.DecodeString(id.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
		return 0, ErrInvalidToken
	}
	if !id.Active {
		return 0, ErrInvalidToken
	}
	return id.UserID, nil
}

func lookupErr(err error) error {
	if errors.Is(err, ErrIdentityNotFound) {
		return ErrInvalidToken
	}
	return errors.Wrap(err, "find identity")
}
