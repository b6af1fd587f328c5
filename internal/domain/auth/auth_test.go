package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIdentities struct {
	byHash map[string]*Identity
}

func (m *mockIdentities) FindByKeyHash(_ context.Context, hash string) (*Identity, error) {
	if id, ok := m.byHash[hash]; ok {
		return id, nil
	}
	return nil, ErrIdentityNotFound
}

func (m *mockIdentities) FindByUserID(_ context.Context, userID int64) (*Identity, error) {
	for _, id := range m.byHash {
		if id.UserID == userID {
			return id, nil
		}
	}
	return nil, ErrIdentityNotFound
}

type failingIdentities struct {
	err error
}

func (f failingIdentities) FindByKeyHash(context.Context, string) (*Identity, error) {
	return nil, f.err
}

func (f failingIdentities) FindByUserID(context.Context, int64) (*Identity, error) {
	return nil, f.err
}

func newResolver(t *testing.T, keys map[string]*Identity) (*Resolver, *Tokens) {
	t.Helper()
	hasher := NewKeyHasher([]byte("pepper"))
	repo := &mockIdentities{byHash: make(map[string]*Identity)}
	for key, id := range keys {
		id.KeyHash = hasher.Hash(key)
		repo.byHash[id.KeyHash] = id
	}
	tokens := NewTokens([]byte("secret"), time.Hour)
	return NewResolver(repo, hasher, tokens), tokens
}

func TestNewAPIKey(t *testing.T) {
	a, b := NewAPIKey(), NewAPIKey()
	assert.Len(t, a, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", a)
	assert.NotEqual(t, a, b)
}

func TestResolver_Resolve(t *testing.T) {
	const key = "0123456789abcdef0123456789abcdef"
	r, tokens := newResolver(t, map[string]*Identity{
		key:                                {UserID: 7, Active: true},
		"ffffffffffffffffffffffffffffffff": {UserID: 8, Active: false},
	})
	token, err := tokens.Issue(7)
	require.NoError(t, err)
	inactiveToken, err := tokens.Issue(8)
	require.NoError(t, err)
	unknownToken, err := tokens.Issue(99)
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
		wantID     int64
		wantErr    error
	}{
		{name: "api key", credential: key, wantID: 7},
		{name: "bearer token", credential: "Bearer " + token, wantID: 7},
		{name: "missing", credential: "  ", wantErr: ErrMissingToken},
		{name: "unknown key", credential: "deadbeefdeadbeefdeadbeefdeadbeef", wantErr: ErrInvalidToken},
		{name: "inactive user", credential: "ffffffffffffffffffffffffffffffff", wantErr: ErrInvalidToken},
		{name: "garbage token", credential: "Bearer not-a-jwt", wantErr: ErrInvalidToken},
		{name: "token of inactive user", credential: "Bearer " + inactiveToken, wantErr: ErrInvalidToken},
		{name: "token of deleted user", credential: "Bearer " + unknownToken, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := r.Resolve(context.Background(), tt.credential)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestResolver_ResolveStorageFailure(t *testing.T) {
	dbErr := errors.New("connection refused")
	tokens := NewTokens([]byte("secret"), time.Hour)
	r := NewResolver(failingIdentities{err: dbErr}, NewKeyHasher([]byte("pepper")), tokens)
	token, err := tokens.Issue(7)
	require.NoError(t, err)

	for _, credential := range []string{"0123456789abcdef0123456789abcdef", "Bearer " + token} {
		_, err := r.Resolve(context.Background(), credential)
		require.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)
	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issuedAt }

	token, err := tokens.Issue(3)
	require.NoError(t, err)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	tokens.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = tokens.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongSecret(t *testing.T) {
	token, err := NewTokens([]byte("one"), time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewTokens([]byte("two"), time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
