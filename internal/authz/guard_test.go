package authz

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quill-api/quill/internal/platform/httpx"
)

type stubVerifier map[string]int64

func (s stubVerifier) Verify(token string) (int64, error) {
	id, ok := s[token]
	if !ok {
		return 0, errors.New("bad token")
	}
	return id, nil
}

type stubIdentities struct {
	identities map[int64]Identity
	err        error
}

func (s stubIdentities) FindIdentity(ctx context.Context, id int64) (Identity, error) {
	if s.err != nil {
		return Identity{}, s.err
	}
	identity, ok := s.identities[id]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return identity, nil
}

func newTestGuard() *Guard {
	tokens := stubVerifier{"alice": 1, "bob": 2, "admin": 3, "ghost": 99, "retired": 4}
	identities := stubIdentities{identities: map[int64]Identity{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: true},
		3: {ID: 3, IsAdmin: true, IsActive: true},
		4: {ID: 4, IsActive: false},
	}}
	return NewGuard(tokens, identities, nil)
}

func TestAuthorizeMatrix(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()
	const aliceOwned = int64(1)

	tests := []struct {
		name    string
		token   string
		allowed bool
		reason  string
	}{
		{"owner", "alice", true, ""},
		{"admin on someone else's resource", "admin", true, ""},
		{"other account", "bob", false, ReasonForbidden},
		{"missing token", "", false, ReasonUnauthenticated},
		{"invalid token", "forged", false, ReasonUnauthenticated},
		{"deleted account", "ghost", false, ReasonUnauthenticated},
		{"deactivated account", "retired", false, ReasonUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Authorize(ctx, tt.token, aliceOwned)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestDecisionErr(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	assert.NoError(t, g.Authorize(ctx, "alice", 1).Err())
	assert.ErrorIs(t, g.Authorize(ctx, "bob", 1).Err(), httpx.ErrForbidden)
	assert.ErrorIs(t, g.Authorize(ctx, "", 1).Err(), httpx.ErrUnauthorized)
}

func TestRequireAdmin(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	assert.True(t, g.RequireAdmin(ctx, "admin").Allowed)
	d := g.RequireAdmin(ctx, "alice")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)
}

func TestAuthenticateStoreFailureIsInternal(t *testing.T) {
	g := NewGuard(stubVerifier{"alice": 1}, stubIdentities{err: errors.New("connection reset")}, nil)

	d := g.Authenticate(context.Background(), "alice")
	assert.False(t, d.Allowed)
	err := d.Err()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", BearerToken(r))

	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "", BearerToken(r))
}
