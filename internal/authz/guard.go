// Package authz decides whether a bearer token may act on a resource.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quill-api/quill/internal/platform/httpx"
)

// Deny reasons.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonForbidden       = "forbidden"
)

// ErrIdentityNotFound is returned by IdentityStore when the subject no longer exists.
var ErrIdentityNotFound = errors.New("authz: identity not found")

// TokenVerifier validates a bearer token and yields the account id it was issued for.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Identity is the slice of an account the guard needs.
type Identity struct {
	ID       int64
	IsAdmin  bool
	IsActive bool
}

// IdentityStore resolves the acting account so admin flags and deactivation
// take effect without waiting for token expiry.
type IdentityStore interface {
	FindIdentity(ctx context.Context, id int64) (Identity, error)
}

// Principal is the verified caller attached to an allowed decision.
type Principal struct {
	ID      int64
	IsAdmin bool
}

// CanModify reports whether p may change a resource owned by ownerID.
func (p Principal) CanModify(ownerID int64) bool {
	return p.ID == ownerID || p.IsAdmin
}

// Decision is the typed outcome of a guard check.
type Decision struct {
	Allowed   bool
	Reason    string
	Principal Principal
	cause     error
}

// Err converts a denial into the matching httpx sentinel, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.cause != nil {
		return d.cause
	}
	if d.Reason == ReasonForbidden {
		return httpx.ErrForbidden
	}
	return httpx.ErrUnauthorized
}

// Forbid turns an allowed decision into a forbidden one for the same caller.
func (d Decision) Forbid() Decision {
	return Decision{Reason: ReasonForbidden, Principal: d.Principal}
}

func allow(p Principal) Decision {
	return Decision{Allowed: true, Principal: p}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Guard gates mutating endpoints.
type Guard struct {
	tokens     TokenVerifier
	identities IdentityStore
	logger     *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(tokens TokenVerifier, identities IdentityStore, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{tokens: tokens, identities: identities, logger: logger}
}

// Authenticate resolves the caller behind token without any ownership check.
func (g *Guard) Authenticate(ctx context.Context, token string) Decision {
	if strings.TrimSpace(token) == "" {
		return deny(ReasonUnauthenticated)
	}
	id, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Debug("token rejected", slog.Any("error", err))
		return deny(ReasonUnauthenticated)
	}
	identity, err := g.identities.FindIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return deny(ReasonUnauthenticated)
		}
		g.logger.Error("resolve identity", slog.Int64("account_id", id), slog.Any("error", err))
		return Decision{Reason: ReasonUnauthenticated, cause: fmt.Errorf("authz: resolve identity: %w", err)}
	}
	if !identity.IsActive {
		return deny(ReasonUnauthenticated)
	}
	return allow(Principal{ID: identity.ID, IsAdmin: identity.IsAdmin})
}

// Authorize allows the caller when it owns the resource or is an admin.
func (g *Guard) Authorize(ctx context.Context, token string, ownerID int64) Decision {
	d := g.Authenticate(ctx, token)
	if !d.Allowed {
		return d
	}
	if !d.Principal.CanModify(ownerID) {
		return d.Forbid()
	}
	return d
}

// RequireAdmin allows only admin callers.
func (g *Guard) RequireAdmin(ctx context.Context, token string) Decision {
	d := g.Authenticate(ctx, token)
	if !d.Allowed {
		return d
	}
	if !d.Principal.IsAdmin {
		return d.Forbid()
	}
	return d
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
