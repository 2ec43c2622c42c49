package auth

import (
	"context"
	"strings"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
)

var (
	ErrMissingToken = apperr.New(apperr.KindUnauthorized, "Unauthorized")
	ErrInvalidToken = apperr.New(apperr.KindUnauthorized, "Unauthorized")
)

// Identity is the caller as asserted by a verified ID token.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
}

// VerifiedEmail returns the token email only when the provider verified it.
// Admin checks and teammate linking must use this, never Email.
func (id Identity) VerifiedEmail() string {
	if !id.EmailVerified {
		return ""
	}
	return id.Email
}

// Verifier turns a raw bearer token into an Identity. Any failure must be
// reported as ErrMissingToken or ErrInvalidToken.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.UID == "" {
		return Identity{}, false
	}
	return id, true
}
