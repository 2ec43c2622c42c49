package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
)

// RequireAuth verifies the bearer token and stores the caller's identity in
// the request context. Any failure is a 401; nothing downstream runs.
func RequireAuth(verifier auth.Verifier, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil || token == "" {
				respond.Error(w, r, auth.ErrMissingToken, env)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				respond.Error(w, r, err, env)
				return
			}

			logger := zerolog.Ctx(r.Context()).With().Str("uid", identity.UID).Logger()
			ctx := auth.WithIdentity(logger.WithContext(r.Context()), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminChecker reports whether an email belongs to a verified admin.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// RequireAdmin must run after RequireAuth. Callers that are not verified
// admins get a 403.
func RequireAdmin(admins AdminChecker, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				respond.Error(w, r, respond.ErrUnauthorized, env)
				return
			}

			isAdmin, err := admins.IsAdmin(r.Context(), identity.VerifiedEmail())
			if err != nil {
				respond.Error(w, r, err, env)
				return
			}
			if !isAdmin {
				respond.Error(w, r, respond.ErrForbidden, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
