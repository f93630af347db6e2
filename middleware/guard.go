package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/catatanlab/authcore"
	"github.com/catatanlab/authcore/access"
)

type userContextKey struct{}

// UserFromContext returns the authenticated user a Guard stored on the
// request context.
func UserFromContext(ctx context.Context) (authcore.UserRecord, bool) {
	user, ok := ctx.Value(userContextKey{}).(authcore.UserRecord)
	return user, ok
}

// Guard wraps a handler with session validation plus a role/permission
// requirement. An empty requirement keeps the route public and skips both
// checks entirely; otherwise the bearer token must validate and the
// resolved user must satisfy the requirement before the handler runs.
func Guard(engine *authcore.Engine, req access.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if req.Public() {
				next.ServeHTTP(w, r)
				return
			}

			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if err := engine.Authorize(r.Context(), user.ID, req); err != nil {
				status := http.StatusForbidden
				if authcore.KindOf(err) == authcore.KindInternal {
					status = http.StatusInternalServerError
				}
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth guards a route that needs a valid session but no particular
// role or permission.
func RequireAuth(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles guards a route behind role membership (any of the named
// roles suffices).
func RequireRoles(engine *authcore.Engine, roles ...string) func(http.Handler) http.Handler {
	return Guard(engine, access.Requirement{Roles: roles})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
