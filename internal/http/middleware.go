package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/jlkwl/supermarket/internal/session"
)

type ctxKey string

const principalKey ctxKey = "principal"

// SessionCookieName carries the opaque session token.
const SessionCookieName = "session_id"

// SessionReader resolves a session token to a logged-in principal.
type SessionReader interface {
	Get(ctx context.Context, token string) (*session.Principal, error)
}

// SessionAuth resolves the session cookie and, when valid, attaches the
// principal to the request context. Requests without a session pass through
// anonymously; RequireLogin gates the protected routes.
func SessionAuth(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					log.Printf("session lookup failed: %v", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin rejects anonymous requests.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getPrincipal(r.Context()) == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anyone without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := getPrincipal(r.Context())
		if p == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		if !p.IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func getPrincipal(ctx context.Context) *session.Principal {
	if p, ok := ctx.Value(principalKey).(*session.Principal); ok {
		return p
	}
	return nil
}

// withPrincipal is used by handler tests to simulate a logged-in request.
func withPrincipal(ctx context.Context, p *session.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
