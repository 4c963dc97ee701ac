package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Middleware resolves the session user into an Actor on the request
// context.
type Middleware struct {
	logger  *slog.Logger
	service *Service
}

// NewMiddleware builds Middleware instance.
func NewMiddleware(logger *slog.Logger, service *Service) *Middleware {
	return &Middleware{logger: logger, service: service}
}

// WithActor attaches the actor for signed-in sessions and refreshes the
// session liveness timestamp. Anonymous requests pass through without an
// actor.
func (m *Middleware) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.service.GetUser(r.Context(), userID)
		if err != nil || !user.IsActive {
			next.ServeHTTP(w, r)
			return
		}
		if err := m.service.TouchSession(r.Context(), sess.ID); err != nil {
			m.logger.Warn("touch session", slog.Any("error", err))
		}
		actor := shared.Actor{ID: user.ID, Name: user.Name, Role: user.Role}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireActor rejects requests without a signed-in actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.ActorFromContext(r.Context()).ID == 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose actor lacks the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.ActorFromContext(r.Context())
		if actor.ID == 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		if !actor.IsAdmin() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
