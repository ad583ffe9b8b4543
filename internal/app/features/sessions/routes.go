// internal/app/features/sessions/routes.go
package sessions

import (
	"github.com/go-chi/chi/v5"
	"github.com/showteam/teamhub/internal/app/system/ratelimit"
)

// Routes is mounted under /session. Sign-ins are rate limited per client IP.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.With(limiter.Middleware).Post("/", h.ServeSignIn)
	r.Delete("/", h.ServeSignOut)
	r.Get("/", h.ServeCurrent)
	return r
}
