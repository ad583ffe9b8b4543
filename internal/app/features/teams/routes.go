// internal/app/features/teams/routes.go
package teams

import "github.com/go-chi/chi/v5"

// Routes is mounted under /teams behind RequireSignedIn. Each extra
// function registers more routes under /teams/{teamID}.
func Routes(h *Handler, extra ...func(r chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/feed", h.ServeFeed)

	r.Route("/{teamID}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Put("/", h.ServeUpdate)
		r.Delete("/", h.ServeDelete)
		r.Post("/leave", h.ServeLeave)
		r.Get("/activity", h.ServeActivity)

		r.Post("/requests", h.ServeRequestJoin)
		r.Delete("/requests/{userID}", h.ServeDeleteRequest)
		r.Post("/requests/{userID}/accept", h.ServeAcceptRequest)

		r.Put("/members/{infoID}/role", h.ServeChangeRole)
		r.Put("/members/{infoID}/participation", h.ServeChangeParticipation)
		r.Delete("/members/{infoID}", h.ServeRemoveMember)

		for _, register := range extra {
			register(r)
		}
	})

	return r
}
