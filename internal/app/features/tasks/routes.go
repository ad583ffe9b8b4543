// internal/app/features/tasks/routes.go
package tasks

import "github.com/go-chi/chi/v5"

// Register returns a function that adds the board and task routes to a
// router already scoped to /teams/{teamID}.
func Register(h *Handler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/stats", h.ServeStats)

		r.Post("/drag", h.ServeDrag)
		r.Delete("/drag", h.ServeCancelDrag)
		r.Post("/drop", h.ServeDrop)

		r.Get("/tasks", h.ServeBoard)
		r.Post("/tasks", h.ServeCreate)
		r.Delete("/tasks/groups/{groupID}", h.ServeDeleteSeries)

		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Get("/", h.ServeGet)
			r.Put("/", h.ServeUpdate)
			r.Delete("/", h.ServeDelete)
			r.Patch("/status", h.ServeStatus)

			r.Get("/comments", h.ServeComments)
			r.Post("/comments", h.ServePostComment)
			r.Post("/files", h.ServeAddFile)
			r.Delete("/files", h.ServeDeleteFile)
			r.Post("/links", h.ServeAddLink)
			r.Delete("/links", h.ServeDeleteLink)
			r.Post("/history", h.ServeAddHistory)
		})
	}
}
