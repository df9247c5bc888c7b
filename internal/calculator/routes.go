package calculator

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all calculator endpoints onto the given router
// under the /calculator prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/calculator", func(r chi.Router) {
		r.Get("/keypad", h.Keypad)
		r.Post("/operate", h.Operate)
		r.Post("/unary", h.Unary)
		r.Post("/evaluate", h.Evaluate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Post("/press", h.Press)
				r.Post("/key", h.Key)
				r.Post("/memory", h.Memory)
				r.Post("/theme", h.Theme)
				r.Post("/reset", h.Reset)
				r.Post("/history/{entryID}/use", h.UseHistory)
				r.Delete("/history", h.ClearHistory)
			})
		})
	})
}
