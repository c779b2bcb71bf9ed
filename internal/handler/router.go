package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mlebreton/parcloc-system/internal/middleware"
)

// SetupRouter wires the HTTP routes and middleware of the parc-loc API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.session.Middleware)

			r.Route("/equipments", func(r chi.Router) {
				r.Get("/", h.ListEquipment)
				r.Post("/", h.CreateEquipment)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetEquipment)
					r.Put("/", h.UpdateEquipment)
					r.Delete("/", h.DeleteEquipment)

					r.Post("/reserve", h.Reserve)
					r.Post("/start", h.StartRental)
					r.Post("/cancel", h.CancelReservation)
					r.Post("/return", h.Return)
					r.Post("/maintenance/done", h.EndMaintenance)

					r.Get("/history", h.GetHistory)
				})
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/ca", h.MonthlyCA)
				r.Get("/ca/series", h.CASeries)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.ListClients)
				r.Post("/", h.CreateClient)
				r.Put("/{id}", h.UpdateClient)
				r.Delete("/{id}", h.DeleteClient)
			})

			r.Route("/parts", func(r chi.Router) {
				r.Get("/", h.ListSpareParts)
				r.Post("/", h.CreateSparePart)
				r.Post("/{id}/stock", h.AdjustStock)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
