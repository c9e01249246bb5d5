package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/account-overlay/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса аккаунт-оверлея.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/account", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Session)

			r.Get("/overlay", h.Overlay)
			r.Get("/overlay/config", h.Config)
		})
	})

	r.Route("/api/overlay", func(r chi.Router) {
		r.Use(h.authMiddleware.AdminToken)

		r.Put("/settings/{salesChannelID}", h.UpdateSettings)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
