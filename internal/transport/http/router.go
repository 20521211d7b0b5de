package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accountmodels "slotbook/internal/account/models"
)

// NewRouter wires all public endpoints. Schedule and specialist profile
// mutations are specialist-only; booking and the account contact profile are
// open to any authenticated account.
func NewRouter(h *Handler, validator TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/signin", h.handleSignIn)
		r.Post("/refresh", h.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(validator, logger))

		r.Get("/account/profile", h.handleGetAccountProfile)
		r.Put("/account/profile", h.handleUpdateAccountProfile)
		r.Delete("/account/profile", h.handleClearAccountProfile)

		r.Get("/profiles", h.handleListProfiles)
		r.Get("/profiles/{id}", h.handleGetProfile)
		r.Get("/schedules/{id}", h.handleGetSchedule)

		r.Post("/appointments", h.handleBook)
		r.Get("/appointments/me", h.handleMyBooking)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(string(accountmodels.RoleSpecialist)))

			r.Get("/profile", h.handleGetOwnProfile)
			r.Put("/profile", h.handleUpdateProfile)
			r.Delete("/profile", h.handleClearProfile)

			r.Get("/schedule", h.handleGetOwnSchedule)
			r.Post("/schedule/slots", h.handleAddSlots)
			r.Put("/schedule/slots", h.handleReplaceSlots)
		})
	})

	return r
}
