package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the middleware stack and the mission payment routes.
func NewRouter(handler *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverMiddleware(logger))
	r.Use(loggingMiddleware(logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", handler.healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/missions", func(r chi.Router) {
			r.Post("/", handler.createMission)
			r.Route("/{missionID}", func(r chi.Router) {
				r.Get("/", handler.getMission)
				r.Get("/status", handler.getMissionStatus)
				r.Get("/payments", handler.getMissionPayments)
				r.Post("/advance", handler.advanceMission)
				r.Post("/plan", handler.planPayments)
				r.Post("/confirm-payment", handler.confirmPayment)
				r.Post("/cancel", handler.cancelMission)
				r.Post("/release-deposit", handler.releaseDeposit)
			})
		})
		r.Get("/transfers/escalated", handler.listEscalatedTransfers)
	})

	return r
}
