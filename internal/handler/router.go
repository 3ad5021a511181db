package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/service"
)

// NewRouter builds the HTTP API. Everything except /health and /metrics
// requires a bearer token signed with signingKey.
func NewRouter(events *service.EventService, regs *service.RegistrationService, signingKey string, log *zap.Logger) http.Handler {
	eventHandler := NewEventHandler(events, regs, log)
	regHandler := NewRegistrationHandler(regs, log)
	auth := NewAuthenticator(signingKey)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.VerifyJWT())

		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.CreateEvent)
			r.Get("/{id}", eventHandler.GetEvent)
			r.Post("/{id}/registrations", eventHandler.Register)
			r.Get("/{id}/registrations", eventHandler.ListRegistrations)
		})

		r.Route("/registrations/{id}", func(r chi.Router) {
			r.Get("/", regHandler.GetRegistration)
			r.Get("/history", regHandler.History)
			r.Get("/ticket/qr", regHandler.TicketQR)
			r.Post("/proof", regHandler.SubmitProof)
			r.Post("/approve", regHandler.Approve)
			r.Post("/reject", regHandler.Reject)
			r.Post("/cancel", regHandler.Cancel)
		})

		r.Post("/tickets/verify", regHandler.Verify)
	})

	return r
}
