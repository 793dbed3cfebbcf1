package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/songcraft/songcraft-api/internal/api"
	apiMiddleware "github.com/songcraft/songcraft-api/internal/api/middleware"
)

// setupRouter registers every route and the middleware stack.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	paymentHandler := api.NewPaymentHandler(app.songService, app.logger)
	songHandler := api.NewSongHandler(app.songService, app.broadcaster, app.config.Broadcast.KeepAlive, app.logger)
	healthHandler := api.NewHealthHandler(app.db, app.pool, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Called by the payment backend once an order is paid.
		r.Post("/payments/confirmed", paymentHandler.PaymentConfirmed)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/songs/{id}", songHandler.GetSong)
			r.Post("/songs/{id}/delivered", songHandler.MarkDelivered)
			r.Get("/songs/{id}/stream", songHandler.StreamSong)
		})
	})

	r.Get("/health", healthHandler.Health)

	return r
}
