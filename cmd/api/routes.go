package main

import (
	"context"
	"net/http"
	"time"

	"github.com/Tinyu01/library-management-system/internal/book"
	"github.com/Tinyu01/library-management-system/internal/config"
	"github.com/Tinyu01/library-management-system/internal/httpx"
	"github.com/rs/zerolog"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(bookHandler *book.HTTPHandler, db pinger) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /api/books", bookHandler.List)
	router.HandleFunc("POST /api/books", bookHandler.Create)
	router.HandleFunc("PATCH /api/books/title", bookHandler.UpdateTitleByOldTitle)
	router.HandleFunc("GET /api/books/{id}", bookHandler.Get)
	router.HandleFunc("PUT /api/books/{id}", bookHandler.Update)
	router.HandleFunc("DELETE /api/books/{id}", bookHandler.Delete)
	router.HandleFunc("PATCH /api/books/{id}/title", bookHandler.UpdateTitle)
	router.HandleFunc("PATCH /api/books/{id}/availability", bookHandler.ToggleAvailability)
	router.HandleFunc("GET /api/books/{title}/availability", bookHandler.Availability)

	return router
}

// newHandler wraps router with the middleware chain. The returned stop
// function ends the rate limiter's background cleanup.
func newHandler(router http.Handler, cfg *config.Config, logger zerolog.Logger) (http.Handler, func()) {
	limiter := httpx.NewRateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TrustedProxies)

	h := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.HTTP.EnableHSTS),
		httpx.CORSMiddleware(cfg.HTTP.AllowedOrigins),
		limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.HTTP.MaxBodyBytes),
	)
	return h, limiter.Stop
}
