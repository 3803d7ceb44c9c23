package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tinyu01/library-management-system/internal/book"
	"github.com/Tinyu01/library-management-system/internal/config"
	"github.com/Tinyu01/library-management-system/internal/platform/logger"
	"github.com/Tinyu01/library-management-system/internal/platform/storage"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("development", "info")
		fallback.Fatal().Err(err).Msg("cannot load config")
	}
	log := logger.New(cfg.App.Environment, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open storage")
	}
	defer store.Close()

	bookService := book.NewService(store.Repo, log)
	bookHandler := book.NewHTTPHandler(bookService, log)

	handler, stopLimiter := newHandler(newRouter(bookHandler, store), cfg, log)
	defer stopLimiter()

	httpServer := &http.Server{
		Addr:         cfg.App.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.App.Addr).Str("driver", cfg.Storage.Driver).Msg("starting server")
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
