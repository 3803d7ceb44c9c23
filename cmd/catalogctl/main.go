package main

import (
	"context"
	"os"

	"github.com/Tinyu01/library-management-system/internal/book"
	"github.com/Tinyu01/library-management-system/internal/config"
	"github.com/Tinyu01/library-management-system/internal/platform/logger"
	"github.com/Tinyu01/library-management-system/internal/platform/storage"
)

func main() {
	root := newRootCmd(openConfiguredService)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openConfiguredService opens the storage named by the environment. The CLI
// only logs warnings and errors unless LOG_LEVEL says otherwise.
func openConfiguredService(ctx context.Context) (*book.Service, func(), error) {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.App.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	log := logger.New("development", level)

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, nil, err
	}
	return book.NewService(store.Repo, log), store.Close, nil
}
