package main

import (
	"context"
	"errors"

	"github.com/Tinyu01/library-management-system/internal/book"
	"github.com/Tinyu01/library-management-system/internal/config"
	"github.com/Tinyu01/library-management-system/internal/platform/logger"
	"github.com/Tinyu01/library-management-system/internal/platform/storage"
	"github.com/rs/zerolog"
)

var sampleBooks = []book.Input{
	{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565", Available: true},
	{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", Available: false},
	{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084", Available: true},
	{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "9780141439518", Available: true},
	{Title: "Moby-Dick", Author: "Herman Melville", ISBN: "9781503280786", Available: true},
	{Title: "Brave New World", Author: "Aldous Huxley", Available: true},
}

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("development", "info")
		fallback.Fatal().Err(err).Msg("cannot load config")
	}
	log := logger.New(cfg.App.Environment, cfg.App.LogLevel)

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open storage")
	}
	defer store.Close()

	service := book.NewService(store.Repo, log)
	added, skipped, err := seed(ctx, service, sampleBooks, log)
	if err != nil {
		log.Error().Err(err).Msg("seeding failed")
		return
	}
	log.Info().Int("added", added).Int("skipped", skipped).Msg("seeding finished")
}

type bookAdder interface {
	Add(ctx context.Context, in book.Input) (book.Response, error)
}

// seed adds every input through the service. Books whose title or ISBN is
// already in the catalog are skipped, so seeding can be repeated.
func seed(ctx context.Context, service bookAdder, inputs []book.Input, log zerolog.Logger) (added, skipped int, err error) {
	for _, in := range inputs {
		_, err := service.Add(ctx, in)
		switch {
		case err == nil:
			added++
		case errors.Is(err, book.ErrDuplicateTitle), errors.Is(err, book.ErrDuplicateISBN):
			log.Debug().Str("title", in.Title).Msg("already in catalog, skipping")
			skipped++
		default:
			return added, skipped, err
		}
	}
	return added, skipped, nil
}
