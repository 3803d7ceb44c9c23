package book

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Service provides the catalog rules on top of a Repository.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new book service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "book_service").Logger()}
}

// ListAll returns every book in the catalog.
func (s *Service) ListAll(ctx context.Context) ([]Response, error) {
	books, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	out := make([]Response, 0, len(books))
	for _, b := range books {
		out = append(out, toResponse(b))
	}
	s.logger.Debug().Int("count", len(out)).Msg("listed books")
	return out, nil
}

// GetByID returns a book by its id.
func (s *Service) GetByID(ctx context.Context, id int64) (Response, error) {
	b, err := findByID(ctx, s.repo, id)
	if err != nil {
		return Response{}, err
	}
	return toResponse(b), nil
}

// CheckAvailability reports in plain words whether a title can be checked out.
// An unknown title is not an error.
func (s *Service) CheckAvailability(ctx context.Context, title string) (string, error) {
	b, err := s.repo.FindByTitle(ctx, title)
	if errors.Is(err, ErrNotFound) {
		return notInCollection(title), nil
	}
	if err != nil {
		return "", fmt.Errorf("check availability: %w", err)
	}
	return b.AvailabilityStatus(), nil
}

// Add validates in and stores it as a new book.
func (s *Service) Add(ctx context.Context, in Input) (Response, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Response{}, err
	}

	var saved Book
	err := s.repo.InTx(ctx, func(repo Repository) error {
		if err := ensureTitleFree(ctx, repo, in.Title); err != nil {
			return err
		}
		if in.ISBN != "" {
			if err := ensureISBNFree(ctx, repo, in.ISBN); err != nil {
				return err
			}
		}
		var err error
		saved, err = repo.Save(ctx, fromInput(in))
		return err
	})
	if err != nil {
		return Response{}, err
	}

	s.logger.Info().Int64("book_id", saved.ID).Str("title", saved.Title).Msg("book added")
	return toResponse(saved), nil
}

// Update replaces every writable field of the book with id. A title or ISBN
// equal to the book's current value never counts as a duplicate.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Response, error) {
	in = in.normalized()
	if err := in.Validate(); err != nil {
		return Response{}, err
	}

	var saved Book
	err := s.repo.InTx(ctx, func(repo Repository) error {
		b, err := findByID(ctx, repo, id)
		if err != nil {
			return err
		}
		if in.Title != b.Title {
			if err := ensureTitleFree(ctx, repo, in.Title); err != nil {
				return err
			}
		}
		if in.ISBN != "" && in.ISBN != b.ISBN {
			if err := ensureISBNFree(ctx, repo, in.ISBN); err != nil {
				return err
			}
		}

		b.Title = in.Title
		b.Author = in.Author
		b.ISBN = in.ISBN
		b.Available = in.Available
		saved, err = repo.Save(ctx, b)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	s.logger.Info().Int64("book_id", saved.ID).Str("title", saved.Title).Msg("book updated")
	return toResponse(saved), nil
}

// UpdateTitleByID renames the book with id.
func (s *Service) UpdateTitleByID(ctx context.Context, id int64, newTitle string) (Response, error) {
	if err := validateTitle("new title", newTitle); err != nil {
		return Response{}, err
	}

	var saved Book
	err := s.repo.InTx(ctx, func(repo Repository) error {
		b, err := findByID(ctx, repo, id)
		if err != nil {
			return err
		}
		saved, err = rename(ctx, repo, b, newTitle)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	s.logger.Info().Int64("book_id", saved.ID).Str("title", saved.Title).Msg("book title updated")
	return toResponse(saved), nil
}

// UpdateTitleByOldTitle renames the book currently titled oldTitle.
func (s *Service) UpdateTitleByOldTitle(ctx context.Context, oldTitle, newTitle string) (Response, error) {
	if err := validateTitle("old title", oldTitle); err != nil {
		return Response{}, err
	}
	if err := validateTitle("new title", newTitle); err != nil {
		return Response{}, err
	}

	var saved Book
	err := s.repo.InTx(ctx, func(repo Repository) error {
		b, err := repo.FindByTitle(ctx, oldTitle)
		if errors.Is(err, ErrNotFound) {
			return notFoundByTitle(oldTitle)
		}
		if err != nil {
			return err
		}
		saved, err = rename(ctx, repo, b, newTitle)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	s.logger.Info().
		Int64("book_id", saved.ID).
		Str("old_title", oldTitle).
		Str("title", saved.Title).
		Msg("book title updated")
	return toResponse(saved), nil
}

// Delete removes the book with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.InTx(ctx, func(repo Repository) error {
		exists, err := repo.ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return notFoundByID(id)
		}
		return repo.DeleteByID(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("book_id", id).Msg("book deleted")
	return nil
}

// ToggleAvailability flips the available flag of the book with id.
func (s *Service) ToggleAvailability(ctx context.Context, id int64) (Response, error) {
	var saved Book
	err := s.repo.InTx(ctx, func(repo Repository) error {
		b, err := findByID(ctx, repo, id)
		if err != nil {
			return err
		}
		b.Available = !b.Available
		saved, err = repo.Save(ctx, b)
		return err
	})
	if err != nil {
		return Response{}, err
	}

	state := "checked out"
	if saved.Available {
		state = "available"
	}
	s.logger.Info().Int64("book_id", saved.ID).Str("title", saved.Title).Msgf("book is now %s", state)
	return toResponse(saved), nil
}

func findByID(ctx context.Context, repo Repository, id int64) (Book, error) {
	b, err := repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Book{}, notFoundByID(id)
	}
	return b, err
}

// rename requires newTitle to be free, including of b itself: renaming a
// book to its current title is a duplicate.
func rename(ctx context.Context, repo Repository, b Book, newTitle string) (Book, error) {
	if err := ensureTitleFree(ctx, repo, newTitle); err != nil {
		return Book{}, err
	}
	b.Title = newTitle
	return repo.Save(ctx, b)
}

func ensureTitleFree(ctx context.Context, repo Repository, title string) error {
	exists, err := repo.ExistsByTitle(ctx, title)
	if err != nil {
		return err
	}
	if exists {
		return duplicateTitle(title)
	}
	return nil
}

func ensureISBNFree(ctx context.Context, repo Repository, isbn string) error {
	exists, err := repo.ExistsByISBN(ctx, isbn)
	if err != nil {
		return err
	}
	if exists {
		return duplicateISBN(isbn)
	}
	return nil
}
