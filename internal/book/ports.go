package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Book, error)
	FindByTitle(ctx context.Context, title string) (Book, error)
	FindByISBN(ctx context.Context, isbn string) (Book, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	// Save inserts b when b.ID is zero and updates it otherwise. The returned
	// book carries the storage-assigned id and timestamps.
	Save(ctx context.Context, b Book) (Book, error)
	DeleteByID(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]Book, error)
	// InTx runs fn against a Repository bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repository) error) error
}
