package book

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no book matches the requested id or title.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateTitle is returned when a write would give two books the same title.
	ErrDuplicateTitle = errors.New("duplicate book title")
	// ErrDuplicateISBN is returned when a write would give two books the same non-empty ISBN.
	ErrDuplicateISBN = errors.New("duplicate book isbn")
	// ErrInvalidInput is returned when the service rejects a malformed argument.
	ErrInvalidInput = errors.New("invalid book input")
)

// Book represents a catalog record as persisted by a Repository.
type Book struct {
	ID        int64
	Title     string
	Author    string
	ISBN      string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityStatus describes whether the book can be checked out.
func (b Book) AvailabilityStatus() string {
	if b.Available {
		return fmt.Sprintf("The book '%s' is available.", b.Title)
	}
	return fmt.Sprintf("The book '%s' is checked out.", b.Title)
}

func notInCollection(title string) string {
	return fmt.Sprintf("The book '%s' is not in the library's collection.", title)
}

// Input carries the writable fields of a book for Add and Update.
type Input struct {
	Title     string
	Author    string
	ISBN      string
	Available bool
}

// Response is the external representation of a book.
type Response struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// normalized treats a whitespace-only ISBN as no ISBN.
func (in Input) normalized() Input {
	if strings.TrimSpace(in.ISBN) == "" {
		in.ISBN = ""
	}
	return in
}

func toResponse(b Book) Response {
	return Response{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		Available: b.Available,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func fromInput(in Input) Book {
	return Book{
		Title:     in.Title,
		Author:    in.Author,
		ISBN:      in.ISBN,
		Available: in.Available,
	}
}

func notFoundByID(id int64) error {
	return fmt.Errorf("%w with id: %d", ErrNotFound, id)
}

func notFoundByTitle(title string) error {
	return fmt.Errorf("%w with title: %s", ErrNotFound, title)
}

func duplicateTitle(title string) error {
	return fmt.Errorf("%w: book with title '%s' already exists in the library", ErrDuplicateTitle, title)
}

func duplicateISBN(isbn string) error {
	return fmt.Errorf("%w: book with ISBN '%s' already exists in the library", ErrDuplicateISBN, isbn)
}
