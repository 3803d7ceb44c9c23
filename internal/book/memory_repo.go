package book

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository. Ids are never reused and
// UpdatedAt strictly increases on every update, even when the clock does not.
type MemoryRepo struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	books  map[int64]Book
	nextID int64
	now    func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return NewMemoryRepoWithClock(time.Now)
}

// NewMemoryRepoWithClock constructs a MemoryRepo that stamps records with now.
func NewMemoryRepoWithClock(now func() time.Time) *MemoryRepo {
	return &MemoryRepo{
		books:  make(map[int64]Book),
		nextID: 1,
		now:    now,
	}
}

func (r *MemoryRepo) FindByID(_ context.Context, id int64) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) FindByTitle(_ context.Context, title string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.books {
		if b.Title == title {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *MemoryRepo) FindByISBN(_ context.Context, isbn string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if isbn == "" {
		return Book{}, ErrNotFound
	}
	for _, b := range r.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *MemoryRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return found(r.FindByID(ctx, id))
}

func (r *MemoryRepo) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	return found(r.FindByTitle(ctx, title))
}

func (r *MemoryRepo) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	return found(r.FindByISBN(ctx, isbn))
}

func (r *MemoryRepo) Save(_ context.Context, b Book) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if b.ID == 0 {
		b.ID = r.nextID
		r.nextID++
		b.CreatedAt = now
		b.UpdatedAt = now
		r.books[b.ID] = b
		return b, nil
	}

	current, ok := r.books[b.ID]
	if !ok {
		return Book{}, ErrNotFound
	}
	b.CreatedAt = current.CreatedAt
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Nanosecond)
	}
	b.UpdatedAt = now
	r.books[b.ID] = b
	return b, nil
}

func (r *MemoryRepo) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return ErrNotFound
	}
	delete(r.books, id)
	return nil
}

// FindAll returns all books in ascending id order.
func (r *MemoryRepo) FindAll(_ context.Context) ([]Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Book, 0, len(r.books))
	for _, b := range r.books {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// InTx serializes fn against other transactions and restores the previous
// contents if fn fails. The id counter is not rolled back.
func (r *MemoryRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	snapshot := make(map[int64]Book, len(r.books))
	for id, b := range r.books {
		snapshot[id] = b
	}
	r.mu.RUnlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.books = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func found(_ Book, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
