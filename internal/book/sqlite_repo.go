package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS books (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT NOT NULL UNIQUE,
    author     TEXT NOT NULL DEFAULT '',
    isbn       TEXT UNIQUE,
    available  BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);`

// OpenSQLite opens (or creates) the SQLite database at path and applies the
// books schema.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepo is a Repository backed by a local SQLite file.
type SQLiteRepo struct {
	sqlDB   *sql.DB
	db      sqlQuerier
	timeout time.Duration
	now     func() time.Time
}

func NewSQLiteRepo(db *sql.DB, timeout time.Duration) *SQLiteRepo {
	return &SQLiteRepo{sqlDB: db, db: db, timeout: timeout, now: time.Now}
}

func (r *SQLiteRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Ping checks that the database file is usable.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.sqlDB.PingContext(timeoutCtx)
}

func (r *SQLiteRepo) FindByID(ctx context.Context, id int64) (Book, error) {
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM books WHERE id = ?`, id)
}

func (r *SQLiteRepo) FindByTitle(ctx context.Context, title string) (Book, error) {
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM books WHERE title = ?`, title)
}

func (r *SQLiteRepo) FindByISBN(ctx context.Context, isbn string) (Book, error) {
	if isbn == "" {
		return Book{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM books WHERE isbn = ?`, isbn)
}

func (r *SQLiteRepo) findOne(ctx context.Context, query string, arg any) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var b Book
	err := r.db.QueryRowContext(timeoutCtx, query, arg).Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Available, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *SQLiteRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = ?)`, id)
}

func (r *SQLiteRepo) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE title = ?)`, title)
}

func (r *SQLiteRepo) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	if isbn == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = ?)`, isbn)
}

func (r *SQLiteRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.db.QueryRowContext(timeoutCtx, query, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *SQLiteRepo) Save(ctx context.Context, b Book) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.now().UTC()
	if b.ID == 0 {
		res, err := r.db.ExecContext(timeoutCtx, `
			INSERT INTO books (title, author, isbn, available, created_at, updated_at)
			VALUES (?, ?, NULLIF(?, ''), ?, ?, ?)`,
			b.Title, b.Author, b.ISBN, b.Available, now, now)
		if err != nil {
			return Book{}, fmt.Errorf("insert book: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return Book{}, fmt.Errorf("insert book: %w", err)
		}
		b.ID = id
		b.CreatedAt = now
		b.UpdatedAt = now
		return b, nil
	}

	var createdAt, updatedAt time.Time
	err := r.db.QueryRowContext(timeoutCtx, `SELECT created_at, updated_at FROM books WHERE id = ?`, b.ID).
		Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("update book %d: %w", b.ID, err)
	}
	if !now.After(updatedAt) {
		now = updatedAt.Add(time.Microsecond)
	}

	_, err = r.db.ExecContext(timeoutCtx, `
		UPDATE books
		SET title = ?, author = ?, isbn = NULLIF(?, ''), available = ?, updated_at = ?
		WHERE id = ?`,
		b.Title, b.Author, b.ISBN, b.Available, now, b.ID)
	if err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", b.ID, err)
	}
	b.CreatedAt = createdAt
	b.UpdatedAt = now
	return b, nil
}

func (r *SQLiteRepo) DeleteByID(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(timeoutCtx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) FindAll(ctx context.Context) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(timeoutCtx, `SELECT `+selectColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Available, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InTx runs fn inside a write transaction. SQLite transactions are
// serializable.
func (r *SQLiteRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.sqlDB == nil {
		return fn(r)
	}

	tx, err := r.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	txRepo := &SQLiteRepo{db: tx, timeout: r.timeout, now: r.now}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
