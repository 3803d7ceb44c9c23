package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const selectColumns = `id, title, author, COALESCE(isbn, ''), available, created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	pool    *pgxpool.Pool
	db      querier
	timeout time.Duration
	tracer  trace.Tracer
}

func NewPostgresRepo(pool *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{
		pool:    pool,
		db:      pool,
		timeout: timeout,
		tracer:  otel.Tracer("library-management-system/book"),
	}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "postgresql"))
	return r.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Ping checks that the database is reachable.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.pool.Ping(timeoutCtx)
}

func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (b Book, err error) {
	ctx, span := r.startSpan(ctx, "book.find_by_id", attribute.Int64("book.id", id))
	defer func() { endSpan(span, err) }()

	return r.findOne(ctx, `SELECT `+selectColumns+` FROM books WHERE id = $1`, id)
}

func (r *PostgresRepo) FindByTitle(ctx context.Context, title string) (b Book, err error) {
	ctx, span := r.startSpan(ctx, "book.find_by_title")
	defer func() { endSpan(span, err) }()

	return r.findOne(ctx, `SELECT `+selectColumns+` FROM books WHERE title = $1`, title)
}

func (r *PostgresRepo) FindByISBN(ctx context.Context, isbn string) (b Book, err error) {
	ctx, span := r.startSpan(ctx, "book.find_by_isbn")
	defer func() { endSpan(span, err) }()

	if isbn == "" {
		return Book{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM books WHERE isbn = $1`, isbn)
}

func (r *PostgresRepo) findOne(ctx context.Context, query string, arg any) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var b Book
	err := r.db.QueryRow(timeoutCtx, query, arg).Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Available, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) ExistsByID(ctx context.Context, id int64) (ok bool, err error) {
	ctx, span := r.startSpan(ctx, "book.exists_by_id", attribute.Int64("book.id", id))
	defer func() { endSpan(span, err) }()

	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id)
}

func (r *PostgresRepo) ExistsByTitle(ctx context.Context, title string) (ok bool, err error) {
	ctx, span := r.startSpan(ctx, "book.exists_by_title")
	defer func() { endSpan(span, err) }()

	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE title = $1)`, title)
}

func (r *PostgresRepo) ExistsByISBN(ctx context.Context, isbn string) (ok bool, err error) {
	ctx, span := r.startSpan(ctx, "book.exists_by_isbn")
	defer func() { endSpan(span, err) }()

	if isbn == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn)
}

func (r *PostgresRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.db.QueryRow(timeoutCtx, query, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Save inserts b when b.ID is zero and updates it otherwise. updated_at is
// bumped by at least a microsecond so that it strictly increases.
func (r *PostgresRepo) Save(ctx context.Context, b Book) (saved Book, err error) {
	ctx, span := r.startSpan(ctx, "book.save", attribute.Int64("book.id", b.ID))
	defer func() { endSpan(span, err) }()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	if b.ID == 0 {
		const insert = `
			INSERT INTO books (title, author, isbn, available)
			VALUES ($1, $2, NULLIF($3, ''), $4)
			RETURNING id, created_at, updated_at`
		err = r.db.QueryRow(timeoutCtx, insert, b.Title, b.Author, b.ISBN, b.Available).
			Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return Book{}, fmt.Errorf("insert book: %w", err)
		}
		span.SetAttributes(attribute.Int64("book.id", b.ID))
		return b, nil
	}

	const update = `
		UPDATE books
		SET title = $2,
		    author = $3,
		    isbn = NULLIF($4, ''),
		    available = $5,
		    updated_at = GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING created_at, updated_at`
	err = r.db.QueryRow(timeoutCtx, update, b.ID, b.Title, b.Author, b.ISBN, b.Available).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return b, nil
}

func (r *PostgresRepo) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "book.delete_by_id", attribute.Int64("book.id", id))
	defer func() { endSpan(span, err) }()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) FindAll(ctx context.Context) (books []Book, err error) {
	ctx, span := r.startSpan(ctx, "book.find_all")
	defer func() { endSpan(span, err) }()

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, `SELECT `+selectColumns+` FROM books ORDER BY id`)
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
	span.SetAttributes(attribute.Int("book.count", len(out)))
	return out, rows.Err()
}

// InTx runs fn inside a serializable transaction. Calls on a repository
// already bound to a transaction join it.
func (r *PostgresRepo) InTx(ctx context.Context, fn func(Repository) error) (err error) {
	if r.pool == nil {
		return fn(r)
	}

	ctx, span := r.startSpan(ctx, "book.tx")
	defer func() { endSpan(span, err) }()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txRepo := &PostgresRepo{db: tx, timeout: r.timeout, tracer: r.tracer}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
