package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JamesPrial/bookstore-api/pkg/books"
	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/errors"
)

// PostgresBackend stores books in PostgreSQL behind a pgx connection pool.
// Identifiers are native UUIDs, normalized to text at this boundary; the
// creation timestamp is assigned by the server.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a new PostgreSQL backend from the given settings
func NewPostgresBackend(ctx context.Context, cfg config.PostgresSettings) (Backend, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "postgres dsn is required")
	}

	// Create connection pool
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "error connecting to database: %v", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "error pinging database: %v", err)
	}

	backend := &PostgresBackend{pool: pool}

	// Initialize the database schema
	if err := backend.initSchema(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageInitialization, "failed to initialize schema: %v", err)
	}

	return backend, nil
}

// initSchema creates the books table
func (p *PostgresBackend) initSchema(ctx context.Context) error {
	createBooksTable := `
	CREATE TABLE IF NOT EXISTS books (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		year INTEGER NOT NULL,
		created_on TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_books_created_on ON books(created_on);
	`

	_, err := p.pool.Exec(ctx, createBooksTable)
	return err
}

// Name returns the backend identifier
func (p *PostgresBackend) Name() string {
	return config.BackendPostgres
}

// CreateBook inserts a new book record, letting the server assign created_on
func (p *PostgresBackend) CreateBook(ctx context.Context, title, author string, year int) (*books.Book, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO books (id, title, author, year)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, title, author, year, created_on
	`, uuid.NewString(), title, author, year)

	book, err := scanPostgresBook(row)
	if err != nil {
		return nil, errors.StorageFailure(p.Name(), "create book", err)
	}

	return book, nil
}

// GetBook retrieves a single book by ID
func (p *PostgresBackend) GetBook(ctx context.Context, id string) (*books.Book, error) {
	bookID, ok := normalizeUUID(id)
	if !ok {
		return nil, nil // Malformed ids cannot match any stored record
	}

	row := p.pool.QueryRow(ctx, `
		SELECT id::text, title, author, year, created_on
		FROM books
		WHERE id = $1
	`, bookID)

	book, err := scanPostgresBook(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Book not found
		}
		return nil, errors.StorageFailure(p.Name(), "get book", err)
	}

	return book, nil
}

// ListBooks returns books ordered by creation time descending
func (p *PostgresBackend) ListBooks(ctx context.Context, skip, limit int) ([]books.Book, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, title, author, year, created_on
		FROM books
		ORDER BY created_on DESC
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, errors.StorageFailure(p.Name(), "list books", err)
	}
	defer rows.Close()

	result, err := collectPostgresBooks(rows)
	if err != nil {
		return nil, errors.StorageFailure(p.Name(), "list books", err)
	}
	return result, nil
}

// UpdateBook applies the provided fields in a single UPDATE ... RETURNING
// round trip, so the returned record is the authoritative post-update state
func (p *PostgresBackend) UpdateBook(ctx context.Context, id string, upd books.BookUpdate) (*books.Book, error) {
	if upd.IsEmpty() {
		return p.GetBook(ctx, id)
	}

	bookID, ok := normalizeUUID(id)
	if !ok {
		return nil, nil
	}

	var sets []string
	var args []interface{}
	if upd.Title != nil {
		args = append(args, *upd.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if upd.Author != nil {
		args = append(args, *upd.Author)
		sets = append(sets, fmt.Sprintf("author = $%d", len(args)))
	}
	if upd.Year != nil {
		args = append(args, *upd.Year)
		sets = append(sets, fmt.Sprintf("year = $%d", len(args)))
	}
	args = append(args, bookID)

	row := p.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE books SET %s
		WHERE id = $%d
		RETURNING id::text, title, author, year, created_on
	`, strings.Join(sets, ", "), len(args)), args...)

	book, err := scanPostgresBook(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Book not found
		}
		return nil, errors.StorageFailure(p.Name(), "update book", err)
	}

	return book, nil
}

// DeleteBook removes a book record, reporting whether one was removed
func (p *PostgresBackend) DeleteBook(ctx context.Context, id string) (bool, error) {
	bookID, ok := normalizeUUID(id)
	if !ok {
		return false, nil
	}

	tag, err := p.pool.Exec(ctx, "DELETE FROM books WHERE id = $1", bookID)
	if err != nil {
		return false, errors.StorageFailure(p.Name(), "delete book", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SearchBooks filters books by the provided fields using ILIKE for the
// case-insensitive substring matches
func (p *PostgresBackend) SearchBooks(ctx context.Context, filter books.BookFilter) ([]books.Book, error) {
	query := "SELECT id::text, title, author, year, created_on FROM books"

	var conds []string
	var args []interface{}
	if filter.Title != nil {
		args = append(args, "%"+*filter.Title+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.Author != nil {
		args = append(args, "%"+*filter.Author+"%")
		conds = append(conds, fmt.Sprintf("author ILIKE $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_on DESC"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageFailure(p.Name(), "search books", err)
	}
	defer rows.Close()

	result, err := collectPostgresBooks(rows)
	if err != nil {
		return nil, errors.StorageFailure(p.Name(), "search books", err)
	}
	return result, nil
}

// HealthCheck tests connectivity with a trivial query
func (p *PostgresBackend) HealthCheck(ctx context.Context) books.HealthStatus {
	status := books.HealthStatus{
		Adapter:   p.Name(),
		Status:    books.StatusHealthy,
		Timestamp: time.Now().UTC(),
	}

	var one int
	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		status.Status = books.StatusUnhealthy
		status.Error = err.Error()
	}

	return status
}

// Close releases the connection pool
func (p *PostgresBackend) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// normalizeUUID parses id and returns its canonical textual form. Lookups
// with malformed identifiers are treated as not-found rather than as query
// errors.
func normalizeUUID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func scanPostgresBook(row pgx.Row) (*books.Book, error) {
	var book books.Book
	var createdOn time.Time

	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Year, &createdOn)
	if err != nil {
		return nil, err
	}

	book.CreatedOn = &createdOn
	return &book, nil
}

func collectPostgresBooks(rows pgx.Rows) ([]books.Book, error) {
	result := []books.Book{}
	for rows.Next() {
		book, err := scanPostgresBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
