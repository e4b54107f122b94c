package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JamesPrial/bookstore-api/pkg/books"
	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/errors"
)

// SqliteBackend stores books in an embedded SQLite database. Identifiers are
// textual UUIDs; substring search relies on COLLATE NOCASE.
type SqliteBackend struct {
	db *sql.DB
}

// NewSqliteBackend creates a new SQLite backend from the given settings
func NewSqliteBackend(cfg config.SqliteSettings) (Backend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "sqlite path is required")
	}

	// Configure connection string with appropriate settings
	connStr := cfg.Path
	if cfg.WALMode {
		connStr += "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=true"
	} else {
		connStr += "?_synchronous=FULL&_foreign_keys=true"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "failed to open database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "failed to ping database: %v", err)
	}

	backend := &SqliteBackend{db: db}

	// Initialize the database schema
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageInitialization, "failed to initialize schema: %v", err)
	}

	return backend, nil
}

// initSchema creates the books table
func (s *SqliteBackend) initSchema() error {
	createBooksTable := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		year INTEGER NOT NULL,
		created_on DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_books_created_on ON books(created_on);
	`

	_, err := s.db.Exec(createBooksTable)
	return err
}

// Name returns the backend identifier
func (s *SqliteBackend) Name() string {
	return config.BackendSQLite
}

// CreateBook inserts a new book record
func (s *SqliteBackend) CreateBook(ctx context.Context, title, author string, year int) (*books.Book, error) {
	book := books.Book{
		ID:     uuid.NewString(),
		Title:  title,
		Author: author,
		Year:   year,
	}
	createdOn := time.Now().UTC()
	book.CreatedOn = &createdOn

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, year, created_on)
		VALUES (?, ?, ?, ?, ?)
	`, book.ID, book.Title, book.Author, book.Year, createdOn)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "create book", err)
	}

	return &book, nil
}

// GetBook retrieves a single book by ID
func (s *SqliteBackend) GetBook(ctx context.Context, id string) (*books.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, year, created_on
		FROM books
		WHERE id = ?
	`, id)

	book, err := scanSqliteBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Book not found
		}
		return nil, errors.StorageFailure(s.Name(), "get book", err)
	}

	return book, nil
}

// ListBooks returns books ordered by creation time descending
func (s *SqliteBackend) ListBooks(ctx context.Context, skip, limit int) ([]books.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, author, year, created_on
		FROM books
		ORDER BY created_on DESC
		LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "list books", err)
	}
	defer rows.Close()

	result, err := collectSqliteBooks(rows)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "list books", err)
	}
	return result, nil
}

// UpdateBook applies the provided fields and re-reads the record inside one
// transaction so the returned state is authoritative
func (s *SqliteBackend) UpdateBook(ctx context.Context, id string, upd books.BookUpdate) (*books.Book, error) {
	if upd.IsEmpty() {
		return s.GetBook(ctx, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "update book", err)
	}
	defer tx.Rollback()

	var sets []string
	var args []interface{}
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *upd.Author)
	}
	if upd.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *upd.Year)
	}
	args = append(args, id)

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE books SET %s WHERE id = ?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "update book", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "update book", err)
	}
	if affected == 0 {
		return nil, nil // Book not found
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, author, year, created_on
		FROM books
		WHERE id = ?
	`, id)
	book, err := scanSqliteBook(row)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "update book", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.StorageFailure(s.Name(), "update book", err)
	}

	return book, nil
}

// DeleteBook removes a book record, reporting whether one was removed
func (s *SqliteBackend) DeleteBook(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return false, errors.StorageFailure(s.Name(), "delete book", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.StorageFailure(s.Name(), "delete book", err)
	}

	return affected > 0, nil
}

// SearchBooks filters books by the provided fields; title and author match
// case-insensitively as substrings, year matches exactly
func (s *SqliteBackend) SearchBooks(ctx context.Context, filter books.BookFilter) ([]books.Book, error) {
	query := "SELECT id, title, author, year, created_on FROM books"

	var conds []string
	var args []interface{}
	if filter.Title != nil {
		conds = append(conds, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+*filter.Title+"%")
	}
	if filter.Author != nil {
		conds = append(conds, "author LIKE ? COLLATE NOCASE")
		args = append(args, "%"+*filter.Author+"%")
	}
	if filter.Year != nil {
		conds = append(conds, "year = ?")
		args = append(args, *filter.Year)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_on DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "search books", err)
	}
	defer rows.Close()

	result, err := collectSqliteBooks(rows)
	if err != nil {
		return nil, errors.StorageFailure(s.Name(), "search books", err)
	}
	return result, nil
}

// HealthCheck tests connectivity with a trivial query
func (s *SqliteBackend) HealthCheck(ctx context.Context) books.HealthStatus {
	status := books.HealthStatus{
		Adapter:   s.Name(),
		Status:    books.StatusHealthy,
		Timestamp: time.Now().UTC(),
	}

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		status.Status = books.StatusUnhealthy
		status.Error = err.Error()
	}

	return status
}

// Close closes the database connection
func (s *SqliteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSqliteBook(row rowScanner) (*books.Book, error) {
	var book books.Book
	var createdOn time.Time

	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Year, &createdOn)
	if err != nil {
		return nil, err
	}

	book.CreatedOn = &createdOn
	return &book, nil
}

func collectSqliteBooks(rows *sql.Rows) ([]books.Book, error) {
	result := []books.Book{}
	for rows.Next() {
		book, err := scanSqliteBook(rows)
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
