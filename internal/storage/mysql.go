package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/JamesPrial/bookstore-api/pkg/books"
	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/errors"
)

// MySQLBackend stores books in MySQL. Identifiers are fixed-length textual
// UUIDs; updates re-read the row inside the same transaction to return the
// authoritative state.
type MySQLBackend struct {
	db *sql.DB
}

// NewMySQLBackend creates a new MySQL backend from the given settings
func NewMySQLBackend(ctx context.Context, cfg config.MySQLSettings) (Backend, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "mysql dsn is required")
	}

	// DATETIME columns must come back as time.Time regardless of how the
	// DSN was written
	dsnCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeConfiguration, "invalid mysql dsn: %v", err)
	}
	dsnCfg.ParseTime = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "failed to open MySQL connection: %v", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "failed to ping MySQL database: %v", err)
	}

	backend := &MySQLBackend{db: db}

	// Initialize the database schema
	if err := backend.initSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageInitialization, "failed to initialize schema: %v", err)
	}

	return backend, nil
}

// initSchema creates the books table
func (m *MySQLBackend) initSchema(ctx context.Context) error {
	createBooksTable := `
	CREATE TABLE IF NOT EXISTS books (
		id CHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		year INT NOT NULL,
		created_on DATETIME(6) NOT NULL,
		INDEX idx_books_created_on (created_on)
	)`

	_, err := m.db.ExecContext(ctx, createBooksTable)
	return err
}

// Name returns the backend identifier
func (m *MySQLBackend) Name() string {
	return config.BackendMySQL
}

// CreateBook inserts a new book record
func (m *MySQLBackend) CreateBook(ctx context.Context, title, author string, year int) (*books.Book, error) {
	book := books.Book{
		ID:     uuid.NewString(),
		Title:  title,
		Author: author,
		Year:   year,
	}
	createdOn := time.Now().UTC()
	book.CreatedOn = &createdOn

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, year, created_on)
		VALUES (?, ?, ?, ?, ?)
	`, book.ID, book.Title, book.Author, book.Year, createdOn)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "create book", err)
	}

	return &book, nil
}

// GetBook retrieves a single book by ID
func (m *MySQLBackend) GetBook(ctx context.Context, id string) (*books.Book, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, title, author, year, created_on
		FROM books
		WHERE id = ?
	`, id)

	book, err := scanMySQLBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Book not found
		}
		return nil, errors.StorageFailure(m.Name(), "get book", err)
	}

	return book, nil
}

// ListBooks returns books ordered by creation time descending
func (m *MySQLBackend) ListBooks(ctx context.Context, skip, limit int) ([]books.Book, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, author, year, created_on
		FROM books
		ORDER BY created_on DESC
		LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "list books", err)
	}
	defer rows.Close()

	result, err := collectMySQLBooks(rows)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "list books", err)
	}
	return result, nil
}

// UpdateBook applies the provided fields and re-reads the record inside one
// transaction so the returned state is authoritative
func (m *MySQLBackend) UpdateBook(ctx context.Context, id string, upd books.BookUpdate) (*books.Book, error) {
	if upd.IsEmpty() {
		return m.GetBook(ctx, id)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "update book", err)
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

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE books SET %s WHERE id = ?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "update book", err)
	}

	// RowsAffected is 0 both for a missing row and for a no-op change, so
	// absence is decided by the re-read
	row := tx.QueryRowContext(ctx, `
		SELECT id, title, author, year, created_on
		FROM books
		WHERE id = ?
	`, id)
	book, err := scanMySQLBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Book not found
		}
		return nil, errors.StorageFailure(m.Name(), "update book", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.StorageFailure(m.Name(), "update book", err)
	}

	return book, nil
}

// DeleteBook removes a book record, reporting whether one was removed
func (m *MySQLBackend) DeleteBook(ctx context.Context, id string) (bool, error) {
	res, err := m.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return false, errors.StorageFailure(m.Name(), "delete book", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.StorageFailure(m.Name(), "delete book", err)
	}

	return affected > 0, nil
}

// SearchBooks filters books by the provided fields. Substring matches are
// forced case-insensitive via LOWER so the result does not depend on the
// table's collation.
func (m *MySQLBackend) SearchBooks(ctx context.Context, filter books.BookFilter) ([]books.Book, error) {
	query := "SELECT id, title, author, year, created_on FROM books"

	var conds []string
	var args []interface{}
	if filter.Title != nil {
		conds = append(conds, "LOWER(title) LIKE LOWER(?)")
		args = append(args, "%"+*filter.Title+"%")
	}
	if filter.Author != nil {
		conds = append(conds, "LOWER(author) LIKE LOWER(?)")
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

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "search books", err)
	}
	defer rows.Close()

	result, err := collectMySQLBooks(rows)
	if err != nil {
		return nil, errors.StorageFailure(m.Name(), "search books", err)
	}
	return result, nil
}

// HealthCheck tests connectivity with a trivial query
func (m *MySQLBackend) HealthCheck(ctx context.Context) books.HealthStatus {
	status := books.HealthStatus{
		Adapter:   m.Name(),
		Status:    books.StatusHealthy,
		Timestamp: time.Now().UTC(),
	}

	var one int
	if err := m.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		status.Status = books.StatusUnhealthy
		status.Error = err.Error()
	}

	return status
}

// Close closes the database connection
func (m *MySQLBackend) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func scanMySQLBook(row rowScanner) (*books.Book, error) {
	var book books.Book
	var createdOn time.Time

	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Year, &createdOn)
	if err != nil {
		return nil, err
	}

	book.CreatedOn = &createdOn
	return &book, nil
}

func collectMySQLBooks(rows *sql.Rows) ([]books.Book, error) {
	result := []books.Book{}
	for rows.Next() {
		book, err := scanMySQLBook(rows)
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
