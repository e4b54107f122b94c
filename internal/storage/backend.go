package storage

import (
	"context"

	"github.com/JamesPrial/bookstore-api/pkg/books"
)

// Backend is the capability contract every storage adapter implements. All
// backends return the same normalized record shape regardless of the
// underlying dialect; identifiers cross this boundary only in their canonical
// textual form.
//
// Absence is signaled by a (nil, nil) return, never by an error. Operation
// failures surface as *errors.AppError with a storage code carrying the
// backend name and the wrapped cause; any partial write is rolled back before
// the error is returned.
type Backend interface {
	// CreateBook inserts a record with a freshly generated identifier and a
	// server-assigned creation timestamp, returning the full record.
	CreateBook(ctx context.Context, title, author string, year int) (*books.Book, error)

	// GetBook returns the matching record, or (nil, nil) if none exists.
	GetBook(ctx context.Context, id string) (*books.Book, error)

	// ListBooks returns records ordered by creation time descending. skip
	// offsets the ordered result and limit bounds the count; bounds
	// enforcement lives at the API boundary, not here.
	ListBooks(ctx context.Context, skip, limit int) ([]books.Book, error)

	// UpdateBook applies only the fields set in upd and returns the
	// authoritative post-update record, or (nil, nil) if the id does not
	// exist. An empty update is a plain read.
	UpdateBook(ctx context.Context, id string, upd books.BookUpdate) (*books.Book, error)

	// DeleteBook removes the record, reporting whether one was actually
	// removed. A missing id yields (false, nil), not an error.
	DeleteBook(ctx context.Context, id string) (bool, error)

	// SearchBooks returns records matching every provided filter field,
	// ordered by creation time descending.
	SearchBooks(ctx context.Context, filter books.BookFilter) ([]books.Book, error)

	// HealthCheck performs a trivial round-trip against the backend. It never
	// returns an error; failures are embedded in the status record so
	// liveness probes always get a response.
	HealthCheck(ctx context.Context) books.HealthStatus

	// Name returns the stable backend identifier, e.g. "postgresql".
	Name() string

	// Close releases the backend's connection pool.
	Close() error
}
