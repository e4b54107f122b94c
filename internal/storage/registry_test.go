package storage

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/bookstore-api/pkg/books"
	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/errors"
)

// stubBackend is a minimal Backend used to observe registry behavior
type stubBackend struct {
	name   string
	closed atomic.Bool
}

func (s *stubBackend) CreateBook(ctx context.Context, title, author string, year int) (*books.Book, error) {
	return nil, nil
}
func (s *stubBackend) GetBook(ctx context.Context, id string) (*books.Book, error) { return nil, nil }
func (s *stubBackend) ListBooks(ctx context.Context, skip, limit int) ([]books.Book, error) {
	return nil, nil
}
func (s *stubBackend) UpdateBook(ctx context.Context, id string, upd books.BookUpdate) (*books.Book, error) {
	return nil, nil
}
func (s *stubBackend) DeleteBook(ctx context.Context, id string) (bool, error) { return false, nil }
func (s *stubBackend) SearchBooks(ctx context.Context, filter books.BookFilter) ([]books.Book, error) {
	return nil, nil
}
func (s *stubBackend) HealthCheck(ctx context.Context) books.HealthStatus {
	return books.HealthStatus{Adapter: s.name, Status: books.StatusHealthy}
}
func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Close() error {
	s.closed.Store(true)
	return nil
}

func stubConstructor(name string, constructions *atomic.Int32) Constructor {
	return func(ctx context.Context) (Backend, error) {
		if constructions != nil {
			constructions.Add(1)
		}
		return &stubBackend{name: name}, nil
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", nil)))

	err := registry.Register("postgresql", stubConstructor("postgresql", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterDuplicate))
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register("postgresql", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterTypeMismatch))

	err = registry.Register("  ", stubConstructor("blank", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterTypeMismatch))
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", nil)))
	require.NoError(t, registry.Register("mysql", stubConstructor("mysql", nil)))

	backend, err := registry.Resolve(context.Background(), "oracle")
	require.Error(t, err)
	assert.Nil(t, backend)
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterUnknown))
	// The error lists the registered names so misconfigurations are obvious
	assert.Contains(t, err.Error(), "mysql")
	assert.Contains(t, err.Error(), "postgresql")
}

func TestRegistry_ResolveSingleton(t *testing.T) {
	registry := NewRegistry()
	var constructions atomic.Int32
	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", &constructions)))

	first, err := registry.Resolve(context.Background(), "postgresql")
	require.NoError(t, err)
	second, err := registry.Resolve(context.Background(), "postgresql")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), constructions.Load())
}

func TestRegistry_ResolveConcurrentSingleton(t *testing.T) {
	registry := NewRegistry()
	var constructions atomic.Int32

	// A slow constructor widens the check-then-create window
	require.NoError(t, registry.Register("postgresql", func(ctx context.Context) (Backend, error) {
		constructions.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &stubBackend{name: "postgresql"}, nil
	}))

	const goroutines = 20
	results := make([]Backend, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			backend, err := registry.Resolve(context.Background(), "postgresql")
			assert.NoError(t, err)
			results[i] = backend
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructions.Load(), "exactly one instance must be constructed")
	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRegistry_ConstructorFailureIsNotCached(t *testing.T) {
	registry := NewRegistry()
	var attempts atomic.Int32
	require.NoError(t, registry.Register("postgresql", func(ctx context.Context) (Backend, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New(errors.ErrCodeStorageConnection, "connection refused")
		}
		return &stubBackend{name: "postgresql"}, nil
	}))

	_, err := registry.Resolve(context.Background(), "postgresql")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeStorageInitialization))

	// A later resolve retries the constructor instead of caching the failure
	backend, err := registry.Resolve(context.Background(), "postgresql")
	require.NoError(t, err)
	assert.NotNil(t, backend)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRegistry_ResetInstances(t *testing.T) {
	registry := NewRegistry()
	var constructions atomic.Int32
	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", &constructions)))

	first, err := registry.Resolve(context.Background(), "postgresql")
	require.NoError(t, err)

	registry.ResetInstances()

	// The old instance is closed and the registration survives
	assert.True(t, first.(*stubBackend).closed.Load())
	assert.Equal(t, []string{"postgresql"}, registry.Registered())

	second, err := registry.Resolve(context.Background(), "postgresql")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), constructions.Load())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", nil)))

	instance, err := registry.Resolve(context.Background(), "postgresql")
	require.NoError(t, err)

	registry.Unregister("postgresql")

	assert.True(t, instance.(*stubBackend).closed.Load())
	assert.Empty(t, registry.Registered())
	_, err = registry.Resolve(context.Background(), "postgresql")
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterUnknown))

	// Unregistering an absent name is a no-op
	registry.Unregister("oracle")
}

func TestRegistry_Clear(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", nil)))
	require.NoError(t, registry.Register("mysql", stubConstructor("mysql", nil)))

	instance, err := registry.Resolve(context.Background(), "mysql")
	require.NoError(t, err)

	registry.Clear()

	assert.True(t, instance.(*stubBackend).closed.Load())
	assert.Empty(t, registry.Registered())
}

func TestRegistry_Registered_Sorted(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("sqlite", stubConstructor("sqlite", nil)))
	require.NoError(t, registry.Register("mysql", stubConstructor("mysql", nil)))
	require.NoError(t, registry.Register("postgresql", stubConstructor("postgresql", nil)))

	assert.Equal(t, []string{"mysql", "postgresql", "sqlite"}, registry.Registered())
}

func TestRegisterDefaults_AndFromConfig(t *testing.T) {
	cfg := &config.Settings{
		DatabaseType: config.BackendSQLite,
		Sqlite: config.SqliteSettings{
			Path:    filepath.Join(t.TempDir(), "books.db"),
			WALMode: true,
		},
	}

	registry := NewRegistry()
	require.NoError(t, RegisterDefaults(registry, cfg))
	defer registry.Close()

	assert.Equal(t, []string{"mysql", "postgresql", "sqlite"}, registry.Registered())

	backend, err := registry.FromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, backend.Name())

	// The unselected backends registered fine but fail lazily: no DSN
	_, err = registry.Resolve(context.Background(), config.BackendMySQL)
	require.Error(t, err)
}

func TestRegisterDefaults_NilConfig(t *testing.T) {
	registry := NewRegistry()
	err := RegisterDefaults(registry, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
}
