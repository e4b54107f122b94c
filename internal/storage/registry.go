package storage

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/errors"
	"github.com/JamesPrial/bookstore-api/pkg/logging"
)

// Constructor builds a backend instance. Constructors run lazily, on the
// first Resolve for their name.
type Constructor func(ctx context.Context) (Backend, error)

// Registry maps adapter names to constructors and caches one live instance
// per name. Constructions happen under the registry lock, so concurrent
// Resolve calls for the same name produce exactly one instance.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Constructor
	instances map[string]Backend
	logger    *slog.Logger
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Constructor),
		instances: make(map[string]Backend),
		logger:    logging.GetGlobalLogger("storage.registry"),
	}
}

// Register adds a named adapter constructor. Registering a name twice fails;
// call Unregister first to replace an adapter.
func (r *Registry) Register(name string, ctor Constructor) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrCodeAdapterTypeMismatch, "adapter name cannot be empty")
	}
	if ctor == nil {
		return errors.Newf(errors.ErrCodeAdapterTypeMismatch, "adapter '%s' constructor cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeAdapterDuplicate, "adapter '%s' is already registered", name)
	}
	r.factories[name] = ctor

	r.logger.Debug("Registered adapter", slog.String("adapter", name))
	return nil
}

// Unregister removes the registration and any cached instance for name,
// closing the instance if one exists. Unregistering an unknown name is a
// no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.factories, name)
	r.closeInstanceLocked(name)
}

// Resolve returns the live instance for name, constructing and caching it on
// first use. Construction runs under the registry lock: two concurrent
// resolves of the same name never build two instances.
func (r *Registry) Resolve(ctx context.Context, name string) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if instance, ok := r.instances[name]; ok {
		return instance, nil
	}

	ctor, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeAdapterUnknown,
			"adapter '%s' is not registered, available adapters: [%s]",
			name, strings.Join(r.registeredLocked(), ", "))
	}

	instance, err := ctor(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageInitialization,
			"failed to construct adapter '%s': %v", name, err)
	}
	r.instances[name] = instance

	r.logger.Info("Constructed adapter instance", slog.String("adapter", name))
	return instance, nil
}

// Registered returns the sorted names of all registered adapters
func (r *Registry) Registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registeredLocked()
}

func (r *Registry) registeredLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetInstances closes and drops all cached instances. Registrations
// survive, so the next Resolve constructs a fresh instance.
func (r *Registry) ResetInstances() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name := range r.instances {
		r.closeInstanceLocked(name)
	}
}

// Clear drops all registrations and cached instances
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name := range r.instances {
		r.closeInstanceLocked(name)
	}
	r.factories = make(map[string]Constructor)
}

// Close tears down all cached instances; used at process shutdown
func (r *Registry) Close() {
	r.ResetInstances()
}

func (r *Registry) closeInstanceLocked(name string) {
	instance, ok := r.instances[name]
	if !ok {
		return
	}
	if err := instance.Close(); err != nil {
		r.logger.Warn("Error closing adapter instance",
			slog.String("adapter", name),
			slog.String("error", err.Error()),
		)
	}
	delete(r.instances, name)
}

// FromConfig resolves the adapter selected by the configuration. This is the
// only binding between the configuration surface and the registry; it holds
// no state of its own.
func (r *Registry) FromConfig(ctx context.Context, cfg *config.Settings) (Backend, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "configuration cannot be nil")
	}
	return r.Resolve(ctx, cfg.DatabaseType)
}

// RegisterDefaults registers the built-in adapters against the connection
// settings in cfg. Constructors validate their own settings lazily, so an
// unselected backend with no DSN registers fine and only fails if resolved.
func RegisterDefaults(r *Registry, cfg *config.Settings) error {
	if cfg == nil {
		return errors.New(errors.ErrCodeConfiguration, "configuration cannot be nil")
	}

	if err := r.Register(config.BackendPostgres, func(ctx context.Context) (Backend, error) {
		return NewPostgresBackend(ctx, cfg.Postgres)
	}); err != nil {
		return err
	}
	if err := r.Register(config.BackendMySQL, func(ctx context.Context) (Backend, error) {
		return NewMySQLBackend(ctx, cfg.MySQL)
	}); err != nil {
		return err
	}
	return r.Register(config.BackendSQLite, func(ctx context.Context) (Backend, error) {
		return NewSqliteBackend(cfg.Sqlite)
	})
}
