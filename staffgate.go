package staffgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/staffgate/internal/config"
	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/internal/membership"
	"github.com/aretw0/staffgate/internal/metrics"
	"github.com/aretw0/staffgate/pkg/adapters/bolt"
	"github.com/aretw0/staffgate/pkg/adapters/file"
	loamAdapter "github.com/aretw0/staffgate/pkg/adapters/loam"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/staffgate/pkg/adapters/redis"
	"github.com/aretw0/staffgate/pkg/adapters/sqlite"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/persistence/middleware"
	"github.com/aretw0/staffgate/pkg/ports"
	"github.com/aretw0/staffgate/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// App is a fully wired membership engine together with the resources it
// owns. Close releases them.
type App struct {
	Engine   *membership.Engine
	Sessions *session.Manager
	// Store is the conversation store as the engine sees it, after the
	// encryption middleware.
	Store     ports.StateStore
	Directory ports.Directory
	Documents ports.DocumentLister
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	closers []io.Closer
}

// Option overrides one piece of the wiring.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	store     ports.StateStore
	directory ports.Directory
	documents ports.DocumentLister
	registry  *prometheus.Registry
	engine    []membership.Option
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore replaces the store selected by the configuration.
func WithStore(store ports.StateStore) Option {
	return func(o *options) { o.store = store }
}

// WithDirectory replaces the SQLite directory.
func WithDirectory(d ports.Directory) Option {
	return func(o *options) { o.directory = d }
}

// WithDocuments replaces the Loam document folder.
func WithDocuments(l ports.DocumentLister) Option {
	return func(o *options) { o.documents = l }
}

// WithMetricsRegistry registers collectors on reg instead of a fresh registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithEngineOptions passes extra options to the membership engine.
func WithEngineOptions(opts ...membership.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// New wires the engine described by cfg. messenger delivers the prompts.
func New(ctx context.Context, cfg config.Config, messenger ports.Messenger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if messenger == nil {
		return nil, errors.New("messenger is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	app := &App{Logger: o.logger, Metrics: metrics.New(o.registry)}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	store, locker, err := app.openStore(cfg, o.store)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey != "" {
		active, fallback, err := cfg.EncryptionKeys()
		if err != nil {
			return nil, err
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	app.Store = store

	sessionOpts := []session.Option{session.WithLogger(o.logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)

	app.Directory = o.directory
	if app.Directory == nil {
		dir, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, dir)
		app.Directory = dir
	}
	if seeder, isSeeder := app.Directory.(interface {
		SeedSuperuser(context.Context, domain.Identity) error
	}); isSeeder {
		if err := seeder.SeedSuperuser(ctx, cfg.Superuser()); err != nil {
			return nil, fmt.Errorf("seed superuser: %w", err)
		}
	}

	app.Documents = o.documents
	if app.Documents == nil {
		lister, err := loamAdapter.Open(cfg.DocumentsDir)
		if err != nil {
			return nil, err
		}
		app.Documents = lister
	}

	catalog, err := membership.LoadCatalog(cfg.MessagesPath)
	if err != nil {
		return nil, err
	}

	engineOpts := append([]membership.Option{
		membership.WithLogger(o.logger),
		membership.WithMetrics(app.Metrics),
		membership.WithCatalog(catalog),
	}, o.engine...)
	app.Engine, err = membership.New(membership.Deps{
		Sessions:  app.Sessions,
		Directory: app.Directory,
		Documents: app.Documents,
		Messenger: messenger,
		Superuser: cfg.Superuser(),
	}, engineOpts...)
	if err != nil {
		return nil, err
	}

	o.logger.Info("staffgate ready", "version", Version, "store", cfg.Store, "encrypted", cfg.EncryptionKey != "", "superuser", cfg.Superuser())
	ok = true
	return app, nil
}

func (a *App) openStore(cfg config.Config, override ports.StateStore) (ports.StateStore, ports.DistributedLocker, error) {
	if override != nil {
		return override, nil, nil
	}
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile:
		return file.New(cfg.StorePath), nil, nil
	case config.StoreBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store directory: %w", err)
		}
		store, err := bolt.Open(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil, nil
	case config.StoreRedis:
		store := redisAdapter.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redisAdapter.WithPrefix(cfg.RedisPrefix),
			redisAdapter.WithTTL(cfg.RedisTTL),
		)
		a.closers = append(a.closers, store)
		if !cfg.RedisLock {
			return store, nil, nil
		}
		return store, redisAdapter.NewLocker(store.Client(), cfg.RedisPrefix+"lock:"), nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Close releases databases and connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
