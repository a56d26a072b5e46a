// Package app is the composition root. New builds exactly one store and
// hands it to every component, in a fixed order:
//
//	config → storage → schema → store → router + tracker → persistence
//	      → effects → debug recorder → facade
//
// Persistence is wired before anything else subscribes, so the first
// snapshot observed by effects and the recorder is already hydrated.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/statecore/internal/config"
	"github.com/roach88/statecore/internal/debug"
	"github.com/roach88/statecore/internal/effects"
	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/facade"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/persist"
	"github.com/roach88/statecore/internal/router"
	"github.com/roach88/statecore/internal/state"
	"github.com/roach88/statecore/internal/store"
)

// App holds the running components.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Store     *engine.Store
	Router    *router.Memory
	Persist   *persist.Adapter
	Effects   *effects.Runner
	Recorder  *debug.Recorder // nil unless DevMode
	Facade    *facade.Facade
	Analytics effects.Analytics

	// Session identifies this process in the stored debug history.
	Session string

	db      *store.Store
	tracker *router.Tracker
}

type options struct {
	logger    *slog.Logger
	routes    []router.Route
	analytics effects.Analytics
	storage   persist.Storage
	ids       engine.IDGenerator
	now       engine.NowFunc
	session   string
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger for every component. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRoutes sets the router's route table. An empty table accepts any path.
func WithRoutes(routes ...router.Route) Option {
	return func(o *options) { o.routes = routes }
}

// WithAnalytics sets the analytics collaborator. Default: log events.
func WithAnalytics(a effects.Analytics) Option {
	return func(o *options) { o.analytics = a }
}

// WithStorage overrides the durable storage chosen from the config.
func WithStorage(s persist.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithIDGenerator sets the notification id generator.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithNow sets the clock used for notification and history timestamps.
func WithNow(now engine.NowFunc) Option {
	return func(o *options) { o.now = now }
}

// WithSession sets the debug history session id. Default: a new UUIDv7.
func WithSession(id string) Option {
	return func(o *options) { o.session = id }
}

// New builds the application. Close releases everything New acquired, also
// when New fails part way.
func New(ctx context.Context, cfg config.Config, opts ...Option) (a *App, err error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	a = &App{Config: cfg, Logger: o.logger, Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	// Storage
	storage := o.storage
	if storage == nil {
		if cfg.DBPath != "" {
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return nil, fmt.Errorf("open storage: %w", err)
			}
			a.db = db
			storage = db
		} else {
			storage = persist.NewMemoryStorage(nil)
		}
	}

	// Schema
	schema, err := state.NewSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	var overlay ir.IRObject
	if cfg.InitialState != "" {
		overlay, err = schema.LoadOverlay(cfg.InitialState)
		if err != nil {
			return nil, fmt.Errorf("load initial state: %w", err)
		}
	}

	// Store
	storeMetrics, err := engine.NewMetrics(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("register store metrics: %w", err)
	}
	storeOpts := []engine.Option{
		engine.WithLogger(o.logger.With("component", "store")),
		engine.WithMetrics(storeMetrics),
		engine.WithIDGenerator(o.ids),
		engine.WithNow(o.now),
	}
	if overlay != nil {
		storeOpts = append(storeOpts, engine.WithInitialOverlay(overlay))
	}
	if cfg.StrictSchema {
		storeOpts = append(storeOpts, engine.WithValidator(schema))
	}
	a.Store, err = engine.New(storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	// Router
	a.Router = router.NewMemory(
		router.WithRoutes(o.routes...),
		router.WithLogger(o.logger.With("component", "router")),
	)
	a.tracker = router.Track(a.Router, a.Store, o.logger.With("component", "tracker"))

	// Persistence
	persistMetrics, err := persist.NewMetrics(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("register persistence metrics: %w", err)
	}
	persistOpts := []persist.Option{
		persist.WithLogger(o.logger.With("component", "persist")),
		persist.WithDebounce(cfg.PersistDebounce),
		persist.WithMetrics(persistMetrics),
	}
	if cfg.StrictSchema {
		persistOpts = append(persistOpts, persist.WithValidator(schema))
	}
	a.Persist = persist.New(ctx, a.Store, storage, persistOpts...)

	// Effects
	a.Analytics = o.analytics
	if a.Analytics == nil {
		a.Analytics = effects.LogAnalytics{Logger: o.logger.With("component", "analytics")}
	}
	a.Effects = effects.Start(ctx, a.Store, a.Router, a.Analytics,
		effects.WithLoginPath(cfg.LoginPath),
		effects.WithLogger(o.logger.With("component", "effects")),
	)

	// Debug
	a.Session = o.session
	if a.Session == "" {
		a.Session = engine.UUIDv7Generator{}.Generate()
	}
	if cfg.DevMode {
		recOpts := []debug.Option{
			debug.WithLogger(o.logger.With("component", "debug")),
			debug.WithCapacity(cfg.HistoryCapacity),
			debug.WithNow(o.now),
		}
		if a.db != nil {
			recOpts = append(recOpts, debug.WithSink(a.db, a.Session))
		}
		a.Recorder = debug.New(ctx, a.Store, recOpts...)
	}

	// Facade
	a.Facade = facade.New(a.Store, a.Router,
		facade.WithLogger(o.logger.With("component", "facade")),
		facade.WithThemeStore(a.Persist),
		facade.WithSystemPreference(func() bool { return cfg.PrefersDark }),
	)

	o.logger.Info("state store ready",
		"dev_mode", cfg.DevMode,
		"db", cfg.DBPath,
		"strict_schema", cfg.StrictSchema,
		"session", a.Session)
	return a, nil
}

// Debug returns the debug handle, or nil when dev mode is off.
func (a *App) Debug() *debug.Handle {
	if a.Recorder == nil {
		return nil
	}
	return a.Recorder.Handle()
}

// Settle waits until every published snapshot has been delivered.
func (a *App) Settle(ctx context.Context) error {
	return a.Store.Settle(ctx)
}

// Close stops every component in reverse construction order. Pending
// persistence writes are flushed first. Close is idempotent.
func (a *App) Close() error {
	var errs []error
	if a.Effects != nil {
		a.Effects.Close()
	}
	if a.Recorder != nil {
		a.Recorder.Close()
	}
	if a.tracker != nil {
		a.tracker.Close()
	}
	if a.Persist != nil {
		if err := a.Persist.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		a.db = nil
	}
	return errors.Join(errs...)
}
