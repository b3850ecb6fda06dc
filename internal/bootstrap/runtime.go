// Package bootstrap assembles the post desk runtime from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"postdesk/internal/cache"
	"postdesk/internal/config"
	"postdesk/internal/database"
	"postdesk/internal/featureflags"
	"postdesk/internal/models"
	"postdesk/internal/notifications"
	"postdesk/internal/observability"
	"postdesk/internal/repository"
	"postdesk/internal/service"
	"postdesk/internal/storage"
)

// Runtime bundles the wired components.
type Runtime struct {
	Config   *config.Config
	Flags    *featureflags.Manager
	Backend  storage.Backend
	Posts    repository.PostRepository
	Toasts   *notifications.Bus
	Notifier *notifications.Notifier
	Service  *service.PostService

	closers []func(context.Context) error
}

// Option adjusts how New wires the runtime. Tests use it to inject fakes.
type Option func(*settings)

type settings struct {
	backend   storage.Backend
	ids       repository.IDGenerator
	clock     repository.Clock
	scheduler notifications.Scheduler
}

// WithBackend skips backend selection and uses b.
func WithBackend(b storage.Backend) Option {
	return func(s *settings) { s.backend = b }
}

// WithIDs sets the post id generator.
func WithIDs(ids repository.IDGenerator) Option {
	return func(s *settings) { s.ids = ids }
}

// WithClock sets the repository clock.
func WithClock(c repository.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithScheduler sets the toast timer implementation.
func WithScheduler(sched notifications.Scheduler) Option {
	return func(s *settings) { s.scheduler = sched }
}

// New builds a Runtime. Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}

	if cfg.LogLevel != "" {
		if err := observability.SetLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	rt := &Runtime{Config: cfg, Flags: featureflags.NewManager(cfg.FeatureFlags)}

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "postdesk",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, shutdown)

	backend := st.backend
	if backend == nil {
		backend, err = OpenBackend(ctx, cfg)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}
	rt.Backend = backend
	rt.closers = append(rt.closers, func(context.Context) error { return backend.Close() })

	rt.Posts = repository.NewPostRepository(ctx, storage.NewStore[[]models.Post](backend), repository.Options{
		Key:   cfg.StoreKey,
		IDs:   st.ids,
		Clock: st.clock,
		Flags: rt.Flags,
	})

	busOpts := []notifications.BusOption{notifications.WithDuration(cfg.ToastDuration())}
	if st.scheduler != nil {
		busOpts = append(busOpts, notifications.WithScheduler(st.scheduler))
	}
	if cfg.NotifyRedis || rt.Flags.On(featureflags.ToastFanout) {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			observability.GlobalLogger.Warn("toast fan-out disabled", slog.String("error", err.Error()))
		} else {
			rt.Notifier = notifications.NewNotifier(rdb)
			busOpts = append(busOpts, notifications.WithPublisher(rt.Notifier))
			rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
		}
	}
	rt.Toasts = notifications.NewBus(busOpts...)
	if rt.Notifier != nil {
		mirrorCtx, cancel := context.WithCancel(context.Background())
		if err := rt.Notifier.MirrorInto(mirrorCtx, rt.Toasts); err != nil {
			cancel()
			observability.GlobalLogger.Warn("remote toasts disabled", slog.String("error", err.Error()))
		} else {
			rt.closers = append(rt.closers, func(context.Context) error {
				cancel()
				return nil
			})
		}
	}
	rt.Service = service.NewPostService(rt.Posts, rt.Toasts)

	observability.GlobalLogger.Info("runtime ready",
		slog.String("backend", backend.Name()),
		slog.Int("posts", len(rt.Posts.Snapshot())),
		slog.Bool("toast_fanout", rt.Notifier != nil),
	)
	return rt, nil
}

// OpenBackend connects the storage backend named by cfg.StoreBackend.
func OpenBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return storage.NewMemoryBackend(), nil
	case config.BackendFile:
		return storage.NewFileBackend(cfg.StoreDir)
	case config.BackendSQLite, config.BackendPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		backend := storage.NewSQLBackend(db)
		if err := backend.Migrate(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
		return backend, nil
	case config.BackendRedis:
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisBackend(rdb), nil
	case config.BackendMongo:
		client, err := storage.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return storage.NewMongoBackend(client, cfg.MongoDatabase), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// Close releases everything New opened, newest first.
func (r *Runtime) Close(ctx context.Context) error {
	if r.Toasts != nil {
		r.Toasts.Dismiss()
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
