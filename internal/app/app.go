package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/snuggle-app/snuggle-core/config"
	"github.com/snuggle-app/snuggle-core/internal/application/command"
	"github.com/snuggle-app/snuggle-core/internal/application/eventhandler"
	"github.com/snuggle-app/snuggle-core/internal/application/query"
	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/messaging"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/memory"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/postgres"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/redis"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/sqlite"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/scheduler"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/scheduler/jobs"
	"github.com/snuggle-app/snuggle-core/pkg/circuitbreaker"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
)

// Options tune wiring that differs between the CLI and the worker.
type Options struct {
	// AsyncEvents runs event handlers on the bus worker pool. The CLI keeps
	// it off so celebrations are ready before the command returns.
	AsyncEvents bool

	// Sender delivers reminders. Nil means reminders are only logged.
	Sender notification.Sender
}

// App bundles stores, services and handlers.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Engine      *growth.Engine
	Children    baby.Repository
	Engagements engagement.Repository
	Outbox      notification.Outbox

	Bus          shared.EventBus
	Celebrations *eventhandler.CelebrationInbox

	EngagementService *command.EngagementService
	ChildService      *command.ChildService
	Summary           *query.EngagementSummaryHandler

	// Postgres is set only for the postgres driver.
	Postgres *postgres.Connection

	growth       *query.GrowthHandler
	strictGrowth *query.GrowthHandler
	sender       notification.Sender
	closers      []func() error
}

// New builds the dependency graph from cfg. Close releases it.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}

	engine, err := growth.NewEngine(
		growth.WithLogger(log),
		growth.WithGenderFallback(cfg.Growth.GenderFallback),
	)
	if err != nil {
		return nil, fmt.Errorf("growth engine: %w", err)
	}
	a.Engine = engine

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	cache := a.openCache(ctx)
	if cache != nil && cfg.Features.IsEnabled(config.FeatureEngagementCache, nil) {
		a.Engagements = redis.NewCachedEngagementRepository(a.Engagements, cache, nil, log, cfg.Redis.CacheTTL)
		log.Info("engagement cache enabled", logger.Duration("ttl", cfg.Redis.CacheTTL))
	}

	a.Bus = a.openBus(ctx, cache, opts.AsyncEvents)

	a.Celebrations = eventhandler.NewCelebrationInbox()
	var celebrations *eventhandler.CelebrationHandler
	if cfg.Features.IsEnabled(config.FeatureCelebrations, nil) {
		celebrations = eventhandler.NewCelebrationHandler(a.Celebrations, log)
	}
	var reminders *eventhandler.ReminderHandler
	if cfg.Features.IsEnabled(config.FeatureNextPhotoReminder, nil) {
		reminders = eventhandler.NewReminderHandler(a.Outbox, log)
	}
	if err := eventhandler.Subscribe(a.Bus, celebrations, reminders); err != nil {
		a.Close()
		return nil, fmt.Errorf("subscribe handlers: %w", err)
	}

	a.EngagementService = command.NewEngagementService(a.Engagements, a.Children, a.Bus, log, command.EngagementServiceConfig{
		Calendar:           cfg.Calendar(),
		MaxConflictRetries: cfg.Engagement.MaxConflictRetries,
	})
	a.ChildService = command.NewChildService(a.Children, a.Outbox, engine, a.Bus, log, command.ChildServiceConfig{})
	a.Summary = query.NewEngagementSummaryHandler(a.Engagements, cfg.Calendar(), nil)
	a.growth = query.NewGrowthHandler(a.Children, engine, log, query.GrowthConfig{Calendar: cfg.Calendar()})
	a.strictGrowth = query.NewGrowthHandler(a.Children, engine, log, query.GrowthConfig{Calendar: cfg.Calendar(), Strict: true})

	a.sender = opts.Sender
	if a.sender == nil {
		a.sender = jobs.LogSender{Log: log.With(logger.Component("reminders"))}
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		a.Children = memory.NewChildRepository()
		a.Engagements = memory.NewEngagementRepository()
		a.Outbox = memory.NewOutbox()

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path, a.Log)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Children = sqlite.NewChildRepository(store)
		a.Engagements = sqlite.NewEngagementRepository(store)
		a.Outbox = sqlite.NewOutbox(store)

	case config.DriverPostgres:
		conn, err := postgres.NewConnection(ctx, cfg.PostgresConfig(), a.Log)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		if _, err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		a.Postgres = conn
		a.Children = postgres.NewChildRepository(conn)
		a.Engagements = postgres.NewEngagementRepository(conn)
		a.Outbox = postgres.NewOutbox(conn)

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	a.Log.Debug("store opened", logger.String("driver", string(cfg.Storage.Driver)))
	return nil
}

// openCache connects to Redis when enabled. Redis is optional, so a failed
// connection only disables caching.
func (a *App) openCache(ctx context.Context) *redis.Cache {
	if !a.Config.Redis.Enabled {
		return nil
	}
	cache, err := redis.NewCache(ctx, a.Config.RedisCacheConfig())
	if err != nil {
		a.Log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		return nil
	}
	a.closers = append(a.closers, cache.Close)
	return cache
}

func (a *App) openBus(ctx context.Context, cache *redis.Cache, async bool) shared.EventBus {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = a.Log
	local.AsyncMode = async

	if cache != nil && a.Config.Features.IsEnabled(config.FeatureRedisEventBus, nil) {
		bus, err := messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
			Client:         cache.Client(),
			ChannelName:    a.Config.Redis.EventChannel,
			LocalBusConfig: local,
			Logger:         a.Log,
		})
		if err == nil {
			a.closers = append(a.closers, bus.Close)
			return bus
		}
		a.Log.Warn("redis event bus unavailable, using in-memory bus", logger.Err(err))
	}

	bus := messaging.NewInMemoryEventBus(local)
	a.closers = append(a.closers, bus.Close)
	return bus
}

// Growth returns the growth query handler for userID. Strict mode is on when
// configured globally or rolled out to the user.
func (a *App) Growth(userID shared.UserID) *query.GrowthHandler {
	if a.Config.Growth.Strict || a.Config.Features.IsEnabled(config.FeatureGrowthStrictMode, config.ForUser(userID.String())) {
		return a.strictGrowth
	}
	return a.growth
}

// BusMetrics returns the event bus counters, or nil when the bus keeps none.
func (a *App) BusMetrics() *messaging.EventBusMetrics {
	if m, ok := a.Bus.(interface{ Metrics() *messaging.EventBusMetrics }); ok {
		return m.Metrics()
	}
	return nil
}

// ScheduleReminders reports whether new children of userID get the monthly
// photo schedule.
func (a *App) ScheduleReminders(userID shared.UserID) bool {
	return a.Config.Features.IsEnabled(config.FeatureMonthlyPhotoReminders, config.ForUser(userID.String()))
}

// DeliverJob builds the reminder delivery job. The sender sits behind a
// circuit breaker so an outage does not hammer the push service.
func (a *App) DeliverJob() *jobs.DeliverRemindersJob {
	log := a.Log
	breaker := circuitbreaker.SenderBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("sender breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	return jobs.NewDeliverRemindersJob(
		a.Outbox,
		jobs.BreakerSender{Sender: a.sender, Breaker: breaker},
		log,
		jobs.DeliverRemindersConfig{BatchSize: a.Config.Scheduler.BatchSize},
	)
}

// Scheduler builds the worker scheduler with every job registered.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	loc := a.Config.Calendar().Location()
	s := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:       a.Log,
		Timezone:     loc,
		TickInterval: a.Config.Scheduler.TickInterval,
	})
	schedule, err := scheduler.ParseCron(a.Config.Scheduler.DeliverCron, loc)
	if err != nil {
		return nil, fmt.Errorf("deliver schedule: %w", err)
	}
	if err := s.Register(a.DeliverJob(), schedule); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases everything New opened, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
