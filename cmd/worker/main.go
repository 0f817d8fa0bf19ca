// Command worker runs the Catalyst Hub background jobs:
//   - the nightly streak sweep over adopted habits
//   - the skill catalog cache warmup
//   - the subscription sweep against Stripe
//   - pruning of old processed billing webhook events
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/human-catalyst/catalyst-hub/config"
	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/external/stripe"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/messaging"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/persistence/postgres"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/persistence/redis"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/scheduler"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Catalyst Hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional, only the catalog warmup needs it)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(redisCacheConfig(cfg))
		if err != nil {
			log.Warn("failed to connect to Redis, catalog warmup disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	profileRepo := postgres.NewProfileRepository(dbConn)
	subscriptionRepo := postgres.NewSubscriptionRepository(dbConn)
	billingEventLog := postgres.NewBillingEventLog(dbConn)
	habitRepo := postgres.NewHabitRepository(dbConn)
	catalogRepo := postgres.NewSkillCatalogRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// Jobs publish streak breaks and subscription changes. The worker has
	// no subscribers of its own, the events go to logs and metrics.
	// ─────────────────────────────────────────────────────────────────────────
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. STRIPE CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Stripe client...")
	stripeClient := stripe.NewClient(stripeClientConfig(cfg, log))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")

	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	schedConfig.Timezone = cfg.App.Location
	sched := scheduler.NewScheduler(schedConfig)

	if cfg.Features.IsEnabled(config.FeatureMasteryStreaks, nil) {
		streaksConfig := jobs.DefaultRecomputeStreaksConfig()
		streaksConfig.Timeout = cfg.Scheduler.JobTimeout
		streaksJob := jobs.NewRecomputeStreaksJob(habitRepo, eventBus, log, streaksConfig)
		if err := sched.Register(streaksJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RecomputeStreaksInterval)); err != nil {
			return fmt.Errorf("failed to register streak sweep: %w", err)
		}
	}

	if redisCache != nil {
		catalogService := query.NewCatalogService(catalogRepo, redis.NewCatalogCache(redisCache))
		warmJob := jobs.NewWarmCatalogJob(catalogService, log, cfg.Scheduler.JobTimeout)
		if err := sched.Register(warmJob, scheduler.NewIntervalSchedule(cfg.Scheduler.WarmCatalogInterval)); err != nil {
			return fmt.Errorf("failed to register catalog warmup: %w", err)
		}
	}

	syncConfig := jobs.DefaultSyncSubscriptionsConfig()
	syncConfig.Timeout = cfg.Scheduler.JobTimeout
	syncJob := jobs.NewSyncSubscriptionsJob(subscriptionRepo, profileRepo, stripeClient, eventBus, log, syncConfig)
	if err := sched.Register(syncJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SyncSubscriptionsInterval)); err != nil {
		return fmt.Errorf("failed to register subscription sweep: %w", err)
	}

	pruneSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.PruneBillingCron)
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", cfg.Scheduler.PruneBillingCron, err)
	}
	pruneJob := jobs.NewPruneBillingEventsJob(billingEventLog, log, cfg.Scheduler.BillingEventRetention)
	if err := sched.Register(pruneJob, pruneSchedule); err != nil {
		return fmt.Errorf("failed to register billing event pruning: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. START
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("Catalyst Hub worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("stopping scheduler, waiting for running jobs...")
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging from the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Observability.LogLevel)}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redisCacheConfig maps the application config onto the cache config.
func redisCacheConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}

// stripeClientConfig maps the application config onto the Stripe client config.
func stripeClientConfig(cfg *config.Config, log *slog.Logger) stripe.ClientConfig {
	sc := stripe.DefaultClientConfig(cfg.Stripe.SecretKey)
	sc.WebhookSecret = cfg.Stripe.WebhookSecret
	sc.PriceIDStudentMonthly = cfg.Stripe.PriceStudentMonthly
	sc.PriceIDStudentYearly = cfg.Stripe.PriceStudentYearly
	sc.PriceIDTeacherMonthly = cfg.Stripe.PriceTeacherMonthly
	sc.PriceIDTeacherYearly = cfg.Stripe.PriceTeacherYearly
	sc.SuccessURL = cfg.Stripe.SuccessURL
	sc.CancelURL = cfg.Stripe.CancelURL
	sc.PortalReturnURL = cfg.Stripe.ReturnURL
	sc.Timeout = cfg.Stripe.RequestTimeout
	sc.MaxRetries = cfg.Stripe.MaxRetries
	sc.RetryBaseDelay = cfg.Stripe.RetryBaseDelay
	sc.RetryMaxDelay = cfg.Stripe.RetryMaxDelay
	sc.BreakerThreshold = cfg.Stripe.CircuitBreakerThreshold
	sc.BreakerTimeout = cfg.Stripe.CircuitBreakerTimeout
	sc.BreakerHalfOpenMax = cfg.Stripe.CircuitBreakerHalfOpenMax
	sc.Logger = log
	return sc
}
