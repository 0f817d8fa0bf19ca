// Command server runs the Catalyst Hub API: authentication, profiles,
// habit and toolbox trackers, the skill radar, and Stripe billing
// including the webhook endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/human-catalyst/catalyst-hub/config"
	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/application/eventhandler"
	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/external/stripe"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/messaging"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/persistence/postgres"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/persistence/redis"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/service"
	httpserver "github.com/human-catalyst/catalyst-hub/internal/interface/http"
	"github.com/human-catalyst/catalyst-hub/internal/interface/http/handlers"
	"github.com/human-catalyst/catalyst-hub/pkg/logger"
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
	log.Info("starting Catalyst Hub API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

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
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS
	// Sessions live in Redis, so the API cannot run without it.
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Redis.Disabled {
		return errors.New("redis is required: sessions are stored in Redis")
	}

	log.Info("connecting to Redis...")
	redisCache, err := redis.NewCache(redisCacheConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisCache.Close()
	log.Info("Redis connection established")

	sessionStore := redis.NewSessionStore(redisCache)
	profileCache := redis.NewProfileCache(redisCache)
	catalogCache := redis.NewCatalogCache(redisCache)
	dashboardCache := redis.NewDashboardCache(redisCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	profileRepo := postgres.NewProfileRepository(dbConn)
	subscriptionRepo := postgres.NewSubscriptionRepository(dbConn)
	billingEventLog := postgres.NewBillingEventLog(dbConn)
	libraryRepo := postgres.NewMasteryLibraryRepository(dbConn)
	habitRepo := postgres.NewHabitRepository(dbConn)
	toolboxRepo := postgres.NewToolboxRepository(dbConn)
	catalogRepo := postgres.NewSkillCatalogRepository(dbConn)
	progressRepo := postgres.NewSkillProgressRepository(dbConn)

	reconcileUoW := postgres.NewReconcileUnitOfWork(dbConn, profileRepo, subscriptionRepo, billingEventLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. STRIPE CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Stripe client...")
	stripeClient := stripe.NewClient(stripeClientConfig(cfg, log))
	webhookDecoder := stripe.NewWebhookDecoder(stripeClient.WebhookSecret())
	billingGateway := service.NewBillingGatewayAdapter(stripeClient)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	catalogService := query.NewCatalogService(catalogRepo, catalogCache)

	// Queries
	getProfile := query.NewGetProfileHandler(profileRepo, profileCache)
	getSkillMatrix := query.NewGetSkillMatrixHandler(catalogService, progressRepo)
	getLevelProgress := query.NewGetLevelProgressHandler(profileRepo, catalogService)
	listHabits := query.NewListHabitsHandler(libraryRepo, habitRepo)
	listToolbox := query.NewListToolboxHandler(libraryRepo, toolboxRepo)

	var assembledDashboardCache query.DashboardCache
	if cfg.Features.IsEnabled(config.FeatureDashboardCache, nil) {
		assembledDashboardCache = dashboardCache
	}
	getDashboard := query.NewGetDashboardHandler(getProfile, getSkillMatrix, listHabits, listToolbox, assembledDashboardCache)

	// Commands
	awardXP := command.NewAwardXPHandler(profileRepo, progressRepo, catalogService, eventBus)

	registerUser := command.NewRegisterUserHandler(profileRepo, sessionStore, eventBus, cfg.HTTP.SessionTTL)
	authenticate := command.NewAuthenticateHandler(profileRepo, sessionStore, cfg.HTTP.SessionTTL)
	logout := command.NewLogoutHandler(sessionStore)
	updateProfile := command.NewUpdateProfileHandler(profileRepo, profileCache)

	adoptHabit := command.NewAdoptHabitHandler(libraryRepo, habitRepo)
	archiveHabit := command.NewArchiveHabitHandler(habitRepo)
	completeHabit := command.NewCompleteHabitHandler(habitRepo, awardXP, eventBus)
	addTool := command.NewAddToolHandler(libraryRepo, toolboxRepo)
	useTool := command.NewUseToolHandler(toolboxRepo, awardXP, eventBus)

	ensureCustomer := command.NewEnsureCustomerHandler(profileRepo, billingGateway)
	startCheckout := command.NewStartCheckoutHandler(ensureCustomer, billingGateway)
	confirmCheckout := command.NewConfirmCheckoutHandler(profileRepo, subscriptionRepo, billingGateway, eventBus)
	openPortal := command.NewOpenPortalHandler(profileRepo, billingGateway)
	reconcileBilling := command.NewReconcileBillingEventHandler(
		profileRepo, subscriptionRepo, billingEventLog, reconcileUoW, eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. EVENT HANDLERS
	// Habit completions and tool usages feed the skill radar out of band.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))

	onHabitCompleted := eventhandler.NewOnHabitCompletedHandler(libraryRepo, progressRepo, profileCache, log)
	onToolUsed := eventhandler.NewOnToolUsedHandler(libraryRepo, progressRepo, profileCache, log)

	if err := dispatcher.Register(shared.EventHabitCompleted, "award_skill_points", onHabitCompleted.Handle); err != nil {
		return fmt.Errorf("failed to register habit handler: %w", err)
	}
	if err := dispatcher.Register(shared.EventToolUsed, "award_skill_points", onToolUsed.Handle); err != nil {
		return fmt.Errorf("failed to register tool handler: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.SessionTTL = cfg.HTTP.SessionTTL
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

	httpDeps := httpserver.Dependencies{
		RegisterUserHandler:     registerUser,
		AuthenticateHandler:     authenticate,
		LogoutHandler:           logout,
		UpdateProfileHandler:    updateProfile,
		AdoptHabitHandler:       adoptHabit,
		ArchiveHabitHandler:     archiveHabit,
		CompleteHabitHandler:    completeHabit,
		AddToolHandler:          addTool,
		UseToolHandler:          useTool,
		EnsureCustomerHandler:   ensureCustomer,
		StartCheckoutHandler:    startCheckout,
		ConfirmCheckoutHandler:  confirmCheckout,
		OpenPortalHandler:       openPortal,
		ReconcileBillingHandler: reconcileBilling,

		GetProfileHandler:       getProfile,
		GetDashboardHandler:     getDashboard,
		GetSkillMatrixHandler:   getSkillMatrix,
		GetLevelProgressHandler: getLevelProgress,
		ListHabitsHandler:       listHabits,
		ListToolboxHandler:      listToolbox,

		Sessions:       sessionStore,
		WebhookDecoder: webhookDecoder,
		Logger:         logger.New(logger.Options{Level: logger.ParseLevel(cfg.Observability.LogLevel)}),
		HealthChecker:  healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Catalyst Hub API is running", "http_address", httpServer.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Dispatcher, event bus, Redis and the database close via defers.

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
