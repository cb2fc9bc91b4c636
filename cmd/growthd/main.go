// Command growthd serves the infant growth-risk API.
//
// Startup order:
//  1. configuration and logger
//  2. growth standard table (a broken table stops the process)
//  3. PostgreSQL and migrations, Redis when enabled
//  4. advisory backend behind the circuit breaker and advice cache
//  5. assessment engine, command and query handlers
//  6. HTTP server until SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cradlecare/cradlecare-hub/config"
	"github.com/cradlecare/cradlecare-hub/internal/application/assessment"
	"github.com/cradlecare/cradlecare-hub/internal/application/command"
	"github.com/cradlecare/cradlecare-hub/internal/application/query"
	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/external/gemini"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/external/ollama"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/external/prompt"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/growthstd"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/messaging"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/metrics"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/persistence/postgres"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/persistence/redis"
	"github.com/cradlecare/cradlecare-hub/internal/infrastructure/service"
	httpapi "github.com/cradlecare/cradlecare-hub/internal/interface/http"
	"github.com/cradlecare/cradlecare-hub/internal/interface/http/handlers"
	"github.com/cradlecare/cradlecare-hub/pkg/circuitbreaker"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
	"github.com/cradlecare/cradlecare-hub/pkg/retry"
)

func main() {
	exportStandard := flag.String("export-standard", "",
		"print a built-in growth standard (who2006) as YAML and exit")
	flag.Parse()

	if *exportStandard != "" {
		if err := export(*exportStandard); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func export(source string) error {
	table, err := loadStandard(source, "")
	if err != nil {
		return err
	}
	st, ok := table.(*growth.SliceTable)
	if !ok {
		return fmt.Errorf("standard %q is computed and has no table to export", source)
	}
	out, err := growthstd.Export(st, "exported by growthd")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// loadStandard resolves the configured growth standard table.
func loadStandard(source, path string) (growth.Table, error) {
	switch source {
	case config.StandardWHO2006:
		return growth.WHO2006Table(), nil
	case config.StandardLinear:
		return growth.DefaultLinearApproxTable(), nil
	case config.StandardFile:
		t, err := growthstd.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, shared.NewDomainError("growth", "LoadStandard", shared.ErrConfiguration,
			fmt.Sprintf("unknown growth standard %q", source))
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
		Service:   cfg.App.Name,
	})
	defer func() { _ = log.Sync() }()

	log.Info("starting growthd",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Backend(cfg.Advisory.Backend),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. GROWTH STANDARD
	// ─────────────────────────────────────────────────────────────────────────
	table, err := loadStandard(cfg.Standard.Source, cfg.Standard.Path)
	if err != nil {
		return fmt.Errorf("failed to load growth standard: %w", err)
	}
	standardFields := []logger.Field{logger.String("standard_version", table.Version())}
	if st, ok := table.(*growth.SliceTable); ok {
		lo, hi := st.Range()
		standardFields = append(standardFields, logger.Int("min_age_months", lo), logger.Int("max_age_months", hi))
	}
	log.Info("growth standard loaded", standardFields...)

	m := metrics.New()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	pgCfg := postgres.DefaultConfig(cfg.Database.URL)
	pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgCfg.MinConns = int32(min(cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns))
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	startup := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("dependency not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})

	var db *postgres.Connection
	if err := startup.Do(ctx, func(ctx context.Context) error {
		db, err = postgres.NewConnection(ctx, pgCfg)
		return err
	}); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(db).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date", logger.Int("applied", applied))
	}

	infants := postgres.NewInfantRepository(db)
	records := postgres.NewGrowthRepository(db)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		cache, err = redis.NewCache(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, caching disabled", logger.Err(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = bus.Close() }()

	if err := bus.Subscribe(shared.EventReferralRaised, referralLogger(log)); err != nil {
		return fmt.Errorf("failed to subscribe referral logger: %w", err)
	}
	if cache != nil {
		relay := messaging.NewRedisRelay(cache, redis.ChannelEvents, cfg.App.Name)
		if err := bus.SubscribeAll(relay.Handle); err != nil {
			return fmt.Errorf("failed to subscribe redis relay: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ADVISORY GENERATOR
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version, table.Version())
	health.AddCheck("postgres", handlers.PingCheck(db))
	if cache != nil {
		health.AddOptionalCheck("redis", handlers.PingCheck(cache))
	}

	generator, closeGenerator, err := buildGenerator(ctx, cfg, cache, m, health, log)
	if err != nil {
		return fmt.Errorf("failed to set up advisory backend: %w", err)
	}
	defer closeGenerator()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ENGINE AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	engineOpts := []assessment.Option{
		assessment.WithTimeout(cfg.Advisory.Timeout),
		assessment.WithLogger(log),
		assessment.WithObserver(m),
	}
	if generator != nil {
		engineOpts = append(engineOpts, assessment.WithGenerator(generator))
	}
	engine, err := assessment.NewEngine(table, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create assessment engine: %w", err)
	}

	var (
		latestWrite command.LatestAssessmentCache
		latestRead  query.LatestAssessmentReader
	)
	if cache != nil {
		latest := redis.NewAssessmentCache(cache, redis.TTLLatestAssessment)
		latestWrite = latest
		if cfg.Features.IsEnabled(config.FeatureRiskStatusCache) {
			latestRead = latest
		}
	}

	recordGrowth := command.NewRecordGrowthHandler(infants, records, engine, command.RecordGrowthHandlerConfig{
		Cache:    latestWrite,
		Events:   bus,
		Failures: m,
		Logger:   log,
	})
	growthHistory := query.NewGetGrowthHistoryHandler(infants, records)
	riskStatus := query.NewGetRiskStatusHandler(infants, records, latestRead, log)
	infantList := query.NewListInfantsHandler(infants)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverCfg.APIKeys = cfg.HTTP.APIKeys
	serverCfg.MetricsPath = cfg.Observability.MetricsPath

	deps := httpapi.Dependencies{
		RecordGrowth:  recordGrowth,
		GrowthHistory: growthHistory,
		RiskStatus:    riskStatus,
		Infants:       infantList,
		HealthChecker: health,
		Requests:      m,
		Features:      cfg.Features,
		Logger:        log,
	}
	if cfg.Observability.MetricsEnabled {
		deps.MetricsHandler = m.Handler()
	}

	server := httpapi.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.HTTP.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	snap := bus.Metrics().Snapshot()
	var published int64
	for _, n := range snap.Published {
		published += n
	}
	log.Info("growthd stopped",
		logger.Int64("events_published", published),
		logger.Int64("events_failed", snap.Failed),
	)
	return nil
}

// buildGenerator assembles backend → circuit breaker → advice cache.
// It returns a nil generator when advisory text is switched off, in which
// case every assessment uses canned advice.
func buildGenerator(
	ctx context.Context,
	cfg *config.Config,
	cache *redis.Cache,
	m *metrics.Metrics,
	health *handlers.CompositeHealthChecker,
	log *logger.Logger,
) (growth.Generator, func(), error) {
	noop := func() {}

	if cfg.Advisory.Backend == config.AdvisoryBackendNone || !cfg.Features.IsEnabled(config.FeatureAdvisoryModel) {
		log.Info("advisory model disabled, using canned advice")
		return nil, noop, nil
	}

	var (
		backend growth.Generator
		name    string
		closer  = noop
	)

	switch cfg.Advisory.Backend {
	case config.AdvisoryBackendOllama:
		oc, err := ollama.NewClient(ollama.Config{
			BaseURL:     cfg.Advisory.OllamaURL,
			Model:       cfg.Advisory.Model,
			Temperature: cfg.Advisory.Temperature,
			Timeout:     2 * cfg.Advisory.Timeout,
			Logger:      log,
		})
		if err != nil {
			return nil, noop, err
		}
		health.AddOptionalCheck("ollama", handlers.PingCheck(oc))
		backend, name = oc, oc.Name()

	case config.AdvisoryBackendGemini:
		gcfg := gemini.DefaultConfig(cfg.Advisory.GeminiAPIKey)
		gcfg.Model = cfg.Advisory.Model
		gcfg.Temperature = float32(cfg.Advisory.Temperature)
		gcfg.Logger = log
		gc, err := gemini.NewClient(ctx, gcfg)
		if err != nil {
			return nil, noop, err
		}
		backend, name = gc, gc.Name()
		closer = func() { _ = gc.Close() }

	default:
		return nil, noop, errors.New("unknown advisory backend " + cfg.Advisory.Backend)
	}

	breaker := circuitbreaker.AdvisoryBreaker(cfg.Advisory.BreakerThreshold, cfg.Advisory.BreakerCooldown, m.ObserveBreakerState)
	guarded := service.NewGuardedGenerator(backend, breaker, log)
	health.AddOptionalCheck("advisory_breaker", handlers.BreakerCheck(func() string {
		return guarded.State().String()
	}))

	var generator growth.Generator = guarded
	if cfg.Features.IsEnabled(config.FeatureAdvisoryCache) {
		var store service.AdvisoryStore
		if cache != nil {
			store = redis.NewAdvisoryCache(cache, cfg.Advisory.CacheTTL)
		}
		generator = service.NewCachedGenerator(guarded, service.CachedGeneratorConfig{
			Namespace:   name + "/" + cfg.Advisory.Model + "/" + prompt.Version,
			LocalSize:   cfg.Advisory.CacheSize,
			TTL:         cfg.Advisory.CacheTTL,
			CallTimeout: cfg.Advisory.Timeout,
			Store:       store,
			Observe:     m.ObserveAdvisoryCache,
			Logger:      log,
		})
	}

	log.Info("advisory backend ready",
		logger.Backend(name),
		logger.String("model", cfg.Advisory.Model),
	)
	return generator, closer, nil
}

// referralLogger keeps a WARN trail of infants that need immediate referral.
func referralLogger(log *logger.Logger) shared.EventHandler {
	return func(event shared.Event) error {
		e, ok := event.(shared.ReferralRaisedEvent)
		if !ok {
			return nil
		}
		log.Warn("infant needs immediate referral",
			logger.InfantID(e.AggregateID()),
			logger.String("risk_status", e.RiskStatus),
			logger.AgeMonths(e.AgeMonths),
		)
		return nil
	}
}
