package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/energydatahub/energyhub/api"
	"github.com/energydatahub/energyhub/internal/auth"
	"github.com/energydatahub/energyhub/internal/cache"
	"github.com/energydatahub/energyhub/internal/collector"
	"github.com/energydatahub/energyhub/internal/events"
	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/internal/orchestrator"
	"github.com/energydatahub/energyhub/internal/resilience"
	"github.com/energydatahub/energyhub/internal/sources"
	"github.com/energydatahub/energyhub/pkg/config"
	"github.com/energydatahub/energyhub/pkg/database"
	"github.com/energydatahub/energyhub/pkg/database/queries"
	"github.com/energydatahub/energyhub/pkg/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	once := flag.Bool("once", false, "run one collection cycle and exit")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash for a password and exit")
	flag.Parse()

	if *hashPassword != "" {
		if err := validation.ValidatePassword(*hashPassword); err != nil {
			return err
		}
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fmt.Println(hash)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		if db == nil {
			return fmt.Errorf("cannot migrate: database is disabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if version, err := db.ServerVersion(ctx); err == nil {
			logger.Infof("Connected to %s", version)
		}

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	var eventRepo *queries.EventRepository
	if db != nil {
		eventRepo = queries.NewEventRepository(db.DB)
	}
	eventLogger := events.NewEventLogger(eventRepo, bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	orch := orchestrator.New(orchestrator.Config{
		Interval:     cfg.Scheduler.Interval,
		WindowBehind: cfg.Scheduler.WindowBehind,
		WindowAhead:  cfg.Scheduler.WindowAhead,
		RunTimeout:   cfg.Scheduler.RunTimeout,
	}, publisher)

	if db != nil {
		orch.SetRepositories(queries.NewMetricRepository(db.DB), queries.NewRunRepository(db.DB))
	}

	if err := registerCollectors(cfg, orch, publisher); err != nil {
		return err
	}
	if len(orch.Collectors()) == 0 {
		return fmt.Errorf("no collectors enabled in configuration")
	}
	logger.Infof("Registered %d collectors", len(orch.Collectors()))

	if *once {
		return runOnce(cfg, orch)
	}

	scheduler := orchestrator.NewScheduler(orch)
	scheduler.Start()
	defer scheduler.Stop()

	var server *api.Server
	errChan := make(chan error, 1)
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, db, orch, bus)
		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("Stopped gracefully")
	return nil
}

// runOnce executes a single collection cycle, for cron-style deployments.
func runOnce(cfg *config.Config, orch *orchestrator.Orchestrator) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, _ := orch.RunAll(ctx)
	logger.WithFields(map[string]interface{}{
		"run_id":    summary.ID,
		"succeeded": summary.Succeeded,
		"partial":   summary.Partial,
		"failed":    summary.Failed,
		"points":    summary.TotalPoints,
	}).Info("Collection run finished")

	if summary.Failed == summary.SourceCount {
		return fmt.Errorf("all %d collectors failed", summary.SourceCount)
	}
	return nil
}

func registerCollectors(cfg *config.Config, orch *orchestrator.Orchestrator, publisher *events.Publisher) error {
	defaults := cfg.Collectors.Defaults
	retry := resilience.RetryConfig{
		MaxAttempts:  defaults.Retry.MaxAttempts,
		InitialDelay: defaults.Retry.InitialDelay,
		MaxDelay:     defaults.Retry.MaxDelay,
		BackoffBase:  defaults.Retry.BackoffBase,
		Jitter:       defaults.Retry.Jitter,
	}
	breaker := resilience.CircuitBreakerConfig{
		Enabled:          defaults.CircuitBreaker.Enabled,
		FailureThreshold: defaults.CircuitBreaker.FailureThreshold,
		SuccessThreshold: defaults.CircuitBreaker.SuccessThreshold,
		Timeout:          defaults.CircuitBreaker.Timeout,
	}

	register := func(collCfg collector.Config, source collector.Source) error {
		collCfg.Timezone = cfg.App.Timezone
		collCfg.Retry = retry
		collCfg.CircuitBreaker = breaker
		collCfg.HistorySize = defaults.HistorySize
		collCfg.Events = publisher

		coll, err := collector.New(collCfg, source)
		if err != nil {
			return fmt.Errorf("failed to build collector %s: %w", collCfg.Name, err)
		}
		return orch.Register(coll)
	}

	if cfg.Collectors.EnergyZero.Enabled {
		source := sources.NewEnergyZeroSource(sources.EnergyZeroConfig{
			BaseURL:    cfg.Collectors.EnergyZero.BaseURL,
			Timeout:    defaults.Timeout,
			IncludeVAT: cfg.Collectors.EnergyZero.IncludeVAT,
		})
		err := register(collector.Config{
			Name:       "energyzero",
			DataType:   "energy_price",
			SourceName: "EnergyZero API v1",
			Units:      "EUR/kWh",
		}, source)
		if err != nil {
			return err
		}
	}

	if cfg.Collectors.OpenMeteo.Enabled {
		source := sources.NewOpenMeteoSource(sources.OpenMeteoConfig{
			BaseURL:   cfg.Collectors.OpenMeteo.BaseURL,
			Timeout:   defaults.Timeout,
			Latitude:  cfg.Collectors.OpenMeteo.Latitude,
			Longitude: cfg.Collectors.OpenMeteo.Longitude,
			Timezone:  cfg.App.Timezone,
		})
		err := register(collector.Config{
			Name:       "openmeteo",
			DataType:   "weather",
			SourceName: "Open-Meteo API",
			Units:      "mixed",
		}, source)
		if err != nil {
			return err
		}
	}

	if cfg.Collectors.Luchtmeetnet.Enabled {
		stationCache := cache.New(cfg.Collectors.Luchtmeetnet.StationCacheTTL)
		source := sources.NewLuchtmeetnetSource(sources.LuchtmeetnetConfig{
			BaseURL:      cfg.Collectors.Luchtmeetnet.BaseURL,
			Timeout:      defaults.Timeout,
			Latitude:     cfg.Collectors.Luchtmeetnet.Latitude,
			Longitude:    cfg.Collectors.Luchtmeetnet.Longitude,
			Formula:      cfg.Collectors.Luchtmeetnet.Formula,
			StationCache: stationCache,
		})
		err := register(collector.Config{
			Name:       "luchtmeetnet",
			DataType:   "air_quality",
			SourceName: "Luchtmeetnet API 2020",
			Units:      "µg/m³",
		}, source)
		if err != nil {
			return err
		}
	}

	return nil
}
