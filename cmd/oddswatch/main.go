// Package main provides the entry point for the oddswatch scrape daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/broadcast"
	"github.com/yourusername/oddswatch/internal/config"
	"github.com/yourusername/oddswatch/internal/coordinator"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/health"
	"github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/mapping"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
	"github.com/yourusername/oddswatch/internal/repository"
	"github.com/yourusername/oddswatch/internal/scheduler"
	"github.com/yourusername/oddswatch/internal/writequeue"
)

// Build metadata, set via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     version,
	}).Info("oddswatch daemon starting")

	metrics.InitRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two pool handles so slow snapshot writes never starve the
	// coordinator's reads: one session per role. The first session also
	// verifies the schema before anything runs against it.
	coordDB, err := database.Initialize(ctx, cfg, "coordinator")
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect coordinator database session")
	}
	defer coordDB.Close()

	writerDB, err := database.NewDB(ctx, &cfg.Database, "writer")
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect writer database session")
	}
	defer writerDB.Close()

	appLog.Info("Database sessions established")

	repos, err := repository.NewRepositories(coordDB)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build repositories")
	}
	writerRepos, err := repository.NewRepositories(writerDB)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build writer repositories")
	}

	// The config file seeds the settings row once; afterwards the stored
	// row wins on every cycle.
	if _, err := repos.Settings.Get(ctx); errors.Is(err, models.ErrSettingsMissing) {
		if err := repos.Settings.Upsert(ctx, cfg.ToSettings()); err != nil {
			appLog.WithError(err).Fatal("Failed to seed settings row")
		}
		appLog.Info("Seeded settings row from configuration")
	} else if err != nil {
		appLog.WithError(err).Fatal("Failed to read settings row")
	}

	mappingCache := mapping.NewCache(repos.Mapping, appLog)
	if err := mappingCache.Reload(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to load market mappings")
	}

	adapters := buildAdapters(cfg, appLog)
	if len(adapters) == 0 {
		appLog.Fatal("No bookmaker adapters enabled")
	}

	mappers := []mapping.Mapper{
		mapping.NewBetPrimeMapper(mappingCache),
		mapping.NewStakeOneMapper(mappingCache),
		mapping.NewSpinBetMapper(mappingCache),
	}

	cache := oddscache.New()
	registry := broadcast.NewRegistry()

	// The writer goroutine outlives the signal context so Stop can drain
	// accepted batches during shutdown.
	queue := writequeue.New(writerDB, writerRepos.Snapshot, writerRepos.RiskAlert, cfg.Scraper.WriteQueueDepth, appLog)
	queue.Start(context.Background())

	coord := coordinator.New(repos, adapters, mappers, cache, queue, registry, appLog)
	if err := coord.WarmCache(ctx); err != nil {
		appLog.WithError(err).Warn("Odds cache warmup failed, first cycle will re-insert unchanged snapshots")
	}

	sched := scheduler.NewScheduler(coord, repos, registry, coordDB, appLog)

	ops := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     version,
		Commit:      commit,
		Port:        strconv.Itoa(cfg.Ops.Port),
		MetricsPath: cfg.Ops.MetricsPath,
		Logger:      appLog,
		DB:          coordDB,
		Scheduler:   sched,
		Registry:    registry,
	})
	if err := ops.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start ops server")
	}

	if err := sched.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}
	ops.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"adapters": len(adapters),
		"ops_port": cfg.Ops.Port,
	}).Info("oddswatch daemon running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig.String()).Info("Shutdown signal received")

	ops.SetReady(false)
	cancel()

	// Stop producing before draining: the scheduler waits out an
	// in-flight cycle, then the queue flushes what that cycle enqueued.
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Scheduler shutdown error")
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := queue.Stop(drainCtx); err != nil {
		appLog.WithError(err).Error("Write queue drain timed out")
	}

	if err := ops.Shutdown(); err != nil {
		appLog.WithError(err).Error("Ops server shutdown error")
	}

	appLog.Info("oddswatch daemon shut down")
}

// buildAdapters constructs one adapter per enabled bookmaker, each with its
// own concurrency-gated HTTP client.
func buildAdapters(cfg *config.Config, appLog *logrus.Logger) []bookie.Adapter {
	var adapters []bookie.Adapter

	if cfg.Bookmakers.BetPrime.Enabled {
		clientCfg := bookie.DefaultClientConfig(models.BookmakerBetPrime)
		clientCfg.Timeout = cfg.AdapterTimeout(models.BookmakerBetPrime)
		clientCfg.MaxConcurrent = cfg.Bookmakers.BetPrime.MaxConcurrent
		client := bookie.NewClient(clientCfg, appLog)
		adapters = append(adapters, bookie.NewBetPrime(client, cfg.Bookmakers.BetPrime.BaseURL, cfg.Bookmakers.BetPrime.Brand, appLog))
	}

	if cfg.Bookmakers.StakeOne.Enabled {
		clientCfg := bookie.DefaultClientConfig(models.BookmakerStakeOne)
		clientCfg.Timeout = cfg.AdapterTimeout(models.BookmakerStakeOne)
		clientCfg.MaxConcurrent = cfg.Bookmakers.StakeOne.MaxConcurrent
		client := bookie.NewClient(clientCfg, appLog)
		adapters = append(adapters, bookie.NewStakeOne(client, cfg.Bookmakers.StakeOne.BaseURL, cfg.Bookmakers.StakeOne.ClientID, appLog))
	}

	if cfg.Bookmakers.SpinBet.Enabled {
		clientCfg := bookie.DefaultClientConfig(models.BookmakerSpinBet)
		clientCfg.Timeout = cfg.AdapterTimeout(models.BookmakerSpinBet)
		clientCfg.MaxConcurrent = cfg.Bookmakers.SpinBet.MaxConcurrent
		clientCfg.MinRequestGap = time.Duration(cfg.Bookmakers.SpinBet.RequestDelayMS) * time.Millisecond
		client := bookie.NewClient(clientCfg, appLog)
		adapters = append(adapters, bookie.NewSpinBet(client, cfg.Bookmakers.SpinBet.BaseURL, appLog))
	}

	return adapters
}
