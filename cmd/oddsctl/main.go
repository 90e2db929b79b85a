// Package main provides oddsctl, the operator CLI for the oddswatch engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/broadcast"
	"github.com/yourusername/oddswatch/internal/config"
	"github.com/yourusername/oddswatch/internal/coordinator"
	"github.com/yourusername/oddswatch/internal/database"
	applogger "github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/mapping"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
	"github.com/yourusername/oddswatch/internal/repository"
	"github.com/yourusername/oddswatch/internal/writequeue"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	jsonOutput bool
	logger     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit progress events as JSON lines")
}

var rootCmd = &cobra.Command{
	Use:   "oddsctl",
	Short: "Operate the oddswatch scrape engine",
	Long:  `Seed taxonomy data, trigger manual scrape cycles, and inspect the oddswatch engine.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the sport, bookmakers, and built-in market mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return seedTaxonomy(ctx)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger one scrape cycle and stream its progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return runCycle(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("oddsctl %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	rootCmd.AddCommand(seedCmd, runCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return errors.New("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies() error {
	logger = applogger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	metrics.InitRegistry()

	var err error
	db, err = database.NewDB(context.Background(), &cfg.Database, "oddsctl")
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	return nil
}

// seedTaxonomy upserts the rows every cycle expects to exist: the football
// sport, the three bookmakers, and the compiled-in market mapping table.
// Safe to rerun; everything is keyed on natural identifiers.
func seedTaxonomy(ctx context.Context) error {
	sport := &models.Sport{ID: uuid.New(), Name: "Football", Slug: "football"}
	if err := repos.Sport.Upsert(ctx, sport); err != nil {
		return fmt.Errorf("failed to seed sport: %w", err)
	}
	fmt.Printf("✓ Sport %q ready (%s)\n", sport.Slug, sport.ID)

	bookmakers := []*models.Bookmaker{
		{ID: uuid.New(), Name: "BetPrime", Slug: models.BookmakerBetPrime, IsActive: true},
		{ID: uuid.New(), Name: "StakeOne", Slug: models.BookmakerStakeOne, IsActive: true},
		{ID: uuid.New(), Name: "SpinBet", Slug: models.BookmakerSpinBet, IsActive: true},
	}
	for _, b := range bookmakers {
		if err := repos.Bookmaker.Upsert(ctx, b); err != nil {
			return fmt.Errorf("failed to seed bookmaker %s: %w", b.Slug, err)
		}
		fmt.Printf("✓ Bookmaker %q ready (%s)\n", b.Slug, b.ID)
	}

	defaults := mapping.Defaults()
	for _, m := range defaults {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if err := repos.Mapping.UpsertOverride(ctx, m); err != nil {
			return fmt.Errorf("failed to seed mapping %s: %w", m.CanonicalMarketID, err)
		}
	}
	fmt.Printf("✓ %d market mappings seeded\n", len(defaults))

	if _, err := repos.Settings.Get(ctx); errors.Is(err, models.ErrSettingsMissing) {
		if err := repos.Settings.Upsert(ctx, cfg.ToSettings()); err != nil {
			return fmt.Errorf("failed to seed settings row: %w", err)
		}
		fmt.Println("✓ Settings row seeded from configuration")
	} else if err != nil {
		return fmt.Errorf("failed to read settings row: %w", err)
	} else {
		fmt.Println("✓ Settings row already present, left untouched")
	}

	return nil
}

// runCycle wires a one-shot coordinator, fires a manual cycle, and streams
// the run's progress events to stdout until the run reaches a terminal state.
func runCycle(ctx context.Context) error {
	mappingCache := mapping.NewCache(repos.Mapping, logger)
	if err := mappingCache.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load market mappings: %w", err)
	}

	adapters := buildAdapters(cfg, logger)
	if len(adapters) == 0 {
		return errors.New("no bookmaker adapters enabled")
	}

	mappers := []mapping.Mapper{
		mapping.NewBetPrimeMapper(mappingCache),
		mapping.NewStakeOneMapper(mappingCache),
		mapping.NewSpinBetMapper(mappingCache),
	}

	registry := broadcast.NewRegistry()
	watch := registry.Watch()

	// The writer goroutine is stopped explicitly below so it can drain
	// batches the cycle enqueued right before finishing.
	queue := writequeue.New(db, repos.Snapshot, repos.RiskAlert, cfg.Scraper.WriteQueueDepth, logger)
	queue.Start(context.Background())

	coord := coordinator.New(repos, adapters, mappers, oddscache.New(), queue, registry, logger)
	if err := coord.WarmCache(ctx); err != nil {
		logger.WithError(err).Warn("Odds cache warmup failed, unchanged snapshots will be re-inserted")
	}

	type cycleResult struct {
		run *models.ScrapeRun
		err error
	}
	done := make(chan cycleResult, 1)
	go func() {
		run, err := coord.RunFullCycle(ctx, models.TriggerManual)
		done <- cycleResult{run: run, err: err}
	}()

	// The coordinator registers the run's broadcaster before publishing
	// anything, so the watch notification arrives ahead of the first event.
	var result cycleResult
	select {
	case runID := <-watch:
		if b := registry.Get(runID); b != nil {
			streamProgress(b.Subscribe())
		}
		result = <-done
	case result = <-done:
		// The cycle failed before a run row was registered.
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := queue.Stop(drainCtx); err != nil {
		logger.WithError(err).Error("Write queue drain timed out")
	}

	if result.err != nil {
		return fmt.Errorf("scrape cycle failed: %w", result.err)
	}

	printSummary(result.run)
	if result.run.Status == models.RunStatusFailed {
		return fmt.Errorf("run %s failed", result.run.ID)
	}
	return nil
}

// streamProgress prints events until the broadcaster signals the run is over.
func streamProgress(events <-chan *models.ProgressEvent) {
	for ev := range events {
		if ev == nil {
			return
		}
		if jsonOutput {
			line, err := json.Marshal(ev)
			if err != nil {
				logger.WithError(err).Error("Failed to encode progress event")
				continue
			}
			fmt.Println(string(line))
			continue
		}
		printEvent(ev)
	}
}

func printEvent(ev *models.ProgressEvent) {
	switch ev.EventType {
	case models.ProgressCycleStart:
		fmt.Printf("Run %s started (%s)\n", ev.ScrapeRunID, ev.TriggeredBy)
	case models.ProgressDiscoveryComplete:
		fmt.Printf("Discovery complete: %d events", ev.TotalEvents)
		for _, slug := range models.AllBookmakers() {
			if n, ok := ev.PerPlatform[slug]; ok {
				fmt.Printf(" %s=%d", slug, n)
			}
		}
		fmt.Println()
	case models.ProgressQueueBuilt:
		fmt.Printf("Queue built: %d events in %d batches\n", ev.QueueDepth, ev.BatchCount)
	case models.ProgressBatchStart:
		if ev.BatchIndex != nil {
			fmt.Printf("Batch %d: scraping %d events\n", *ev.BatchIndex+1, ev.BatchSize)
		}
	case models.ProgressEventScraped:
		mark := "✓"
		if len(ev.PlatformsSucceeded) == 0 {
			mark = "✗"
		}
		fmt.Printf("  %s %s ok=%v failed=%v %dms\n",
			mark, ev.CanonicalEventID, ev.PlatformsSucceeded, ev.PlatformsFailed, ev.DurationMS)
	case models.ProgressBatchComplete:
		if ev.BatchIndex != nil {
			fmt.Printf("Batch %d done: %d ok, %d failed\n", *ev.BatchIndex+1, ev.Succeeded, ev.Failed)
		}
	case models.ProgressCycleComplete:
		fmt.Printf("Cycle complete: status=%s scraped=%d failed=%d in %dms\n",
			ev.Status, ev.EventsScraped, ev.EventsFailed, ev.DurationMS)
	}
}

func printSummary(run *models.ScrapeRun) {
	fmt.Println()
	if run.Status == models.RunStatusFailed {
		fmt.Printf("❌ Run %s failed\n", run.ID)
	} else {
		fmt.Printf("✓ Run %s %s\n", run.ID, run.Status)
	}
	fmt.Printf("  Triggered by:   %s\n", run.TriggeredBy)
	fmt.Printf("  Events scraped: %d\n", run.EventsScraped)
	fmt.Printf("  Events failed:  %d\n", run.EventsFailed)
	fmt.Printf("  Duration:       %s\n", run.Duration().Round(time.Millisecond))
	if run.ErrorMessage != nil {
		fmt.Printf("  Error:          %s\n", *run.ErrorMessage)
	}
	for _, slug := range models.AllBookmakers() {
		if ms, ok := run.PlatformTimings[slug]; ok {
			fmt.Printf("  %s wall clock:   %dms\n", slug, ms)
		}
	}
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
