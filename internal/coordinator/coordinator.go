// Package coordinator drives the scrape pipeline: it discovers upcoming
// events across every enabled bookmaker, orders them into a priority queue,
// scrapes them in bounded batches, and hands the resulting snapshots,
// confirmations and alerts to the write queue. One run of the pipeline is
// one scrape_runs row, observable live through its progress broadcaster.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/broadcast"
	"github.com/yourusername/oddswatch/internal/delta"
	"github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/mapping"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
	"github.com/yourusername/oddswatch/internal/repository"
	"github.com/yourusername/oddswatch/internal/risk"
	"github.com/yourusername/oddswatch/internal/writequeue"
)

// sportSlug is the one sport this engine covers
const sportSlug = "football"

// WriteSink accepts assembled write batches for background persistence
type WriteSink interface {
	Enqueue(ctx context.Context, batch *writequeue.WriteBatch) error
}

// Coordinator owns the full scrape cycle. It is safe for a scheduler and a
// manual trigger to share one instance; each call to RunFullCycle is an
// independent run.
type Coordinator struct {
	repos    *repository.Repositories
	adapters map[string]bookie.Adapter
	mappers  map[string]mapping.Mapper
	cache    *oddscache.Cache
	deltas   *delta.Detector
	risks    *risk.Detector
	sink     WriteSink
	registry *broadcast.Registry
	unmapped *mapping.Recorder
	log      *logger.CycleLogger
	mapLog   *logger.MappingLogger

	mu         sync.Mutex
	sport      *models.Sport
	bookmakers map[string]*models.Bookmaker
}

// New creates a coordinator wired to the given adapters and mappers. Each
// adapter covers one bookmaker; the mapper set must cover every adapter's
// slug.
func New(
	repos *repository.Repositories,
	adapters []bookie.Adapter,
	mappers []mapping.Mapper,
	cache *oddscache.Cache,
	sink WriteSink,
	registry *broadcast.Registry,
	baseLogger *logrus.Logger,
) *Coordinator {
	adapterMap := make(map[string]bookie.Adapter, len(adapters))
	for _, a := range adapters {
		adapterMap[a.Slug()] = a
	}
	mapperMap := make(map[string]mapping.Mapper, len(mappers))
	for _, m := range mappers {
		mapperMap[m.Source()] = m
	}

	return &Coordinator{
		repos:    repos,
		adapters: adapterMap,
		mappers:  mapperMap,
		cache:    cache,
		deltas:   delta.NewDetector(cache),
		risks:    risk.NewDetector(baseLogger),
		sink:     sink,
		registry: registry,
		unmapped: mapping.NewRecorder(repos.Mapping, baseLogger),
		log:      logger.NewCycleLogger(baseLogger),
		mapLog:   logger.NewMappingLogger(baseLogger),
	}
}

// RunFullCycle executes one complete scrape cycle and returns the finished
// run. The run row and its progress broadcaster always reach a terminal
// state: on an internal error the run is marked failed, the error published
// and returned.
func (c *Coordinator) RunFullCycle(ctx context.Context, trigger string) (*models.ScrapeRun, error) {
	cycleStart := time.Now().UTC()
	run := &models.ScrapeRun{
		ID:             uuid.New(),
		Status:         models.RunStatusRunning,
		TriggeredBy:    trigger,
		StartedAt:      cycleStart,
		LastActivityAt: cycleStart,
	}
	if err := c.repos.ScrapeRun.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create scrape run: %w", err)
	}

	metrics.SetCycleRunning(true)
	defer metrics.SetCycleRunning(false)

	b := c.registry.Register(run.ID)
	defer c.registry.Release(run.ID)

	c.log.LogRunStarted(run.ID, trigger)
	c.publish(b, run.ID, &models.ProgressEvent{
		EventType:   models.ProgressCycleStart,
		TriggeredBy: trigger,
	})

	if err := c.runCycle(ctx, run, b, cycleStart); err != nil {
		msg := err.Error()
		if updateErr := c.repos.ScrapeRun.UpdateStatus(ctx, run.ID, models.RunStatusFailed, &msg); updateErr != nil {
			c.log.WithError(updateErr).WithField("run_id", run.ID.String()).Error("Failed to mark run failed")
		}
		run.Status = models.RunStatusFailed
		run.ErrorMessage = &msg

		duration := time.Since(cycleStart)
		metrics.RecordRunCompleted(trigger, string(models.RunStatusFailed), duration.Seconds())
		c.log.LogRunCompleted(run.ID, string(models.RunStatusFailed), run.EventsScraped, run.EventsFailed, duration.Milliseconds())
		c.publish(b, run.ID, &models.ProgressEvent{
			EventType:     models.ProgressCycleComplete,
			Status:        string(models.RunStatusFailed),
			EventsScraped: run.EventsScraped,
			EventsFailed:  run.EventsFailed,
			DurationMS:    duration.Milliseconds(),
		})
		return run, err
	}
	return run, nil
}

// runCycle is the cycle body: discovery, queue, batches, bookkeeping
func (c *Coordinator) runCycle(ctx context.Context, run *models.ScrapeRun, b *broadcast.Broadcaster, cycleStart time.Time) error {
	settings, err := c.loadSettings(ctx)
	if err != nil {
		return err
	}
	if err := c.ensureTaxonomy(ctx); err != nil {
		return err
	}
	thresholds := risk.ThresholdsFromSettings(settings)

	disco, err := c.discover(ctx, settings)
	if err != nil {
		return err
	}
	run.PlatformTimings = disco.timings
	c.log.LogDiscoveryComplete(run.ID, len(disco.candidates), disco.perPlatform, disco.durationMS)
	c.publish(b, run.ID, &models.ProgressEvent{
		EventType:   models.ProgressDiscoveryComplete,
		TotalEvents: len(disco.candidates),
		PerPlatform: disco.perPlatform,
		DurationMS:  disco.durationMS,
	})

	queue := buildQueue(disco.candidates, time.Now().UTC())
	batches := splitBatches(queue, settings.BatchSize)
	metrics.UpdateScrapeQueueDepth(float64(len(queue)))
	c.log.LogQueueBuilt(run.ID, len(queue), len(batches))
	c.publish(b, run.ID, &models.ProgressEvent{
		EventType:  models.ProgressQueueBuilt,
		QueueDepth: len(queue),
		BatchCount: len(batches),
	})

	remaining := len(queue)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		batchStart := time.Now()
		idx := i
		c.publish(b, run.ID, &models.ProgressEvent{
			EventType:  models.ProgressBatchStart,
			BatchIndex: &idx,
			BatchSize:  len(batch),
		})

		results := c.scrapeBatch(ctx, run.ID, b, batch, settings)
		succeeded, failed := 0, 0
		for _, r := range results {
			if r.succeeded() {
				succeeded++
			} else {
				failed++
			}
		}
		run.EventsScraped += succeeded
		run.EventsFailed += failed

		if err := c.storeBatchResults(ctx, run, idx, results, thresholds, cycleStart); err != nil {
			c.log.WithFields(logrus.Fields{
				"run_id":      run.ID.String(),
				"batch_index": idx,
				"error":       err.Error(),
			}).Error("Batch persistence failed")
		}
		if err := c.repos.ScrapeRun.Touch(ctx, run.ID); err != nil {
			c.log.WithError(err).WithField("run_id", run.ID.String()).Warn("Failed to touch run activity")
		}

		remaining -= len(batch)
		metrics.UpdateScrapeQueueDepth(float64(remaining))
		elapsed := time.Since(batchStart)
		metrics.RecordBatchDuration(elapsed.Seconds())
		c.log.LogBatchComplete(run.ID, idx, succeeded, failed, elapsed.Milliseconds())
		c.publish(b, run.ID, &models.ProgressEvent{
			EventType:  models.ProgressBatchComplete,
			BatchIndex: &idx,
			Succeeded:  succeeded,
			Failed:     failed,
			DurationMS: elapsed.Milliseconds(),
		})
	}

	if err := c.unmapped.Flush(ctx, run.ID); err != nil {
		c.log.WithError(err).WithField("run_id", run.ID.String()).Warn("Failed to flush unmapped market log")
	}
	c.cache.EvictBefore(time.Now().UTC())

	status := terminalStatus(run)
	run.Status = status
	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	if err := c.repos.ScrapeRun.Complete(ctx, run); err != nil {
		return fmt.Errorf("complete scrape run: %w", err)
	}

	duration := time.Since(cycleStart)
	metrics.RecordRunCompleted(run.TriggeredBy, string(status), duration.Seconds())
	c.log.LogRunCompleted(run.ID, string(status), run.EventsScraped, run.EventsFailed, duration.Milliseconds())
	c.publish(b, run.ID, &models.ProgressEvent{
		EventType:     models.ProgressCycleComplete,
		Status:        string(status),
		EventsScraped: run.EventsScraped,
		EventsFailed:  run.EventsFailed,
		DurationMS:    duration.Milliseconds(),
	})
	return nil
}

// loadSettings reads the runtime settings row, falling back to defaults
// when the row is missing
func (c *Coordinator) loadSettings(ctx context.Context) (*models.Settings, error) {
	settings, err := c.repos.Settings.Get(ctx)
	if err != nil {
		if errors.Is(err, models.ErrSettingsMissing) {
			c.log.Warn("Settings row missing, using defaults")
			return models.DefaultSettings(), nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings.Normalize()
	return settings, nil
}

// ensureTaxonomy loads the sport and bookmaker rows once; they are seeded by
// migration and never change while the process runs
func (c *Coordinator) ensureTaxonomy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sport != nil && len(c.bookmakers) > 0 {
		return nil
	}

	sport, err := c.repos.Sport.GetBySlug(ctx, sportSlug)
	if err != nil {
		return fmt.Errorf("load sport %q: %w", sportSlug, err)
	}
	rows, err := c.repos.Bookmaker.List(ctx)
	if err != nil {
		return fmt.Errorf("load bookmakers: %w", err)
	}
	bySlug := make(map[string]*models.Bookmaker, len(rows))
	for _, r := range rows {
		bySlug[r.Slug] = r
	}
	for _, name := range models.AllBookmakers() {
		if _, ok := bySlug[name]; !ok {
			return fmt.Errorf("bookmaker %q not seeded", name)
		}
	}

	c.sport = sport
	c.bookmakers = bySlug
	return nil
}

// publish stamps and broadcasts one progress event
func (c *Coordinator) publish(b *broadcast.Broadcaster, runID uuid.UUID, ev *models.ProgressEvent) {
	ev.ScrapeRunID = runID
	ev.Timestamp = time.Now().UTC()
	b.Publish(ev)
}

// terminalStatus derives the run's final state from its event counts:
// completed when nothing failed, failed when nothing succeeded, partial in
// between. A cycle with no events at all counts as completed.
func terminalStatus(run *models.ScrapeRun) models.RunStatus {
	switch {
	case run.EventsFailed == 0:
		return models.RunStatusCompleted
	case run.EventsScraped == 0:
		return models.RunStatusFailed
	default:
		return models.RunStatusPartial
	}
}
