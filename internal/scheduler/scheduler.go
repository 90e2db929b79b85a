// Package scheduler owns the cron surface of the daemon: the scrape cycle
// tick, the stale-run watchdog, the past-alert sweep and daily partition
// maintenance.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oddswatch/internal/broadcast"
	"github.com/yourusername/oddswatch/internal/logger"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/repository"
)

// recoveryMessage marks runs that were mid-flight when the process died
const recoveryMessage = "recovered on startup"

// cycleTimeout caps one full cycle; the per-batch timeouts inside the
// coordinator bound each phase well below this.
const cycleTimeout = time.Hour

// maintenanceTimeout bounds the housekeeping ticks
const maintenanceTimeout = 30 * time.Second

// partitionHorizonDays is how many days of snapshot partitions are kept
// ahead of writes: today and tomorrow.
const partitionHorizonDays = 2

// CycleRunner triggers one full scrape cycle
type CycleRunner interface {
	RunFullCycle(ctx context.Context, trigger string) (*models.ScrapeRun, error)
}

// PartitionEnsurer creates snapshot partitions ahead of writes
type PartitionEnsurer interface {
	EnsureSnapshotPartitions(ctx context.Context, from time.Time, days int) error
}

// Scheduler manages the recurring jobs of the scrape daemon
type Scheduler struct {
	cron       *cron.Cron
	runner     CycleRunner
	repos      *repository.Repositories
	registry   *broadcast.Registry
	partitions PartitionEnsurer
	log        *logger.CycleLogger
	alertLog   *logger.AlertLogger

	mu        sync.Mutex
	isRunning bool
	interval  time.Duration
	cycleID   cron.EntryID

	// cycleMu is held for the duration of a cycle so a tick arriving
	// while the previous cycle is still in flight is skipped, not stacked
	cycleMu sync.Mutex

	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler. Jobs are registered by Start.
func NewScheduler(
	runner CycleRunner,
	repos *repository.Repositories,
	registry *broadcast.Registry,
	partitions PartitionEnsurer,
	baseLogger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		runner:          runner,
		repos:           repos,
		registry:        registry,
		partitions:      partitions,
		log:             logger.NewCycleLogger(baseLogger),
		alertLog:        logger.NewAlertLogger(baseLogger),
		gracefulTimeout: 30 * time.Second,
	}
}

// Start recovers orphaned runs, ensures the partition horizon, registers
// the recurring jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	recovered, err := s.repos.ScrapeRun.RecoverOrphaned(ctx, recoveryMessage)
	if err != nil {
		return fmt.Errorf("recover orphaned runs: %w", err)
	}
	if recovered > 0 {
		s.log.WithField("count", recovered).Warn("Recovered orphaned scrape runs from previous process")
	}

	if err := s.partitions.EnsureSnapshotPartitions(ctx, time.Now().UTC(), partitionHorizonDays); err != nil {
		return fmt.Errorf("ensure snapshot partitions: %w", err)
	}

	settings := s.currentSettings(ctx)
	s.interval = time.Duration(settings.ScrapeIntervalMinutes) * time.Minute

	cycleID, err := s.cron.AddFunc("@every "+s.interval.String(), s.cycleTick)
	if err != nil {
		return fmt.Errorf("schedule cycle job: %w", err)
	}
	s.cycleID = cycleID

	if _, err := s.cron.AddFunc("@every 1m", s.watchdogTick); err != nil {
		return fmt.Errorf("schedule watchdog job: %w", err)
	}
	if _, err := s.cron.AddFunc("@every 1m", s.sweepTick); err != nil {
		return fmt.Errorf("schedule alert sweep job: %w", err)
	}
	if _, err := s.cron.AddFunc("@daily", s.partitionTick); err != nil {
		return fmt.Errorf("schedule partition job: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.log.WithField("interval", s.interval.String()).Info("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for in-flight jobs, up to the graceful
// timeout. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.log.Info("Scheduler stopped")
	case <-time.After(s.gracefulTimeout):
		s.log.Warn("Scheduler stop timed out with jobs still in flight")
	}
	return nil
}

// IsRunning reports whether the cron loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// NextCycle returns when the next scrape cycle fires, or the zero time
// when the scheduler is stopped.
func (s *Scheduler) NextCycle() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return time.Time{}
	}
	entry := s.cron.Entry(s.cycleID)
	if !entry.Valid() {
		return time.Time{}
	}
	return entry.Next
}

// cycleTick runs one scrape cycle and re-reads settings afterwards so an
// interval change in the settings row takes effect without a restart.
func (s *Scheduler) cycleTick() {
	if !s.cycleMu.TryLock() {
		s.log.Warn("Previous cycle still in flight, tick skipped")
		return
	}
	defer s.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	if _, err := s.runner.RunFullCycle(ctx, models.TriggerScheduled); err != nil {
		s.log.WithError(err).Error("Scheduled cycle failed")
	}

	settings := s.currentSettings(ctx)
	s.applyInterval(time.Duration(settings.ScrapeIntervalMinutes) * time.Minute)
}

// applyInterval reschedules the cycle job when the configured interval
// changed since the last tick
func (s *Scheduler) applyInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning || interval == s.interval {
		return
	}

	cycleID, err := s.cron.AddFunc("@every "+interval.String(), s.cycleTick)
	if err != nil {
		s.log.WithError(err).Error("Failed to reschedule cycle job, keeping previous interval")
		return
	}
	s.cron.Remove(s.cycleID)
	s.log.WithFields(logrus.Fields{
		"previous": s.interval.String(),
		"interval": interval.String(),
	}).Info("Cycle interval updated from settings")
	s.cycleID = cycleID
	s.interval = interval
}

// watchdogTick fails runs that stopped heartbeating and releases their
// progress broadcasters so subscribers see the run end
func (s *Scheduler) watchdogTick() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	settings := s.currentSettings(ctx)
	cutoff := time.Now().UTC().Add(-time.Duration(settings.WatchdogStaleMinutes) * time.Minute)

	stale, err := s.repos.ScrapeRun.GetStale(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("Watchdog query failed")
		return
	}

	for _, run := range stale {
		s.log.LogStaleRunDetected(run.ID, run.LastActivityAt)
		message := fmt.Sprintf("watchdog: no activity since %s", run.LastActivityAt.UTC().Format(time.RFC3339))
		if err := s.repos.ScrapeRun.UpdateStatus(ctx, run.ID, models.RunStatusFailed, &message); err != nil {
			s.log.WithError(err).WithField("run_id", run.ID.String()).Error("Failed to fail stale run")
			continue
		}
		s.registry.Release(run.ID)
		metrics.RecordStaleRunRecovered()
		s.log.LogRunRecovered(run.ID, string(run.Status))
	}
}

// sweepTick flips alerts whose event already kicked off to past
func (s *Scheduler) sweepTick() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	swept, err := s.repos.RiskAlert.SweepPast(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Error("Alert sweep failed")
		return
	}
	if swept > 0 {
		s.alertLog.LogAlertsSweptPast(swept)
	}
}

// partitionTick keeps the snapshot partition horizon ahead of writes
func (s *Scheduler) partitionTick() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	if err := s.partitions.EnsureSnapshotPartitions(ctx, time.Now().UTC(), partitionHorizonDays); err != nil {
		s.log.WithError(err).Error("Partition maintenance failed")
	}
}

// currentSettings loads the settings row, falling back to defaults when
// the row is missing or unreadable; the scheduler must keep ticking.
func (s *Scheduler) currentSettings(ctx context.Context) *models.Settings {
	settings, err := s.repos.Settings.Get(ctx)
	if errors.Is(err, models.ErrSettingsMissing) {
		return models.DefaultSettings()
	}
	if err != nil {
		s.log.WithError(err).Warn("Settings read failed, using defaults")
		return models.DefaultSettings()
	}
	settings.Normalize()
	return settings
}
