// Package logger provides scrape cycle logging.
package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CycleLogger provides dedicated logging for scrape run lifecycle events.
type CycleLogger struct {
	*logrus.Entry
}

// NewCycleLogger creates a new cycle logger.
func NewCycleLogger(baseLogger *logrus.Logger) *CycleLogger {
	return &CycleLogger{
		Entry: baseLogger.WithField("component", "coordinator"),
	}
}

// LogRunStarted logs the start of a scrape run.
func (cl *CycleLogger) LogRunStarted(runID uuid.UUID, trigger string) {
	cl.WithFields(logrus.Fields{
		"run_id":  runID.String(),
		"trigger": trigger,
	}).Info("Scrape run started")
}

// LogDiscoveryComplete logs the outcome of the discovery phase.
func (cl *CycleLogger) LogDiscoveryComplete(runID uuid.UUID, totalEvents int, perPlatform map[string]int, durationMS int64) {
	cl.WithFields(logrus.Fields{
		"run_id":       runID.String(),
		"total_events": totalEvents,
		"per_platform": perPlatform,
		"duration_ms":  durationMS,
	}).Info("Event discovery complete")
}

// LogQueueBuilt logs the prioritized queue size after discovery.
func (cl *CycleLogger) LogQueueBuilt(runID uuid.UUID, queueDepth, batchCount int) {
	cl.WithFields(logrus.Fields{
		"run_id":      runID.String(),
		"queue_depth": queueDepth,
		"batch_count": batchCount,
	}).Info("Scrape queue built")
}

// LogBatchComplete logs a single finished batch.
func (cl *CycleLogger) LogBatchComplete(runID uuid.UUID, batchIndex, succeeded, failed int, durationMS int64) {
	cl.WithFields(logrus.Fields{
		"run_id":      runID.String(),
		"batch_index": batchIndex,
		"succeeded":   succeeded,
		"failed":      failed,
		"duration_ms": durationMS,
	}).Info("Batch complete")
}

// LogEventScrapeFailed logs an event whose scrape failed on every platform.
func (cl *CycleLogger) LogEventScrapeFailed(runID, eventID uuid.UUID, platformErrors map[string]string) {
	cl.WithFields(logrus.Fields{
		"run_id":          runID.String(),
		"event_id":        eventID.String(),
		"platform_errors": platformErrors,
	}).Warn("Event scrape failed")
}

// LogRunCompleted logs the final state of a scrape run.
func (cl *CycleLogger) LogRunCompleted(runID uuid.UUID, status string, eventsScraped, eventsFailed int, durationMS int64) {
	cl.WithFields(logrus.Fields{
		"run_id":         runID.String(),
		"status":         status,
		"events_scraped": eventsScraped,
		"events_failed":  eventsFailed,
		"duration_ms":    durationMS,
	}).Info("Scrape run completed")
}

// LogStaleRunDetected logs a run the watchdog found without recent activity.
func (cl *CycleLogger) LogStaleRunDetected(runID uuid.UUID, lastActivity time.Time) {
	cl.WithFields(logrus.Fields{
		"run_id":        runID.String(),
		"last_activity": lastActivity.Unix(),
	}).Warn("Stale scrape run detected")
}

// LogRunRecovered logs a run marked failed during startup recovery.
func (cl *CycleLogger) LogRunRecovered(runID uuid.UUID, previousStatus string) {
	cl.WithFields(logrus.Fields{
		"run_id":          runID.String(),
		"previous_status": previousStatus,
	}).Warn("Orphaned scrape run recovered")
}
