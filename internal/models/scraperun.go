package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a scrape run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// Run trigger labels
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerAPI       = "api"
)

// ScrapeRun is one execution of the full pipeline cycle. LastActivityAt is
// advanced on every phase transition so the watchdog can spot stale runs.
type ScrapeRun struct {
	ID              uuid.UUID        `db:"id" json:"id" validate:"required,uuid4"`
	Status          RunStatus        `db:"status" json:"status" validate:"required"`
	TriggeredBy     string           `db:"triggered_by" json:"triggered_by" validate:"oneof=scheduled manual api"`
	StartedAt       time.Time        `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at"`
	LastActivityAt  time.Time        `db:"last_activity_at" json:"last_activity_at"`
	EventsScraped   int              `db:"events_scraped" json:"events_scraped"`
	EventsFailed    int              `db:"events_failed" json:"events_failed"`
	ErrorMessage    *string          `db:"error_message" json:"error_message"`
	PlatformTimings map[string]int64 `db:"platform_timings" json:"platform_timings"` // slug -> wall-clock ms
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// IsTerminal checks whether the run reached a final status
func (r *ScrapeRun) IsTerminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed:
		return true
	}
	return false
}

// Duration returns the wall-clock duration of the run, zero if still running
func (r *ScrapeRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// EventScrapeStatus records the per-event outcome inside one run: which
// platforms were attempted, which succeeded, and per-platform error text.
type EventScrapeStatus struct {
	ID                 uuid.UUID         `db:"id" json:"id" validate:"required,uuid4"`
	ScrapeRunID        uuid.UUID         `db:"scrape_run_id" json:"scrape_run_id" validate:"required,uuid4"`
	EventID            uuid.UUID         `db:"event_id" json:"event_id" validate:"required,uuid4"`
	PlatformsAttempted []string          `db:"platforms_attempted" json:"platforms_attempted"`
	PlatformsSucceeded []string          `db:"platforms_succeeded" json:"platforms_succeeded"`
	PlatformsFailed    []string          `db:"platforms_failed" json:"platforms_failed"`
	DurationMS         int64             `db:"duration_ms" json:"duration_ms"`
	Errors             map[string]string `db:"errors" json:"errors"` // slug -> error message
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
}

// Succeeded checks whether at least one platform returned data
func (s *EventScrapeStatus) Succeeded() bool {
	return len(s.PlatformsSucceeded) > 0
}
