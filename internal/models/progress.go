package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgressEventType labels one phase notification inside a scrape run
type ProgressEventType string

const (
	ProgressCycleStart        ProgressEventType = "CYCLE_START"
	ProgressDiscoveryComplete ProgressEventType = "DISCOVERY_COMPLETE"
	ProgressQueueBuilt        ProgressEventType = "QUEUE_BUILT"
	ProgressBatchStart        ProgressEventType = "BATCH_START"
	ProgressEventScraping     ProgressEventType = "EVENT_SCRAPING"
	ProgressEventScraped      ProgressEventType = "EVENT_SCRAPED"
	ProgressBatchComplete     ProgressEventType = "BATCH_COMPLETE"
	ProgressCycleComplete     ProgressEventType = "CYCLE_COMPLETE"
)

// ProgressEvent is one structured notification published while a scrape
// run executes. Only the fields relevant to the event type are set.
type ProgressEvent struct {
	EventType   ProgressEventType `json:"event_type"`
	ScrapeRunID uuid.UUID         `json:"scrape_run_id"`
	Timestamp   time.Time         `json:"timestamp"`

	// CYCLE_START
	TriggeredBy string `json:"triggered_by,omitempty"`

	// DISCOVERY_COMPLETE
	TotalEvents int            `json:"total_events,omitempty"`
	PerPlatform map[string]int `json:"per_platform,omitempty"`

	// QUEUE_BUILT
	QueueDepth int `json:"queue_depth,omitempty"`
	BatchCount int `json:"batch_count,omitempty"`

	// BATCH_START and BATCH_COMPLETE
	BatchIndex *int `json:"batch_index,omitempty"`
	BatchSize  int  `json:"batch_size,omitempty"`
	Succeeded  int  `json:"succeeded,omitempty"`
	Failed     int  `json:"failed,omitempty"`

	// EVENT_SCRAPING and EVENT_SCRAPED
	CanonicalEventID   string           `json:"canonical_event_id,omitempty"`
	Platforms          []string         `json:"platforms,omitempty"`
	PlatformsSucceeded []string         `json:"platforms_succeeded,omitempty"`
	PlatformsFailed    []string         `json:"platforms_failed,omitempty"`
	PerPlatformMS      map[string]int64 `json:"per_platform_ms,omitempty"`

	// CYCLE_COMPLETE
	Status        string `json:"status,omitempty"`
	EventsScraped int    `json:"events_scraped,omitempty"`
	EventsFailed  int    `json:"events_failed,omitempty"`

	DurationMS int64 `json:"duration_ms,omitempty"`
}
