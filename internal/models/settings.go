package models

import "time"

// Settings is the single-row runtime configuration observed by the scheduler
// and coordinator at the start of every cycle. The DB row wins over file
// config; any field may change between cycles.
type Settings struct {
	ID                    int            `db:"id" json:"id"`
	ScrapeIntervalMinutes int            `db:"scrape_interval_minutes" json:"scrape_interval_minutes" validate:"min=1,max=60"`
	EnabledPlatforms      []string       `db:"enabled_platforms" json:"enabled_platforms"`
	OddsRetentionDays     int            `db:"odds_retention_days" json:"odds_retention_days"`
	MatchRetentionDays    int            `db:"match_retention_days" json:"match_retention_days"`
	CleanupFrequencyHours int            `db:"cleanup_frequency_hours" json:"cleanup_frequency_hours"`
	ConcurrencyLimits     map[string]int `db:"concurrency_limits" json:"concurrency_limits"` // slug -> max in-flight requests
	SpinBetDelayMS        int            `db:"spinbet_delay_ms" json:"spinbet_delay_ms"`
	BatchSize             int            `db:"batch_size" json:"batch_size"`
	MaxConcurrentEvents   int            `db:"max_concurrent_events" json:"max_concurrent_events"`
	WriteQueueDepth       int            `db:"write_queue_depth" json:"write_queue_depth"`
	RiskWarningPercent    float64        `db:"risk_warning_percent" json:"risk_warning_percent"`
	RiskElevatedPercent   float64        `db:"risk_elevated_percent" json:"risk_elevated_percent"`
	RiskCriticalPercent   float64        `db:"risk_critical_percent" json:"risk_critical_percent"`
	WatchdogStaleMinutes  int            `db:"watchdog_stale_minutes" json:"watchdog_stale_minutes"`
	BatchTimeoutSeconds   int            `db:"batch_timeout_seconds" json:"batch_timeout_seconds" validate:"max=600"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultSettings returns the settings used when the DB row is absent
func DefaultSettings() *Settings {
	return &Settings{
		ID:                    1,
		ScrapeIntervalMinutes: 5,
		EnabledPlatforms:      AllBookmakers(),
		OddsRetentionDays:     30,
		MatchRetentionDays:    90,
		CleanupFrequencyHours: 24,
		ConcurrencyLimits: map[string]int{
			BookmakerBetPrime: 50,
			BookmakerStakeOne: 50,
			BookmakerSpinBet:  15,
		},
		SpinBetDelayMS:       25,
		BatchSize:            10,
		MaxConcurrentEvents:  10,
		WriteQueueDepth:      50,
		RiskWarningPercent:   7,
		RiskElevatedPercent:  10,
		RiskCriticalPercent:  15,
		WatchdogStaleMinutes: 10,
		BatchTimeoutSeconds:  300,
	}
}

// Normalize clamps out-of-range values back to safe defaults so a bad
// settings update cannot stall the pipeline.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.ScrapeIntervalMinutes < 1 || s.ScrapeIntervalMinutes > 60 {
		s.ScrapeIntervalMinutes = def.ScrapeIntervalMinutes
	}
	if len(s.EnabledPlatforms) == 0 {
		s.EnabledPlatforms = def.EnabledPlatforms
	}
	if s.BatchSize <= 0 {
		s.BatchSize = def.BatchSize
	}
	if s.MaxConcurrentEvents <= 0 {
		s.MaxConcurrentEvents = def.MaxConcurrentEvents
	}
	if s.WriteQueueDepth <= 0 {
		s.WriteQueueDepth = def.WriteQueueDepth
	}
	if s.BatchTimeoutSeconds <= 0 || s.BatchTimeoutSeconds > 600 {
		s.BatchTimeoutSeconds = def.BatchTimeoutSeconds
	}
	if s.SpinBetDelayMS < 0 {
		s.SpinBetDelayMS = def.SpinBetDelayMS
	}
	if s.WatchdogStaleMinutes <= 0 {
		s.WatchdogStaleMinutes = def.WatchdogStaleMinutes
	}
	if s.ConcurrencyLimits == nil {
		s.ConcurrencyLimits = map[string]int{}
	}
	for slug, limit := range def.ConcurrencyLimits {
		if s.ConcurrencyLimits[slug] <= 0 {
			s.ConcurrencyLimits[slug] = limit
		}
	}
	if s.RiskWarningPercent <= 0 {
		s.RiskWarningPercent = def.RiskWarningPercent
	}
	if s.RiskElevatedPercent <= s.RiskWarningPercent {
		s.RiskElevatedPercent = def.RiskElevatedPercent
	}
	if s.RiskCriticalPercent <= s.RiskElevatedPercent {
		s.RiskCriticalPercent = def.RiskCriticalPercent
	}
}

// PlatformEnabled checks whether the given bookmaker slug is enabled
func (s *Settings) PlatformEnabled(slug string) bool {
	for _, p := range s.EnabledPlatforms {
		if p == slug {
			return true
		}
	}
	return false
}

// ConcurrencyLimit returns the per-platform request gate size
func (s *Settings) ConcurrencyLimit(slug string) int {
	if n, ok := s.ConcurrencyLimits[slug]; ok && n > 0 {
		return n
	}
	if n, ok := DefaultSettings().ConcurrencyLimits[slug]; ok {
		return n
	}
	return 10
}
