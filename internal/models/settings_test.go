package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 5, s.ScrapeIntervalMinutes)
	assert.Equal(t, []string{"bp", "s1", "s2"}, s.EnabledPlatforms)
	assert.Equal(t, 50, s.ConcurrencyLimits[BookmakerBetPrime])
	assert.Equal(t, 50, s.ConcurrencyLimits[BookmakerStakeOne])
	assert.Equal(t, 15, s.ConcurrencyLimits[BookmakerSpinBet])
	assert.Equal(t, 25, s.SpinBetDelayMS)
	assert.Equal(t, 10, s.MaxConcurrentEvents)
	assert.Equal(t, 50, s.WriteQueueDepth)
	assert.Equal(t, 300, s.BatchTimeoutSeconds)
}

func TestSettingsNormalize(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		check  func(*testing.T, *Settings)
	}{
		{
			name:   "interval above range resets to default",
			mutate: func(s *Settings) { s.ScrapeIntervalMinutes = 90 },
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, 5, s.ScrapeIntervalMinutes)
			},
		},
		{
			name:   "interval below range resets to default",
			mutate: func(s *Settings) { s.ScrapeIntervalMinutes = 0 },
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, 5, s.ScrapeIntervalMinutes)
			},
		},
		{
			name:   "empty platforms restored",
			mutate: func(s *Settings) { s.EnabledPlatforms = nil },
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, AllBookmakers(), s.EnabledPlatforms)
			},
		},
		{
			name:   "zero concurrency limit restored per platform",
			mutate: func(s *Settings) { s.ConcurrencyLimits = map[string]int{BookmakerSpinBet: 0} },
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, 15, s.ConcurrencyLimits[BookmakerSpinBet])
				assert.Equal(t, 50, s.ConcurrencyLimits[BookmakerBetPrime])
			},
		},
		{
			name:   "batch timeout above cap resets",
			mutate: func(s *Settings) { s.BatchTimeoutSeconds = 900 },
			check: func(t *testing.T, s *Settings) {
				assert.Equal(t, 300, s.BatchTimeoutSeconds)
			},
		},
		{
			name:   "inverted risk thresholds repaired",
			mutate: func(s *Settings) { s.RiskWarningPercent = 20; s.RiskElevatedPercent = 10; s.RiskCriticalPercent = 5 },
			check: func(t *testing.T, s *Settings) {
				assert.Less(t, s.RiskWarningPercent, s.RiskElevatedPercent)
				assert.Less(t, s.RiskElevatedPercent, s.RiskCriticalPercent)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			s.Normalize()
			tt.check(t, s)
		})
	}
}

func TestSettingsPlatformEnabled(t *testing.T) {
	s := DefaultSettings()
	assert.True(t, s.PlatformEnabled(BookmakerBetPrime))

	s.EnabledPlatforms = []string{BookmakerStakeOne}
	assert.False(t, s.PlatformEnabled(BookmakerBetPrime))
	assert.True(t, s.PlatformEnabled(BookmakerStakeOne))
}

func TestRiskAlertIsPastDue(t *testing.T) {
	kickoff := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	alert := &RiskAlert{Status: AlertStatusNew, EventKickoff: kickoff}

	assert.False(t, alert.IsPastDue(kickoff.Add(-time.Minute)))
	assert.True(t, alert.IsPastDue(kickoff), "alert flips exactly at kickoff")
	assert.True(t, alert.IsPastDue(kickoff.Add(time.Hour)))

	alert.Status = AlertStatusPast
	assert.False(t, alert.IsPastDue(kickoff.Add(time.Hour)), "past alerts are immutable")
}

func TestBookmakerSets(t *testing.T) {
	assert.Equal(t, []string{"bp", "s1", "s2"}, AllBookmakers())
	assert.Equal(t, []string{"s1", "s2"}, CompetitorBookmakers())
	assert.False(t, IsCompetitor(ReferenceBookmaker))
	assert.True(t, IsCompetitor(BookmakerSpinBet))
}
