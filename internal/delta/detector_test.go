package delta

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
)

func floatPtr(v float64) *float64 { return &v }

func outcome(name string, odds float64) models.Outcome {
	return models.Outcome{Name: name, Odds: odds, IsActive: true}
}

func market(marketID string, line *float64, outcomes ...models.Outcome) models.MarketOdds {
	return models.MarketOdds{
		ID:       uuid.New(),
		MarketID: marketID,
		Line:     line,
		Outcomes: outcomes,
	}
}

func refSnapshot(eventID uuid.UUID, markets ...models.MarketOdds) *models.OddsSnapshot {
	now := time.Now().UTC()
	return &models.OddsSnapshot{
		ID:              uuid.New(),
		EventID:         eventID,
		BookmakerID:     uuid.New(),
		CapturedAt:      now,
		LastConfirmedAt: now,
		Markets:         markets,
	}
}

func seedReference(cache *oddscache.Cache, bookmaker string, snapshot *models.OddsSnapshot) *oddscache.CachedSnapshot {
	cached := oddscache.NewReferenceSnapshot(snapshot)
	cache.PutReference(snapshot.EventID, bookmaker, cached, time.Now().Add(2*time.Hour))
	return cached
}

// TestClassifyReferenceFirstSighting tests that an uncached pair is changed
func TestClassifyReferenceFirstSighting(t *testing.T) {
	detector := NewDetector(oddscache.New())

	changed, prev := detector.ClassifyReference("bp", refSnapshot(uuid.New(),
		market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8))))

	assert.True(t, changed)
	assert.Nil(t, prev)
}

// TestClassifyReferenceUnchanged tests that identical odds in a different
// outcome order confirm the cached snapshot
func TestClassifyReferenceUnchanged(t *testing.T) {
	cache := oddscache.New()
	eventID := uuid.New()
	cached := seedReference(cache, "bp", refSnapshot(eventID,
		market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8)),
		market(models.MarketTotals, floatPtr(2.5), outcome("OVER", 1.85), outcome("UNDER", 1.95)),
	))

	fresh := refSnapshot(eventID,
		market(models.MarketTotals, floatPtr(2.5), outcome("UNDER", 1.95), outcome("OVER", 1.85)),
		market(models.MarketOneXTwo, nil, outcome("2", 3.8), outcome("1", 2.0), outcome("X", 3.4)),
	)

	changed, prev := NewDetector(cache).ClassifyReference("bp", fresh)
	assert.False(t, changed)
	require.NotNil(t, prev)
	assert.Equal(t, cached.SnapshotID, prev.SnapshotID)
}

// TestClassifyReferenceChanged tests every mismatch that forces a new snapshot
func TestClassifyReferenceChanged(t *testing.T) {
	tests := []struct {
		name  string
		fresh []models.MarketOdds
	}{
		{
			"odds moved",
			[]models.MarketOdds{market(models.MarketOneXTwo, nil, outcome("1", 2.1), outcome("X", 3.4), outcome("2", 3.8))},
		},
		{
			"outcome suspended",
			[]models.MarketOdds{market(models.MarketOneXTwo, nil,
				models.Outcome{Name: "1", Odds: 2.0, IsActive: false}, outcome("X", 3.4), outcome("2", 3.8))},
		},
		{
			"market added",
			[]models.MarketOdds{
				market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8)),
				market(models.MarketBTTS, nil, outcome("YES", 1.7), outcome("NO", 2.1)),
			},
		},
		{
			"market gone",
			nil,
		},
		{
			"same market different line",
			[]models.MarketOdds{market(models.MarketOneXTwo, floatPtr(1.0), outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := oddscache.New()
			eventID := uuid.New()
			seedReference(cache, "bp", refSnapshot(eventID,
				market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8))))

			fresh := refSnapshot(eventID, tt.fresh...)
			changed, prev := NewDetector(cache).ClassifyReference("bp", fresh)
			assert.True(t, changed)
			assert.NotNil(t, prev)
		})
	}
}

// TestClassifyReferenceSkipsUnavailable tests that carried-forward flagged
// markets stay out of the comparison: a stable absence confirms, a
// reappearance changes
func TestClassifyReferenceSkipsUnavailable(t *testing.T) {
	cache := oddscache.New()
	eventID := uuid.New()
	now := time.Now().UTC()

	oneXTwo := market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8))
	btts := market(models.MarketBTTS, nil, outcome("YES", 1.7), outcome("NO", 2.1))
	flagged := btts
	flagged.UnavailableAt = &now

	cache.PutReference(eventID, "bp", &oddscache.CachedSnapshot{
		SnapshotID: uuid.New(),
		EventID:    eventID,
		CapturedAt: now,
		Markets: []oddscache.CachedMarket{
			{MarketOdds: oneXTwo, CapturedAt: now},
			{MarketOdds: flagged, CapturedAt: now},
		},
	}, now.Add(2*time.Hour))
	detector := NewDetector(cache)

	stillAbsent := refSnapshot(eventID,
		market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8)))
	changed, _ := detector.ClassifyReference("bp", stillAbsent)
	assert.False(t, changed, "stable absence should confirm")

	returned := refSnapshot(eventID,
		market(models.MarketOneXTwo, nil, outcome("1", 2.0), outcome("X", 3.4), outcome("2", 3.8)),
		market(models.MarketBTTS, nil, outcome("YES", 1.7), outcome("NO", 2.1)))
	changed, _ = detector.ClassifyReference("bp", returned)
	assert.True(t, changed, "reappearing market should change")
}

// TestClassifyCompetitor tests classification against the competitor side of
// the cache, keyed by canonical event and source tag
func TestClassifyCompetitor(t *testing.T) {
	cache := oddscache.New()
	eventID := uuid.New()
	now := time.Now().UTC()

	stored := &models.CompetitorOddsSnapshot{
		ID:                uuid.New(),
		CompetitorEventID: uuid.New(),
		Source:            "s1",
		CapturedAt:        now,
		LastConfirmedAt:   now,
		Markets: []models.CompetitorMarketOdds{
			{ID: uuid.New(), MarketID: models.MarketOneXTwo, Outcomes: []models.Outcome{
				outcome("1", 2.1), outcome("X", 3.3), outcome("2", 3.6),
			}},
		},
	}
	cache.PutCompetitor(eventID, "s1", oddscache.NewCompetitorSnapshot(stored, eventID), now.Add(2*time.Hour))
	detector := NewDetector(cache)

	same := &models.CompetitorOddsSnapshot{
		ID:     uuid.New(),
		Source: "s1",
		Markets: []models.CompetitorMarketOdds{
			{MarketID: models.MarketOneXTwo, Outcomes: []models.Outcome{
				outcome("X", 3.3), outcome("2", 3.6), outcome("1", 2.1),
			}},
		},
	}
	changed, prev := detector.ClassifyCompetitor(eventID, same)
	assert.False(t, changed)
	require.NotNil(t, prev)
	assert.Equal(t, stored.ID, prev.SnapshotID)

	moved := &models.CompetitorOddsSnapshot{
		ID:     uuid.New(),
		Source: "s1",
		Markets: []models.CompetitorMarketOdds{
			{MarketID: models.MarketOneXTwo, Outcomes: []models.Outcome{
				outcome("1", 2.3), outcome("X", 3.3), outcome("2", 3.6),
			}},
		},
	}
	changed, _ = detector.ClassifyCompetitor(eventID, moved)
	assert.True(t, changed)

	unknownSource := &models.CompetitorOddsSnapshot{ID: uuid.New(), Source: "s2"}
	changed, prev = detector.ClassifyCompetitor(eventID, unknownSource)
	assert.True(t, changed)
	assert.Nil(t, prev)
}
