package oddscache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddswatch/internal/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func testMarket(marketID string, line *float64, odds ...float64) models.MarketOdds {
	outcomes := make([]models.Outcome, 0, len(odds))
	names := []string{"1", "X", "2"}
	for i, o := range odds {
		outcomes = append(outcomes, models.Outcome{Name: names[i%len(names)], Odds: o, IsActive: true})
	}
	return models.MarketOdds{
		ID:       uuid.New(),
		MarketID: marketID,
		Line:     line,
		Outcomes: outcomes,
	}
}

func testSnapshot(markets ...models.MarketOdds) *models.OddsSnapshot {
	now := time.Now().UTC()
	return &models.OddsSnapshot{
		ID:              uuid.New(),
		EventID:         uuid.New(),
		BookmakerID:     uuid.New(),
		CapturedAt:      now,
		LastConfirmedAt: now,
		Markets:         markets,
	}
}

// TestKeyFor tests market key construction with and without a line
func TestKeyFor(t *testing.T) {
	assert.Equal(t, KeyFor("1X2", nil), KeyFor("1X2", nil))
	assert.Equal(t, KeyFor("TOTALS", floatPtr(2.5)), KeyFor("TOTALS", floatPtr(2.5)))
	assert.NotEqual(t, KeyFor("TOTALS", floatPtr(2.5)), KeyFor("TOTALS", floatPtr(3.5)))
	assert.NotEqual(t, KeyFor("TOTALS", nil), KeyFor("TOTALS", floatPtr(0)))
}

// TestNewReferenceSnapshot tests model-to-cache conversion
func TestNewReferenceSnapshot(t *testing.T) {
	snap := testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8))
	cached := NewReferenceSnapshot(snap)

	assert.Equal(t, snap.ID, cached.SnapshotID)
	assert.Equal(t, snap.EventID, cached.EventID)
	assert.Equal(t, snap.BookmakerID, cached.BookmakerID)
	require.Len(t, cached.Markets, 1)
	assert.Equal(t, snap.ID, cached.Markets[0].SnapshotID)
	assert.Equal(t, snap.CapturedAt, cached.Markets[0].CapturedAt)
}

// TestNewCompetitorSnapshot tests competitor conversion keyed by event
func TestNewCompetitorSnapshot(t *testing.T) {
	eventID := uuid.New()
	now := time.Now().UTC()
	snap := &models.CompetitorOddsSnapshot{
		ID:                uuid.New(),
		CompetitorEventID: uuid.New(),
		Source:            "s1",
		CapturedAt:        now,
		LastConfirmedAt:   now,
		Markets: []models.CompetitorMarketOdds{
			models.CompetitorMarketOdds(testMarket("1X2", nil, 2.0, 3.4, 3.8)),
		},
	}

	cached := NewCompetitorSnapshot(snap, eventID)
	assert.Equal(t, eventID, cached.EventID)
	assert.Equal(t, "s1", cached.Source)
	require.Len(t, cached.Markets, 1)
	assert.Equal(t, "1X2", cached.Markets[0].MarketID)
}

// TestPutAndGetReference tests storing and retrieving reference snapshots
func TestPutAndGetReference(t *testing.T) {
	cache := New()
	snap := testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8))
	cached := NewReferenceSnapshot(snap)
	kickoff := time.Now().Add(2 * time.Hour)

	cache.PutReference(snap.EventID, "betprime", cached, kickoff)

	got := cache.GetReference(snap.EventID)
	require.NotNil(t, got)
	assert.Same(t, cached, got["betprime"])

	assert.Nil(t, cache.GetReference(uuid.New()))
}

// TestGetReferenceReturnsCopy tests that the returned map is detached
func TestGetReferenceReturnsCopy(t *testing.T) {
	cache := New()
	snap := testSnapshot()
	cache.PutReference(snap.EventID, "betprime", NewReferenceSnapshot(snap), time.Now())

	got := cache.GetReference(snap.EventID)
	delete(got, "betprime")

	again := cache.GetReference(snap.EventID)
	require.NotNil(t, again)
	assert.Contains(t, again, "betprime")
}

// TestPutAndGetCompetitor tests storing and retrieving competitor snapshots
func TestPutAndGetCompetitor(t *testing.T) {
	cache := New()
	eventID := uuid.New()
	now := time.Now().UTC()
	snap := &models.CompetitorOddsSnapshot{
		ID: uuid.New(), CompetitorEventID: uuid.New(), Source: "s2",
		CapturedAt: now, LastConfirmedAt: now,
	}

	cache.PutCompetitor(eventID, "s2", NewCompetitorSnapshot(snap, eventID), now.Add(time.Hour))

	got := cache.GetCompetitor(eventID)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got["s2"].SnapshotID)
	assert.Nil(t, cache.GetReference(eventID))
}

// TestWithConfirmed tests the copy-on-confirm contract
func TestWithConfirmed(t *testing.T) {
	snap := testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8))
	cached := NewReferenceSnapshot(snap)
	before := cached.LastConfirmedAt

	later := before.Add(5 * time.Minute)
	confirmed := cached.WithConfirmed(later)

	assert.Equal(t, later, confirmed.LastConfirmedAt)
	assert.Equal(t, before, cached.LastConfirmedAt)
	assert.Equal(t, cached.SnapshotID, confirmed.SnapshotID)
	require.Len(t, confirmed.Markets, 1)
}

// TestAvailableMarkets tests that flagged markets are filtered out
func TestAvailableMarkets(t *testing.T) {
	stamped := time.Now().UTC()
	m1 := testMarket("1X2", nil, 2.0, 3.4, 3.8)
	m2 := testMarket("BTTS", nil, 1.8, 1.9)
	m2.UnavailableAt = &stamped

	cached := NewReferenceSnapshot(testSnapshot(m1, m2))
	available := cached.AvailableMarkets()
	require.Len(t, available, 1)
	assert.Equal(t, "1X2", available[0].MarketID)
}

// TestMergeStampsVanishedMarket tests carry-forward of a market missing from
// the fresh snapshot
func TestMergeStampsVanishedMarket(t *testing.T) {
	now := time.Now().UTC()
	prev := NewReferenceSnapshot(testSnapshot(
		testMarket("1X2", nil, 2.0, 3.4, 3.8),
		testMarket("BTTS", nil, 1.8, 1.9),
	))
	next := NewReferenceSnapshot(testSnapshot(testMarket("1X2", nil, 2.1, 3.3, 3.7)))

	merged := Merge(prev, next, now)
	require.Len(t, merged.Markets, 2)

	byKey := make(map[MarketKey]CachedMarket)
	for _, m := range merged.Markets {
		byKey[m.Key()] = m
	}

	carried, ok := byKey[KeyFor("BTTS", nil)]
	require.True(t, ok)
	require.NotNil(t, carried.UnavailableAt)
	assert.Equal(t, now, *carried.UnavailableAt)
	// the carried market still points at the row it was last seen in
	assert.Equal(t, prev.SnapshotID, carried.SnapshotID)
	assert.Equal(t, prev.CapturedAt, carried.CapturedAt)

	fresh := byKey[KeyFor("1X2", nil)]
	assert.Nil(t, fresh.UnavailableAt)
}

// TestMergeKeepsOriginalStamp tests that a repeat carry preserves the first
// unavailable stamp
func TestMergeKeepsOriginalStamp(t *testing.T) {
	firstStamp := time.Now().UTC().Add(-10 * time.Minute)
	vanished := testMarket("BTTS", nil, 1.8, 1.9)
	vanished.UnavailableAt = &firstStamp

	prev := NewReferenceSnapshot(testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8), vanished))
	next := NewReferenceSnapshot(testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8)))

	merged := Merge(prev, next, time.Now().UTC())

	var carried *CachedMarket
	for i := range merged.Markets {
		if merged.Markets[i].MarketID == "BTTS" {
			carried = &merged.Markets[i]
		}
	}
	require.NotNil(t, carried)
	require.NotNil(t, carried.UnavailableAt)
	assert.Equal(t, firstStamp, *carried.UnavailableAt)
}

// TestMergeReappearedMarket tests that a returning market is not duplicated
// and the fresh row wins
func TestMergeReappearedMarket(t *testing.T) {
	stamp := time.Now().UTC().Add(-10 * time.Minute)
	vanished := testMarket("BTTS", nil, 1.8, 1.9)
	vanished.UnavailableAt = &stamp

	prev := NewReferenceSnapshot(testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8), vanished))
	next := NewReferenceSnapshot(testSnapshot(
		testMarket("1X2", nil, 2.0, 3.4, 3.8),
		testMarket("BTTS", nil, 1.7, 2.0),
	))

	merged := Merge(prev, next, time.Now().UTC())
	require.Len(t, merged.Markets, 2)

	for _, m := range merged.Markets {
		if m.MarketID == "BTTS" {
			assert.Nil(t, m.UnavailableAt)
			assert.Equal(t, next.SnapshotID, m.SnapshotID)
		}
	}
}

// TestMergeNilPrevious tests merge with no prior record
func TestMergeNilPrevious(t *testing.T) {
	next := NewReferenceSnapshot(testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8)))
	assert.Same(t, next, Merge(nil, next, time.Now()))
}

// TestMergeDoesNotMutatePrevious tests that the previous record is untouched
func TestMergeDoesNotMutatePrevious(t *testing.T) {
	prev := NewReferenceSnapshot(testSnapshot(testMarket("BTTS", nil, 1.8, 1.9)))
	next := NewReferenceSnapshot(testSnapshot(testMarket("1X2", nil, 2.0, 3.4, 3.8)))

	Merge(prev, next, time.Now().UTC())
	require.Len(t, prev.Markets, 1)
	assert.Nil(t, prev.Markets[0].UnavailableAt)
}

// TestEvictBefore tests kickoff-based eviction
func TestEvictBefore(t *testing.T) {
	cache := New()
	now := time.Now().UTC()

	past := testSnapshot()
	upcoming := testSnapshot()
	cache.PutReference(past.EventID, "betprime", NewReferenceSnapshot(past), now.Add(-time.Hour))
	cache.PutCompetitor(past.EventID, "s1", &CachedSnapshot{SnapshotID: uuid.New(), EventID: past.EventID, Source: "s1"}, now.Add(-time.Hour))
	cache.PutReference(upcoming.EventID, "betprime", NewReferenceSnapshot(upcoming), now.Add(time.Hour))

	removed := cache.EvictBefore(now)
	assert.Equal(t, 1, removed)
	assert.Nil(t, cache.GetReference(past.EventID))
	assert.Nil(t, cache.GetCompetitor(past.EventID))
	assert.NotNil(t, cache.GetReference(upcoming.EventID))
	assert.Equal(t, 1, cache.ItemCount())
}

// TestClear tests flushing the cache
func TestClear(t *testing.T) {
	cache := New()
	snap := testSnapshot()
	cache.PutReference(snap.EventID, "betprime", NewReferenceSnapshot(snap), time.Now())

	cache.Clear()
	assert.Equal(t, 0, cache.ItemCount())
	assert.Nil(t, cache.GetReference(snap.EventID))
}

// TestItemCount tests pair counting across both maps
func TestItemCount(t *testing.T) {
	cache := New()
	eventID := uuid.New()
	kickoff := time.Now().Add(time.Hour)

	cache.PutReference(eventID, "betprime", &CachedSnapshot{EventID: eventID}, kickoff)
	cache.PutCompetitor(eventID, "s1", &CachedSnapshot{EventID: eventID, Source: "s1"}, kickoff)
	cache.PutCompetitor(eventID, "s2", &CachedSnapshot{EventID: eventID, Source: "s2"}, kickoff)

	assert.Equal(t, 3, cache.ItemCount())

	// replacing an entry does not grow the count
	cache.PutCompetitor(eventID, "s2", &CachedSnapshot{EventID: eventID, Source: "s2"}, kickoff)
	assert.Equal(t, 3, cache.ItemCount())
}
