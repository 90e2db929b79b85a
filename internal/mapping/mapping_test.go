package mapping

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oddswatch/internal/bookie"
	"github.com/yourusername/oddswatch/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeOverrideSource struct {
	rows []*models.MarketMapping
	err  error
}

func (f *fakeOverrideSource) GetActiveOverrides(ctx context.Context) ([]*models.MarketMapping, error) {
	return f.rows, f.err
}

func newTestCache(overrides ...*models.MarketMapping) *Cache {
	cache := NewCache(&fakeOverrideSource{rows: overrides}, testLogger())
	if len(overrides) > 0 {
		if err := cache.Reload(context.Background()); err != nil {
			panic(err)
		}
	}
	return cache
}

// TestDefaultsCoverAllSources tests that every compiled-in mapping carries
// keys and outcome descriptors for all three bookmakers
func TestDefaultsCoverAllSources(t *testing.T) {
	defaults := Defaults()
	require.Len(t, defaults, 9)

	wantCanonical := []string{
		models.MarketOneXTwo, models.MarketDoubleChance, models.MarketDrawNoBet,
		models.MarketBTTS, models.MarketTotals, models.MarketTeamTotalsHome,
		models.MarketTeamTotalsAway, models.MarketHandicapEuropean, models.MarketHandicapAsian,
	}

	byID := map[string]*models.MarketMapping{}
	for _, m := range defaults {
		byID[m.CanonicalMarketID] = m
	}
	for _, id := range wantCanonical {
		m, ok := byID[id]
		require.True(t, ok, "missing default for %s", id)
		assert.True(t, m.IsActive)
		require.NotNil(t, m.BetPrimeMarketID, id)
		require.NotNil(t, m.StakeOneMarketID, id)
		require.NotNil(t, m.SpinBetKeyPrefix, id)
		require.NotEmpty(t, m.Outcomes, id)
		for _, o := range m.Outcomes {
			assert.NotNil(t, o.BetPrimeName, "%s/%s", id, o.CanonicalName)
			assert.NotNil(t, o.StakeOneName, "%s/%s", id, o.CanonicalName)
			assert.NotNil(t, o.SpinBetSuffix, "%s/%s", id, o.CanonicalName)
		}
	}
}

// TestCacheSeededWithDefaults tests that lookups work before any Reload
func TestCacheSeededWithDefaults(t *testing.T) {
	cache := newTestCache()

	assert.Equal(t, 9, cache.Len())
	require.NotNil(t, cache.ByBetPrimeID("1"))
	assert.Equal(t, models.MarketOneXTwo, cache.ByBetPrimeID("1").CanonicalMarketID)
	require.NotNil(t, cache.ByStakeOneID("total_goals"))
	assert.Equal(t, models.MarketTotals, cache.ByStakeOneID("total_goals").CanonicalMarketID)
	assert.Nil(t, cache.ByBetPrimeID("9999"))
}

// TestCacheOverrideWins tests the merge rule: DB rows replace defaults per
// canonical market ID, including their source keys
func TestCacheOverrideWins(t *testing.T) {
	override := &models.MarketMapping{
		ID:                uuid.New(),
		CanonicalMarketID: models.MarketOneXTwo,
		Name:              "Match Winner",
		BetPrimeMarketID:  strPtr("101"),
		IsActive:          true,
		Outcomes: []models.OutcomeMapping{
			{CanonicalName: "1", BetPrimeName: strPtr("Home Win"), Position: 0},
			{CanonicalName: "X", BetPrimeName: strPtr("Draw"), Position: 1},
			{CanonicalName: "2", BetPrimeName: strPtr("Away Win"), Position: 2},
		},
	}
	cache := newTestCache(override)

	require.NotNil(t, cache.ByCanonicalID(models.MarketOneXTwo))
	assert.Equal(t, "Match Winner", cache.ByCanonicalID(models.MarketOneXTwo).Name)
	require.NotNil(t, cache.ByBetPrimeID("101"))
	assert.Nil(t, cache.ByBetPrimeID("1"), "replaced default key should be gone")
	assert.Equal(t, 9, cache.Len())
}

// TestCacheReloadFailureKeepsView tests that a failed reload leaves the
// previous view serving
func TestCacheReloadFailureKeepsView(t *testing.T) {
	source := &fakeOverrideSource{err: errors.New("db down")}
	cache := NewCache(source, testLogger())

	err := cache.Reload(context.Background())
	require.Error(t, err)
	assert.NotNil(t, cache.ByBetPrimeID("1"))
	assert.Equal(t, 9, cache.Len())
}

// TestCacheSpinBetSplitPrefix tests that the combined team-total prefix
// resolves to both canonical markets in declaration order
func TestCacheSpinBetSplitPrefix(t *testing.T) {
	cache := newTestCache()

	mappings := cache.BySpinBetPrefix("S_TEAMTOTAL")
	require.Len(t, mappings, 2)
	assert.Equal(t, models.MarketTeamTotalsHome, mappings[0].CanonicalMarketID)
	assert.Equal(t, models.MarketTeamTotalsAway, mappings[1].CanonicalMarketID)

	assert.Len(t, cache.BySpinBetPrefix("S_1X2"), 1)
	assert.Empty(t, cache.BySpinBetPrefix("S_UNKNOWN"))
}

// TestBetPrimeMapperSimple tests a plain three-way market
func TestBetPrimeMapperSimple(t *testing.T) {
	mapper := NewBetPrimeMapper(newTestCache())

	raw := bookie.RawMarket{
		NativeMarketID: "1",
		Name:           "Match Result",
		Groups:         []string{"main"},
		Outcomes: []bookie.RawOutcome{
			{Name: "1", Odds: 2.05, IsActive: true},
			{Name: "X", Odds: 3.40, IsActive: true},
			{Name: "2", Odds: 3.80, IsActive: true},
		},
	}

	markets, err := mapper.MapMarket(raw)
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, models.MarketOneXTwo, m.CanonicalMarketID)
	assert.Equal(t, "Match Result", m.CanonicalMarketName)
	assert.Nil(t, m.Line)
	assert.Nil(t, m.Handicap)
	assert.Equal(t, []string{"main"}, m.MarketGroups)
	require.Len(t, m.Outcomes, 3)
	assert.Equal(t, "1", m.Outcomes[0].CanonicalName)
	assert.Equal(t, 2.05, m.Outcomes[0].Odds)
}

// TestBetPrimeMapperTotals tests line extraction from the specifier
func TestBetPrimeMapperTotals(t *testing.T) {
	mapper := NewBetPrimeMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "18",
		Param:          "2.5",
		Outcomes: []bookie.RawOutcome{
			{Name: "Over", Odds: 1.85, IsActive: true},
			{Name: "Under", Odds: 1.95, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.NotNil(t, markets[0].Line)
	assert.Equal(t, 2.5, *markets[0].Line)
	assert.Equal(t, "OVER", markets[0].Outcomes[0].CanonicalName)
	assert.Equal(t, "Over", markets[0].Outcomes[0].SourceName)
}

// TestBetPrimeMapperHandicaps tests handicap type inference and the sign
// convention: the parameter is the home-side handicap
func TestBetPrimeMapperHandicaps(t *testing.T) {
	tests := []struct {
		name     string
		marketID string
		param    string
		wantType models.HandicapType
		wantHome float64
	}{
		{"european minus one", "14", "-1", models.HandicapEuropean, -1},
		{"asian quarter line", "16", "-1.25", models.HandicapAsian, -1.25},
		{"asian plus", "16", "0.75", models.HandicapAsian, 0.75},
	}

	mapper := NewBetPrimeMapper(newTestCache())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markets, err := mapper.MapMarket(bookie.RawMarket{
				NativeMarketID: tt.marketID,
				Param:          tt.param,
				Outcomes: []bookie.RawOutcome{
					{Name: "1", Odds: 2.10, IsActive: true},
					{Name: "2", Odds: 1.75, IsActive: true},
				},
			})
			require.NoError(t, err)
			require.Len(t, markets, 1)

			m := markets[0]
			require.NotNil(t, m.Handicap)
			assert.Equal(t, tt.wantType, m.Handicap.Type)
			assert.Equal(t, tt.wantHome, m.Handicap.Home)
			assert.Equal(t, -tt.wantHome, m.Handicap.Away)
			require.NotNil(t, m.Line)
			assert.Equal(t, tt.wantHome, *m.Line)
		})
	}
}

// TestBetPrimeMapperErrors tests the error taxonomy
func TestBetPrimeMapperErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      bookie.RawMarket
		wantKind string
	}{
		{
			"unknown market",
			bookie.RawMarket{NativeMarketID: "777", Name: "Corners", Outcomes: []bookie.RawOutcome{{Name: "Over", Odds: 1.9, IsActive: true}}},
			ErrKindUnknownMarket,
		},
		{
			"missing line",
			bookie.RawMarket{NativeMarketID: "18", Outcomes: []bookie.RawOutcome{{Name: "Over", Odds: 1.9, IsActive: true}}},
			ErrKindUnknownParamMarket,
		},
		{
			"garbage line",
			bookie.RawMarket{NativeMarketID: "18", Param: "abc", Outcomes: []bookie.RawOutcome{{Name: "Over", Odds: 1.9, IsActive: true}}},
			ErrKindInvalidSpecifier,
		},
		{
			"no outcomes",
			bookie.RawMarket{NativeMarketID: "1"},
			ErrKindNoMatchingOutcomes,
		},
		{
			"broken odds",
			bookie.RawMarket{NativeMarketID: "1", Outcomes: []bookie.RawOutcome{
				{Name: "1", Odds: 1.0, IsActive: true},
				{Name: "X", Odds: 3.4, IsActive: true},
				{Name: "2", Odds: 3.8, IsActive: true},
			}},
			ErrKindInvalidOdds,
		},
	}

	mapper := NewBetPrimeMapper(newTestCache())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapper.MapMarket(tt.raw)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, ErrorKind(err))
		})
	}
}

// TestInactiveOutcomeSkipsOddsValidation tests that a suspended selection
// may carry a zeroed price
func TestInactiveOutcomeSkipsOddsValidation(t *testing.T) {
	mapper := NewBetPrimeMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "29",
		Outcomes: []bookie.RawOutcome{
			{Name: "Yes", Odds: 1.72, IsActive: true},
			{Name: "No", Odds: 0, IsActive: false},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets[0].Outcomes, 2)
	assert.False(t, markets[0].Outcomes[1].IsActive)
}

// TestUnsupportedPlatform tests a mapping that exists but carries no outcome
// entries for the asking source
func TestUnsupportedPlatform(t *testing.T) {
	override := &models.MarketMapping{
		ID:                uuid.New(),
		CanonicalMarketID: "CORNERS_TOTAL",
		Name:              "Total Corners",
		BetPrimeMarketID:  strPtr("166"),
		IsActive:          true,
		Outcomes: []models.OutcomeMapping{
			{CanonicalName: "OVER", StakeOneName: strPtr("Over"), Position: 0},
			{CanonicalName: "UNDER", StakeOneName: strPtr("Under"), Position: 1},
		},
	}
	mapper := NewBetPrimeMapper(newTestCache(override))

	_, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "166",
		Param:          "9.5",
		Outcomes:       []bookie.RawOutcome{{Name: "Over", Odds: 1.9, IsActive: true}},
	})
	require.Error(t, err)
	assert.Equal(t, ErrKindUnsupportedPlatform, ErrorKind(err))
}

// TestStakeOneMapperNameMatch tests case-insensitive descriptor matching
func TestStakeOneMapperNameMatch(t *testing.T) {
	mapper := NewStakeOneMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "match_winner",
		Outcomes: []bookie.RawOutcome{
			{Name: "HOME", Odds: 2.05, IsActive: true},
			{Name: "dRaW", Odds: 3.40, IsActive: true},
			{Name: "away", Odds: 3.80, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.Len(t, markets[0].Outcomes, 3)
	assert.Equal(t, "1", markets[0].Outcomes[0].CanonicalName)
	assert.Equal(t, "HOME", markets[0].Outcomes[0].SourceName)
	assert.Equal(t, "X", markets[0].Outcomes[1].CanonicalName)
	assert.Equal(t, "2", markets[0].Outcomes[2].CanonicalName)
}

// TestStakeOneMapperPositionalFallback tests that unrecognized names fall
// back to position order
func TestStakeOneMapperPositionalFallback(t *testing.T) {
	mapper := NewStakeOneMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "draw_no_bet",
		Outcomes: []bookie.RawOutcome{
			{Name: "Arsenal", Odds: 1.65, IsActive: true},
			{Name: "Chelsea", Odds: 2.25, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets[0].Outcomes, 2)
	assert.Equal(t, "1", markets[0].Outcomes[0].CanonicalName)
	assert.Equal(t, "Arsenal", markets[0].Outcomes[0].SourceName)
	assert.Equal(t, "2", markets[0].Outcomes[1].CanonicalName)
}

// TestSpinBetMapperSimple tests structured key parsing without a parameter
func TestSpinBetMapperSimple(t *testing.T) {
	mapper := NewSpinBetMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "S_1X2",
		Name:           "Match Result",
		Outcomes: []bookie.RawOutcome{
			{Name: "S_1X2_1", Odds: 2.04, IsActive: true},
			{Name: "S_1X2_X", Odds: 3.45, IsActive: true},
			{Name: "S_1X2_2", Odds: 3.75, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, models.MarketOneXTwo, markets[0].CanonicalMarketID)
	require.Len(t, markets[0].Outcomes, 3)
	assert.Equal(t, "1", markets[0].Outcomes[0].CanonicalName)
	assert.Equal(t, "S_1X2_1", markets[0].Outcomes[0].SourceName)
}

// TestSpinBetMapperLine tests parameter extraction from the market key
func TestSpinBetMapperLine(t *testing.T) {
	mapper := NewSpinBetMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "S_TOTAL@2.50",
		Outcomes: []bookie.RawOutcome{
			{Name: "S_TOTAL@2.50_OVER", Odds: 1.85, IsActive: true},
			{Name: "S_TOTAL@2.50_UNDER", Odds: 1.95, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.NotNil(t, markets[0].Line)
	assert.Equal(t, 2.5, *markets[0].Line)
	assert.Equal(t, models.MarketTotals, markets[0].CanonicalMarketID)
}

// TestSpinBetMapperAsianHandicap tests handicap routing through structured keys
func TestSpinBetMapperAsianHandicap(t *testing.T) {
	mapper := NewSpinBetMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "S_AHCP@-1.5",
		Outcomes: []bookie.RawOutcome{
			{Name: "S_AHCP@-1.5_1", Odds: 2.10, IsActive: true},
			{Name: "S_AHCP@-1.5_2", Odds: 1.74, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, models.MarketHandicapAsian, m.CanonicalMarketID)
	require.NotNil(t, m.Handicap)
	assert.Equal(t, models.HandicapAsian, m.Handicap.Type)
	assert.Equal(t, -1.5, m.Handicap.Home)
	assert.Equal(t, 1.5, m.Handicap.Away)
}

// TestSpinBetMapperTeamTotalSplit tests that the combined market becomes two
// canonical markets
func TestSpinBetMapperTeamTotalSplit(t *testing.T) {
	mapper := NewSpinBetMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "S_TEAMTOTAL@1.5",
		Outcomes: []bookie.RawOutcome{
			{Name: "S_TEAMTOTAL@1.5_HOME_OVER", Odds: 1.95, IsActive: true},
			{Name: "S_TEAMTOTAL@1.5_HOME_UNDER", Odds: 1.80, IsActive: true},
			{Name: "S_TEAMTOTAL@1.5_AWAY_OVER", Odds: 2.40, IsActive: true},
			{Name: "S_TEAMTOTAL@1.5_AWAY_UNDER", Odds: 1.55, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 2)

	home, away := markets[0], markets[1]
	assert.Equal(t, models.MarketTeamTotalsHome, home.CanonicalMarketID)
	assert.Equal(t, models.MarketTeamTotalsAway, away.CanonicalMarketID)

	for _, m := range markets {
		require.NotNil(t, m.Line)
		assert.Equal(t, 1.5, *m.Line)
		require.Len(t, m.Outcomes, 2)
		assert.Equal(t, "OVER", m.Outcomes[0].CanonicalName)
		assert.Equal(t, "UNDER", m.Outcomes[1].CanonicalName)
	}
	assert.Equal(t, 1.95, home.Outcomes[0].Odds)
	assert.Equal(t, 2.40, away.Outcomes[0].Odds)
}

// TestSpinBetMapperHalfCombinedMarket tests that a one-sided combined market
// yields only that side, with no positional bleed across teams
func TestSpinBetMapperHalfCombinedMarket(t *testing.T) {
	mapper := NewSpinBetMapper(newTestCache())

	markets, err := mapper.MapMarket(bookie.RawMarket{
		NativeMarketID: "S_TEAMTOTAL@1.5",
		Outcomes: []bookie.RawOutcome{
			{Name: "S_TEAMTOTAL@1.5_HOME_OVER", Odds: 1.95, IsActive: true},
			{Name: "S_TEAMTOTAL@1.5_HOME_UNDER", Odds: 1.80, IsActive: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, models.MarketTeamTotalsHome, markets[0].CanonicalMarketID)
}

// TestSpinBetMapperKeyErrors tests structured-key validation
func TestSpinBetMapperKeyErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      bookie.RawMarket
		wantKind string
	}{
		{
			"missing lead",
			bookie.RawMarket{NativeMarketID: "TOTAL@2.5"},
			ErrKindInvalidKeyFormat,
		},
		{
			"empty parameter",
			bookie.RawMarket{NativeMarketID: "S_TOTAL@"},
			ErrKindInvalidKeyFormat,
		},
		{
			"empty market",
			bookie.RawMarket{NativeMarketID: "S_"},
			ErrKindInvalidKeyFormat,
		},
		{
			"selection key from another market",
			bookie.RawMarket{NativeMarketID: "S_1X2", Outcomes: []bookie.RawOutcome{
				{Name: "S_DNB_1", Odds: 2.0, IsActive: true},
			}},
			ErrKindInvalidKeyFormat,
		},
		{
			"unknown prefix",
			bookie.RawMarket{NativeMarketID: "S_CORNERS@9.5", Name: "Corners", Outcomes: []bookie.RawOutcome{
				{Name: "S_CORNERS@9.5_OVER", Odds: 1.9, IsActive: true},
			}},
			ErrKindUnknownMarket,
		},
	}

	mapper := NewSpinBetMapper(newTestCache())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapper.MapMarket(tt.raw)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, ErrorKind(err))
		})
	}
}

// TestNormalizedToMarketOdds tests conversion into the storage model
func TestNormalizedToMarketOdds(t *testing.T) {
	line := 2.5
	n := &NormalizedMarket{
		CanonicalMarketID:   models.MarketTotals,
		CanonicalMarketName: "Total Goals",
		Line:                &line,
		MarketGroups:        []string{"totals"},
		Outcomes: []NormalizedOutcome{
			{CanonicalName: "OVER", SourceName: "Over", Odds: 1.85, IsActive: true},
			{CanonicalName: "UNDER", SourceName: "Under", Odds: 1.95, IsActive: true},
		},
	}

	snapshotID := uuid.New()
	m := n.ToMarketOdds(snapshotID)

	assert.Equal(t, snapshotID, m.SnapshotID)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, models.MarketTotals, m.MarketID)
	assert.Equal(t, &line, m.Line)
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, models.Outcome{Name: "OVER", Odds: 1.85, IsActive: true}, m.Outcomes[0])
}

type fakeUnmappedSink struct {
	rows []*models.UnmappedMarketLog
	err  error
}

func (f *fakeUnmappedSink) RecordUnmapped(ctx context.Context, log *models.UnmappedMarketLog) error {
	if f.err != nil {
		return f.err
	}
	log.OccurrenceCount++
	f.rows = append(f.rows, log)
	return nil
}

// TestRecorderDedupesWithinCycle tests one upsert per distinct market per cycle
func TestRecorderDedupesWithinCycle(t *testing.T) {
	sink := &fakeUnmappedSink{}
	recorder := NewRecorder(sink, testLogger())

	corners := bookie.RawMarket{NativeMarketID: "166", Name: "Total Corners", Outcomes: []bookie.RawOutcome{
		{Name: "Over", Odds: 1.9, IsActive: true},
		{Name: "Under", Odds: 1.9, IsActive: true},
	}}
	cards := bookie.RawMarket{NativeMarketID: "139", Name: "Total Cards"}

	recorder.Record("bp", corners)
	recorder.Record("bp", corners)
	recorder.Record("bp", cards)
	recorder.Record("s1", corners)
	assert.Equal(t, 3, recorder.Pending())

	runID := uuid.New()
	require.NoError(t, recorder.Flush(context.Background(), runID))
	assert.Len(t, sink.rows, 3)
	assert.Equal(t, 0, recorder.Pending())

	for _, row := range sink.rows {
		require.NotNil(t, row.FirstSeenRunID)
		assert.Equal(t, runID, *row.FirstSeenRunID)
	}
}

// TestRecorderCapsSamples tests the sample outcome cap
func TestRecorderCapsSamples(t *testing.T) {
	sink := &fakeUnmappedSink{}
	recorder := NewRecorder(sink, testLogger())

	big := bookie.RawMarket{NativeMarketID: "x", Name: "Exotic", Outcomes: []bookie.RawOutcome{
		{Name: "a", Odds: 2, IsActive: true}, {Name: "b", Odds: 3, IsActive: true},
		{Name: "c", Odds: 4, IsActive: true}, {Name: "d", Odds: 5, IsActive: true},
	}}
	recorder.Record("s2", big)
	require.NoError(t, recorder.Flush(context.Background(), uuid.New()))

	require.Len(t, sink.rows, 1)
	assert.Len(t, sink.rows[0].SampleOutcomes, maxSampleOutcomes)
}

// TestRecorderFlushError tests that sink failures surface and the cycle
// state still resets
func TestRecorderFlushError(t *testing.T) {
	sink := &fakeUnmappedSink{err: errors.New("insert failed")}
	recorder := NewRecorder(sink, testLogger())

	recorder.Record("bp", bookie.RawMarket{NativeMarketID: "166", Name: "Corners"})
	err := recorder.Flush(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, 0, recorder.Pending())
}
