// Package delta classifies freshly scraped snapshots against the odds cache:
// unchanged odds become a last_confirmed_at update instead of a new snapshot
// row, which keeps the store append-mostly while odds sit still.
package delta

import (
	"sort"

	"github.com/google/uuid"

	"github.com/yourusername/oddswatch/internal/models"
	"github.com/yourusername/oddswatch/internal/oddscache"
)

// Detector compares fresh snapshots with the latest cached record per
// (event, bookmaker) or (event, source) pair.
type Detector struct {
	cache *oddscache.Cache
}

// NewDetector creates a change detector reading from the odds cache
func NewDetector(cache *oddscache.Cache) *Detector {
	return &Detector{cache: cache}
}

// ClassifyReference reports whether the fresh reference snapshot differs
// from the cached one and returns the record it was compared against. A
// pair never seen before is always changed.
func (d *Detector) ClassifyReference(bookmaker string, fresh *models.OddsSnapshot) (bool, *oddscache.CachedSnapshot) {
	prev := d.cache.GetReference(fresh.EventID)[bookmaker]
	if prev == nil {
		return true, nil
	}
	return !snapshotUnchanged(prev, fresh.Markets), prev
}

// ClassifyCompetitor mirrors ClassifyReference for competitor snapshots,
// which are cached under the canonical event they are linked to.
func (d *Detector) ClassifyCompetitor(eventID uuid.UUID, fresh *models.CompetitorOddsSnapshot) (bool, *oddscache.CachedSnapshot) {
	prev := d.cache.GetCompetitor(eventID)[fresh.Source]
	if prev == nil {
		return true, nil
	}
	markets := make([]models.MarketOdds, 0, len(fresh.Markets))
	for _, m := range fresh.Markets {
		markets = append(markets, models.MarketOdds(m))
	}
	return !snapshotUnchanged(prev, markets), prev
}

// snapshotUnchanged compares a scrape result against the cached record. Only
// available cached markets take part: carried-forward rows flagged
// unavailable are bookkeeping, so a market staying absent reads as unchanged
// while a reappearing one surfaces as a count or key mismatch.
func snapshotUnchanged(prev *oddscache.CachedSnapshot, fresh []models.MarketOdds) bool {
	available := prev.AvailableMarkets()
	if len(available) != len(fresh) {
		return false
	}

	index := make(map[oddscache.MarketKey]int, len(available))
	for i := range available {
		index[available[i].Key()] = i
	}
	for i := range fresh {
		j, ok := index[oddscache.KeyFor(fresh[i].MarketID, fresh[i].Line)]
		if !ok {
			return false
		}
		if !sameOutcomes(available[j].Outcomes, fresh[i].Outcomes) {
			return false
		}
	}
	return true
}

// sameOutcomes compares outcome lists as multisets of (name, odds, isActive)
// triples. Odds compare exactly: any float movement is a change.
func sameOutcomes(a, b []models.Outcome) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := sortedOutcomes(a), sortedOutcomes(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortedOutcomes(outcomes []models.Outcome) []models.Outcome {
	s := make([]models.Outcome, len(outcomes))
	copy(s, outcomes)
	sort.Slice(s, func(i, j int) bool {
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		if s[i].Odds != s[j].Odds {
			return s[i].Odds < s[j].Odds
		}
		return !s[i].IsActive && s[j].IsActive
	})
	return s
}
