// Package oddscache keeps the latest observed odds per event in memory so
// change detection runs against cached state instead of storage reads.
package oddscache

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/oddswatch/internal/metrics"
	"github.com/yourusername/oddswatch/internal/models"
)

// MarketKey identifies a market inside a snapshot. Parameterized markets
// (totals, handicaps) carry one entry per line, so the line is part of the
// identity.
type MarketKey struct {
	MarketID string
	Line     float64
	HasLine  bool
}

// KeyFor builds the lookup key for a market
func KeyFor(marketID string, line *float64) MarketKey {
	if line == nil {
		return MarketKey{MarketID: marketID}
	}
	return MarketKey{MarketID: marketID, Line: *line, HasLine: true}
}

// CachedMarket is one market of a cached snapshot. SnapshotID and CapturedAt
// address the physical row the market was last seen in; for markets carried
// forward after vanishing that row belongs to an older snapshot than the
// record holding them.
type CachedMarket struct {
	models.MarketOdds
	CapturedAt time.Time
}

// Key returns the (market, line) identity of the market
func (m *CachedMarket) Key() MarketKey {
	return KeyFor(m.MarketID, m.Line)
}

// CachedSnapshot is the immutable cache record for one (event, bookmaker) or
// (event, source) pair. Updates replace the whole record; markets and
// outcomes are never mutated in place. CapturedAt is when the odds were first
// observed, LastConfirmedAt when they were last re-observed unchanged.
type CachedSnapshot struct {
	SnapshotID      uuid.UUID
	EventID         uuid.UUID
	BookmakerID     uuid.UUID // reference snapshots only
	Source          string    // competitor snapshots only
	CapturedAt      time.Time
	LastConfirmedAt time.Time
	Markets         []CachedMarket
}

// NewReferenceSnapshot converts a persisted reference snapshot into its cache
// record. Every market row is owned by the snapshot itself.
func NewReferenceSnapshot(s *models.OddsSnapshot) *CachedSnapshot {
	cs := &CachedSnapshot{
		SnapshotID:      s.ID,
		EventID:         s.EventID,
		BookmakerID:     s.BookmakerID,
		CapturedAt:      s.CapturedAt,
		LastConfirmedAt: s.LastConfirmedAt,
		Markets:         make([]CachedMarket, 0, len(s.Markets)),
	}
	for _, m := range s.Markets {
		m.SnapshotID = s.ID
		cs.Markets = append(cs.Markets, CachedMarket{MarketOdds: m, CapturedAt: s.CapturedAt})
	}
	return cs
}

// NewCompetitorSnapshot converts a persisted competitor snapshot. The cache
// is keyed by canonical event, so the caller supplies the linked event ID.
func NewCompetitorSnapshot(s *models.CompetitorOddsSnapshot, eventID uuid.UUID) *CachedSnapshot {
	cs := &CachedSnapshot{
		SnapshotID:      s.ID,
		EventID:         eventID,
		Source:          s.Source,
		CapturedAt:      s.CapturedAt,
		LastConfirmedAt: s.LastConfirmedAt,
		Markets:         make([]CachedMarket, 0, len(s.Markets)),
	}
	for _, m := range s.Markets {
		converted := models.MarketOdds(m)
		converted.SnapshotID = s.ID
		cs.Markets = append(cs.Markets, CachedMarket{MarketOdds: converted, CapturedAt: s.CapturedAt})
	}
	return cs
}

// WithConfirmed returns a copy of the record with last_confirmed_at advanced.
// The market slice is shared between old and new record.
func (s *CachedSnapshot) WithConfirmed(t time.Time) *CachedSnapshot {
	c := *s
	c.LastConfirmedAt = t
	return &c
}

// AvailableMarkets returns the markets currently offered, excluding
// carried-forward rows flagged unavailable
func (s *CachedSnapshot) AvailableMarkets() []CachedMarket {
	out := make([]CachedMarket, 0, len(s.Markets))
	for i := range s.Markets {
		if s.Markets[i].IsAvailable() {
			out = append(out, s.Markets[i])
		}
	}
	return out
}

// Merge builds the next cache record after a changed snapshot was persisted:
// the fresh markets plus the previous record's markets missing from the
// scrape, newly vanished ones stamped with now. Carried markets keep the row
// address and stamp from the snapshot they were last seen in.
func Merge(prev, next *CachedSnapshot, now time.Time) *CachedSnapshot {
	if prev == nil {
		return next
	}

	seen := make(map[MarketKey]struct{}, len(next.Markets))
	for i := range next.Markets {
		seen[next.Markets[i].Key()] = struct{}{}
	}

	merged := *next
	merged.Markets = make([]CachedMarket, len(next.Markets), len(next.Markets)+len(prev.Markets))
	copy(merged.Markets, next.Markets)

	for _, m := range prev.Markets {
		if _, ok := seen[m.Key()]; ok {
			continue
		}
		if m.UnavailableAt == nil {
			stamped := now
			m.UnavailableAt = &stamped
		}
		merged.Markets = append(merged.Markets, m)
	}

	return &merged
}

// Cache maps canonical event IDs to the latest snapshot per bookmaker and
// per competitor source, plus each event's kickoff for eviction.
type Cache struct {
	mu           sync.RWMutex
	byReference  map[uuid.UUID]map[string]*CachedSnapshot
	byCompetitor map[uuid.UUID]map[string]*CachedSnapshot
	kickoffs     map[uuid.UUID]time.Time
}

// New creates an empty odds cache
func New() *Cache {
	return &Cache{
		byReference:  make(map[uuid.UUID]map[string]*CachedSnapshot),
		byCompetitor: make(map[uuid.UUID]map[string]*CachedSnapshot),
		kickoffs:     make(map[uuid.UUID]time.Time),
	}
}

// GetReference returns the cached reference snapshots for an event keyed by
// bookmaker slug, or nil when the event is unknown
func (c *Cache) GetReference(eventID uuid.UUID) map[string]*CachedSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return copySnapshotMap(c.byReference[eventID])
}

// GetCompetitor returns the cached competitor snapshots for an event keyed by
// source tag, or nil when the event is unknown
func (c *Cache) GetCompetitor(eventID uuid.UUID) map[string]*CachedSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return copySnapshotMap(c.byCompetitor[eventID])
}

// PutReference stores the snapshot for (event, bookmaker) and refreshes the
// event's kickoff used for eviction
func (c *Cache) PutReference(eventID uuid.UUID, bookmaker string, snapshot *CachedSnapshot, kickoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inner, ok := c.byReference[eventID]
	if !ok {
		inner = make(map[string]*CachedSnapshot)
		c.byReference[eventID] = inner
	}
	inner[bookmaker] = snapshot
	c.kickoffs[eventID] = kickoff
	c.updateGauge()
}

// PutCompetitor stores the snapshot for (event, source)
func (c *Cache) PutCompetitor(eventID uuid.UUID, source string, snapshot *CachedSnapshot, kickoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inner, ok := c.byCompetitor[eventID]
	if !ok {
		inner = make(map[string]*CachedSnapshot)
		c.byCompetitor[eventID] = inner
	}
	inner[source] = snapshot
	c.kickoffs[eventID] = kickoff
	c.updateGauge()
}

// EvictBefore drops every event whose kickoff is before the instant and
// returns how many events were removed
func (c *Cache) EvictBefore(instant time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for eventID, kickoff := range c.kickoffs {
		if kickoff.Before(instant) {
			delete(c.byReference, eventID)
			delete(c.byCompetitor, eventID)
			delete(c.kickoffs, eventID)
			removed++
		}
	}
	c.updateGauge()
	return removed
}

// Clear flushes the entire cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byReference = make(map[uuid.UUID]map[string]*CachedSnapshot)
	c.byCompetitor = make(map[uuid.UUID]map[string]*CachedSnapshot)
	c.kickoffs = make(map[uuid.UUID]time.Time)
	c.updateGauge()
}

// ItemCount returns the number of cached (event, bookmaker|source) pairs
func (c *Cache) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.itemCountLocked()
}

func (c *Cache) itemCountLocked() int {
	n := 0
	for _, inner := range c.byReference {
		n += len(inner)
	}
	for _, inner := range c.byCompetitor {
		n += len(inner)
	}
	return n
}

func copySnapshotMap(m map[string]*CachedSnapshot) map[string]*CachedSnapshot {
	if m == nil {
		return nil
	}
	out := make(map[string]*CachedSnapshot, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// updateGauge refreshes the cache size metric; callers hold the lock
func (c *Cache) updateGauge() {
	metrics.UpdateOddsCacheEntries(float64(c.itemCountLocked()))
}
