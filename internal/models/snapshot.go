package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is one selectable option inside a market. Stored as JSONB on the
// market row, so the wire shape here is the storage shape.
type Outcome struct {
	Name     string  `json:"name"`
	Odds     float64 `json:"odds"`
	IsActive bool    `json:"is_active"`
}

// Handicap is the (type, home, away) triple of a handicap market
type Handicap struct {
	Type HandicapType `json:"type"`
	Home float64      `json:"home"`
	Away float64      `json:"away"`
}

// OddsSnapshot is one scrape of one (event, bookmaker) pair for the
// reference bookmaker. CapturedAt is when the odds were first observed;
// LastConfirmedAt advances every time the same odds are re-observed
// unchanged, so LastConfirmedAt >= CapturedAt always holds.
type OddsSnapshot struct {
	ID              uuid.UUID    `db:"id" json:"id" validate:"required,uuid4"`
	EventID         uuid.UUID    `db:"event_id" json:"event_id" validate:"required,uuid4"`
	BookmakerID     uuid.UUID    `db:"bookmaker_id" json:"bookmaker_id" validate:"required,uuid4"`
	ScrapeRunID     *uuid.UUID   `db:"scrape_run_id" json:"scrape_run_id"`
	CapturedAt      time.Time    `db:"captured_at" json:"captured_at" validate:"required"`
	LastConfirmedAt time.Time    `db:"last_confirmed_at" json:"last_confirmed_at"`
	Markets         []MarketOdds `db:"-" json:"markets"`
}

// MarketOdds is one market inside a reference snapshot, already normalized
// into the canonical taxonomy.
type MarketOdds struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	SnapshotID    uuid.UUID  `db:"snapshot_id" json:"snapshot_id"`
	MarketID      string     `db:"market_id" json:"market_id" validate:"required"`
	MarketName    string     `db:"market_name" json:"market_name"`
	Line          *float64   `db:"line" json:"line"`
	Handicap      *Handicap  `db:"-" json:"handicap"`
	Outcomes      []Outcome  `db:"outcomes" json:"outcomes"`
	MarketGroups  []string   `db:"market_groups" json:"market_groups"`
	UnavailableAt *time.Time `db:"unavailable_at" json:"unavailable_at"`
}

// IsAvailable checks whether the market is currently offered
func (m *MarketOdds) IsAvailable() bool {
	return m.UnavailableAt == nil
}

// CompetitorOddsSnapshot is one scrape of one (competitor event, source)
// pair. Same freshness contract as OddsSnapshot.
type CompetitorOddsSnapshot struct {
	ID                uuid.UUID              `db:"id" json:"id" validate:"required,uuid4"`
	CompetitorEventID uuid.UUID              `db:"competitor_event_id" json:"competitor_event_id" validate:"required,uuid4"`
	Source            string                 `db:"source" json:"source" validate:"required"`
	ScrapeRunID       *uuid.UUID             `db:"scrape_run_id" json:"scrape_run_id"`
	CapturedAt        time.Time              `db:"captured_at" json:"captured_at" validate:"required"`
	LastConfirmedAt   time.Time              `db:"last_confirmed_at" json:"last_confirmed_at"`
	Markets           []CompetitorMarketOdds `db:"-" json:"markets"`
}

// CompetitorMarketOdds mirrors MarketOdds for competitor snapshots. MarketID
// is canonical here too; competitor markets are translated before storage.
type CompetitorMarketOdds struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	SnapshotID    uuid.UUID  `db:"snapshot_id" json:"snapshot_id"`
	MarketID      string     `db:"market_id" json:"market_id" validate:"required"`
	MarketName    string     `db:"market_name" json:"market_name"`
	Line          *float64   `db:"line" json:"line"`
	Handicap      *Handicap  `db:"-" json:"handicap"`
	Outcomes      []Outcome  `db:"outcomes" json:"outcomes"`
	MarketGroups  []string   `db:"market_groups" json:"market_groups"`
	UnavailableAt *time.Time `db:"unavailable_at" json:"unavailable_at"`
}

// IsAvailable checks whether the market is currently offered
func (m *CompetitorMarketOdds) IsAvailable() bool {
	return m.UnavailableAt == nil
}

// AvailabilityUpdate stamps unavailable_at on the market row of the snapshot
// where the market was last seen. CapturedAt routes the partition; Line
// disambiguates parameterized markets sharing a market ID.
type AvailabilityUpdate struct {
	SnapshotID    uuid.UUID `json:"snapshot_id"`
	CapturedAt    time.Time `json:"captured_at"`
	MarketID      string    `json:"market_id"`
	Line          *float64  `json:"line"`
	UnavailableAt time.Time `json:"unavailable_at"`
}
