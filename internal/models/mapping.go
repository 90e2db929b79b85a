package models

import (
	"time"

	"github.com/google/uuid"
)

// Canonical market IDs, the reference bookmaker's taxonomy. These are the
// only market identifiers downstream storage and comparison ever see.
const (
	MarketOneXTwo          = "1X2"
	MarketDoubleChance     = "DOUBLE_CHANCE"
	MarketDrawNoBet        = "DRAW_NO_BET"
	MarketBTTS             = "BTTS"
	MarketTotals           = "TOTALS"
	MarketTeamTotalsHome   = "TEAM_TOTALS_HOME"
	MarketTeamTotalsAway   = "TEAM_TOTALS_AWAY"
	MarketHandicapEuropean = "HANDICAP_EUROPEAN"
	MarketHandicapAsian    = "HANDICAP_ASIAN"
)

// HandicapType distinguishes asian from european handicap markets
type HandicapType string

const (
	HandicapAsian    HandicapType = "asian"
	HandicapEuropean HandicapType = "european"
)

// OutcomeMapping translates one canonical outcome to its per-source
// representation. BetPrime and StakeOne match on outcome name; SpinBet
// matches on the outcome suffix of its structured key. Position is the
// fallback when name matching fails.
type OutcomeMapping struct {
	ID            uuid.UUID `db:"id" json:"id"`
	MappingID     uuid.UUID `db:"mapping_id" json:"mapping_id"`
	CanonicalName string    `db:"canonical_name" json:"canonical_name" validate:"required"`
	BetPrimeName  *string   `db:"betprime_name" json:"betprime_name"`
	StakeOneName  *string   `db:"stakeone_name" json:"stakeone_name"`
	SpinBetSuffix *string   `db:"spinbet_suffix" json:"spinbet_suffix"`
	Position      int       `db:"position" json:"position"`
}

// SourceName returns the per-source descriptor for the given bookmaker slug,
// or nil when the mapping has no entry for that source.
func (o *OutcomeMapping) SourceName(source string) *string {
	switch source {
	case BookmakerBetPrime:
		return o.BetPrimeName
	case BookmakerStakeOne:
		return o.StakeOneName
	case BookmakerSpinBet:
		return o.SpinBetSuffix
	default:
		return nil
	}
}

// MarketMapping translates one bookmaker market into the canonical taxonomy.
// Rows come from two sources merged at runtime: compiled-in defaults and
// user-editable DB overrides (DB wins on CanonicalMarketID conflict).
type MarketMapping struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	CanonicalMarketID string           `db:"canonical_market_id" json:"canonical_market_id" validate:"required"`
	Name              string           `db:"name" json:"name" validate:"required"`
	BetPrimeMarketID  *string          `db:"betprime_market_id" json:"betprime_market_id"`
	StakeOneMarketID  *string          `db:"stakeone_market_id" json:"stakeone_market_id"`
	SpinBetKeyPrefix  *string          `db:"spinbet_key_prefix" json:"spinbet_key_prefix"`
	Outcomes          []OutcomeMapping `db:"-" json:"outcomes"`
	IsActive          bool             `db:"is_active" json:"is_active"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// SourceMarketKey returns the bookmaker-native market key for the given slug
func (m *MarketMapping) SourceMarketKey(source string) *string {
	switch source {
	case BookmakerBetPrime:
		return m.BetPrimeMarketID
	case BookmakerStakeOne:
		return m.StakeOneMarketID
	case BookmakerSpinBet:
		return m.SpinBetKeyPrefix
	default:
		return nil
	}
}

// IsHandicap checks whether the canonical market carries a handicap parameter
func (m *MarketMapping) IsHandicap() bool {
	return m.CanonicalMarketID == MarketHandicapAsian || m.CanonicalMarketID == MarketHandicapEuropean
}

// IsOverUnder checks whether the canonical market carries a total line parameter
func (m *MarketMapping) IsOverUnder() bool {
	switch m.CanonicalMarketID {
	case MarketTotals, MarketTeamTotalsHome, MarketTeamTotalsAway:
		return true
	}
	return false
}

// HandicapKind returns the handicap type inferred from the canonical market ID
func (m *MarketMapping) HandicapKind() HandicapType {
	if m.CanonicalMarketID == MarketHandicapAsian {
		return HandicapAsian
	}
	return HandicapEuropean
}

// UnmappedStatus is the lifecycle of an unmapped-market discovery row
type UnmappedStatus string

const (
	UnmappedStatusNew          UnmappedStatus = "new"
	UnmappedStatusAcknowledged UnmappedStatus = "acknowledged"
	UnmappedStatusMapped       UnmappedStatus = "mapped"
	UnmappedStatusIgnored      UnmappedStatus = "ignored"
)

// UnmappedMarketLog records a bookmaker market with no mapping entry.
// Unique on (source, external_market_id); occurrence_count only grows.
type UnmappedMarketLog struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	Source           string         `db:"source" json:"source" validate:"required"`
	ExternalMarketID string         `db:"external_market_id" json:"external_market_id" validate:"required"`
	MarketName       string         `db:"market_name" json:"market_name"`
	SampleOutcomes   []Outcome      `db:"sample_outcomes" json:"sample_outcomes"`
	OccurrenceCount  int            `db:"occurrence_count" json:"occurrence_count"`
	Status           UnmappedStatus `db:"status" json:"status"`
	FirstSeenRunID   *uuid.UUID     `db:"first_seen_run_id" json:"first_seen_run_id"`
	FirstSeenAt      time.Time      `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt       time.Time      `db:"last_seen_at" json:"last_seen_at"`
}
