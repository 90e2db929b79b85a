package models

import (
	"time"

	"github.com/google/uuid"
)

// Bookmaker slugs form a closed set. BetPrime is the reference bookmaker:
// its market taxonomy is the canonical one and its markets pass through the
// mapping layer unchanged.
const (
	BookmakerBetPrime = "bp"
	BookmakerStakeOne = "s1"
	BookmakerSpinBet  = "s2"

	ReferenceBookmaker = BookmakerBetPrime
)

// AllBookmakers lists every supported bookmaker slug, reference first.
func AllBookmakers() []string {
	return []string{BookmakerBetPrime, BookmakerStakeOne, BookmakerSpinBet}
}

// CompetitorBookmakers lists the non-reference slugs.
func CompetitorBookmakers() []string {
	return []string{BookmakerStakeOne, BookmakerSpinBet}
}

// IsCompetitor reports whether slug names a non-reference bookmaker.
func IsCompetitor(slug string) bool {
	return slug != ReferenceBookmaker
}

// Bookmaker represents one upstream odds source
type Bookmaker struct {
	ID        uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Name      string    `db:"name" json:"name" validate:"required"`
	Slug      string    `db:"slug" json:"slug" validate:"required,oneof=bp s1 s2"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsReference checks whether this bookmaker is the reference source
func (b *Bookmaker) IsReference() bool {
	return b.Slug == ReferenceBookmaker
}

// EventBookmaker links a canonical event to a bookmaker, carrying the
// bookmaker-native event ID and a public URL. Unique on (event, bookmaker).
type EventBookmaker struct {
	ID              uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	EventID         uuid.UUID `db:"event_id" json:"event_id" validate:"required,uuid4"`
	BookmakerID     uuid.UUID `db:"bookmaker_id" json:"bookmaker_id" validate:"required,uuid4"`
	ExternalEventID string    `db:"external_event_id" json:"external_event_id" validate:"required"`
	EventURL        *string   `db:"event_url" json:"event_url"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
