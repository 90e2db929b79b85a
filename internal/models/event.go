package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a canonical match. CanonicalID is the cross-bookmaker identifier
// (sportradar-style numeric string) and is mandatory and unique. Kickoff is
// stored in UTC.
type Event struct {
	ID           uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id" validate:"required,uuid4"`
	Name         string    `db:"name" json:"name" validate:"required"`
	HomeTeam     string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam     string    `db:"away_team" json:"away_team" validate:"required"`
	CanonicalID  string    `db:"canonical_id" json:"canonical_id" validate:"required"`
	Kickoff      time.Time `db:"kickoff" json:"kickoff" validate:"required"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsUpcoming checks if the event has not kicked off yet
func (e *Event) IsUpcoming() bool {
	return e.Kickoff.After(time.Now().UTC())
}

// TimeToKickoff returns the duration until kickoff
func (e *Event) TimeToKickoff() time.Duration {
	return time.Until(e.Kickoff)
}

// CompetitorEvent is a bookmaker-native event row for a competitor source.
// EventID links back to the canonical Event once matched; the canonical row
// stays authoritative for metadata (competitors may only correct kickoff).
type CompetitorEvent struct {
	ID                     uuid.UUID  `db:"id" json:"id" validate:"required,uuid4"`
	Source                 string     `db:"source" json:"source" validate:"required"`
	ExternalEventID        string     `db:"external_event_id" json:"external_event_id" validate:"required"`
	CompetitorTournamentID *uuid.UUID `db:"competitor_tournament_id" json:"competitor_tournament_id"`
	EventID                *uuid.UUID `db:"event_id" json:"event_id"`
	HomeTeam               string     `db:"home_team" json:"home_team"`
	AwayTeam               string     `db:"away_team" json:"away_team"`
	Kickoff                time.Time  `db:"kickoff" json:"kickoff"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// IsMatched checks whether the competitor event is linked to a canonical event
func (c *CompetitorEvent) IsMatched() bool {
	return c.EventID != nil
}
