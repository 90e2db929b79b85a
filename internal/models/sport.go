package models

import (
	"time"

	"github.com/google/uuid"
)

// Sport is the taxonomy root (football, basketball, ...)
type Sport struct {
	ID        uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Name      string    `db:"name" json:"name" validate:"required"`
	Slug      string    `db:"slug" json:"slug" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Tournament is a canonical competition within a sport. CanonicalID is the
// cross-bookmaker identifier used to match tournaments across sources; it is
// empty until a source exposes one.
type Tournament struct {
	ID          uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	SportID     uuid.UUID `db:"sport_id" json:"sport_id" validate:"required,uuid4"`
	Name        string    `db:"name" json:"name" validate:"required"`
	Country     *string   `db:"country" json:"country"`
	CanonicalID *string   `db:"canonical_id" json:"canonical_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CompetitorTournament is a bookmaker-native competition row kept separately
// because competitor taxonomies diverge from the canonical one.
type CompetitorTournament struct {
	ID           uuid.UUID  `db:"id" json:"id" validate:"required,uuid4"`
	Source       string     `db:"source" json:"source" validate:"required"`
	ExternalID   string     `db:"external_id" json:"external_id" validate:"required"`
	Name         string     `db:"name" json:"name" validate:"required"`
	RawCountry   *string    `db:"raw_country" json:"raw_country"`
	TournamentID *uuid.UUID `db:"tournament_id" json:"tournament_id"` // set once matched to a canonical tournament
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
