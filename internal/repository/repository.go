package repository

import (
	"fmt"

	"github.com/yourusername/oddswatch/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Sport      SportRepository
	Tournament TournamentRepository
	Event      EventRepository
	Bookmaker  BookmakerRepository
	Mapping    MappingRepository
	Snapshot   SnapshotRepository
	ScrapeRun  ScrapeRunRepository
	RiskAlert  RiskAlertRepository
	Settings   SettingsRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Sport:      NewPostgresSportRepository(db),
		Tournament: NewPostgresTournamentRepository(db),
		Event:      NewPostgresEventRepository(db),
		Bookmaker:  NewPostgresBookmakerRepository(db),
		Mapping:    NewPostgresMappingRepository(db),
		Snapshot:   NewPostgresSnapshotRepository(db),
		ScrapeRun:  NewPostgresScrapeRunRepository(db),
		RiskAlert:  NewPostgresRiskAlertRepository(db),
		Settings:   NewPostgresSettingsRepository(db),
	}, nil
}
