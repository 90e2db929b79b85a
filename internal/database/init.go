package database

import (
	"context"
	"fmt"

	"github.com/yourusername/oddswatch/internal/config"
)

// Initialize creates a database connection pool and verifies the schema is applied
func Initialize(ctx context.Context, cfg *config.Config, sessionName string) (*DB, error) {
	// Create connection pool
	db, err := NewDB(ctx, &cfg.Database, sessionName)
	if err != nil {
		return nil, err
	}

	// Verify the partitioned snapshot table exists; migrations are applied
	// externally with the migrate CLI
	var snapshotTable *string
	err = db.pool.QueryRow(ctx, "SELECT to_regclass('public.odds_snapshots')::text").Scan(&snapshotTable)
	if err != nil || snapshotTable == nil {
		db.Close()
		return nil, fmt.Errorf(
			"odds_snapshots table not found, apply migrations first: " +
				"migrate -path db/migrations -database \"<dsn>\" up",
		)
	}

	// Verify migrations are applied by checking schema_migrations table
	var migrationCount int
	err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount)
	if err != nil {
		// Table might not exist yet, which is OK for initial setup
		return db, nil
	}

	if migrationCount == 0 {
		fmt.Println("Warning: No migrations have been applied. Please run database migrations.")
	}

	return db, nil
}
