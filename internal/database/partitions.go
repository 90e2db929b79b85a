package database

import (
	"context"
	"fmt"
	"time"
)

// Snapshot tables are range-partitioned by captured_at, one partition per day.
var partitionedTables = []string{
	"odds_snapshots",
	"snapshot_markets",
	"competitor_odds_snapshots",
	"competitor_snapshot_markets",
}

// EnsureSnapshotPartitions creates daily partitions for the snapshot tables
// covering from's day and the following days-1 days. Existing partitions are
// left untouched.
func (db *DB) EnsureSnapshotPartitions(ctx context.Context, from time.Time, days int) error {
	if days < 1 {
		days = 1
	}

	start := from.UTC().Truncate(24 * time.Hour)
	for _, table := range partitionedTables {
		for i := 0; i < days; i++ {
			day := start.AddDate(0, 0, i)
			next := day.AddDate(0, 0, 1)
			partition := fmt.Sprintf("%s_p%s", table, day.Format("20060102"))

			stmt := fmt.Sprintf(
				"CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
				partition,
				table,
				day.Format("2006-01-02"),
				next.Format("2006-01-02"),
			)
			if _, err := db.pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to ensure partition %s: %w", partition, err)
			}
		}
	}

	return nil
}
