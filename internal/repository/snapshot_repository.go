package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddswatch/internal/database"
	"github.com/yourusername/oddswatch/internal/models"
)

var snapshotMarketColumns = []string{
	"id", "snapshot_id", "captured_at", "market_id", "market_name",
	"line", "handicap_type", "handicap_home", "handicap_away",
	"outcomes", "market_groups", "unavailable_at",
}

// PostgresSnapshotRepository implements SnapshotRepository for PostgreSQL
type PostgresSnapshotRepository struct {
	db *database.DB
}

// NewPostgresSnapshotRepository creates a new snapshot repository
func NewPostgresSnapshotRepository(db *database.DB) SnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// InsertWithTx inserts a reference snapshot and its market rows inside the
// writer transaction. Market rows go through COPY.
func (r *PostgresSnapshotRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, snapshot *models.OddsSnapshot) error {
	query := `
		INSERT INTO odds_snapshots (id, event_id, bookmaker_id, scrape_run_id, captured_at, last_confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query,
		snapshot.ID, snapshot.EventID, snapshot.BookmakerID, snapshot.ScrapeRunID,
		snapshot.CapturedAt, snapshot.LastConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert odds snapshot: %w", err)
	}

	rows, err := marketCopyRows(snapshot.ID, snapshot.CapturedAt, snapshot.Markets)
	if err != nil {
		return err
	}

	count, err := tx.CopyFrom(ctx, pgx.Identifier{"snapshot_markets"}, snapshotMarketColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert snapshot markets: %w", err)
	}
	if count != int64(len(rows)) {
		return fmt.Errorf("inserted %d market rows, expected %d", count, len(rows))
	}

	return nil
}

// InsertCompetitorWithTx inserts a competitor snapshot and its market rows
// inside the writer transaction
func (r *PostgresSnapshotRepository) InsertCompetitorWithTx(ctx context.Context, tx pgx.Tx, snapshot *models.CompetitorOddsSnapshot) error {
	query := `
		INSERT INTO competitor_odds_snapshots (id, competitor_event_id, source, scrape_run_id, captured_at, last_confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query,
		snapshot.ID, snapshot.CompetitorEventID, snapshot.Source, snapshot.ScrapeRunID,
		snapshot.CapturedAt, snapshot.LastConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert competitor odds snapshot: %w", err)
	}

	rows, err := competitorMarketCopyRows(snapshot.ID, snapshot.CapturedAt, snapshot.Markets)
	if err != nil {
		return err
	}

	count, err := tx.CopyFrom(ctx, pgx.Identifier{"competitor_snapshot_markets"}, snapshotMarketColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert competitor snapshot markets: %w", err)
	}
	if count != int64(len(rows)) {
		return fmt.Errorf("inserted %d market rows, expected %d", count, len(rows))
	}

	return nil
}

// ConfirmWithTx advances last_confirmed_at on an unchanged reference snapshot.
// The captured_at predicate routes the update to the right partition.
func (r *PostgresSnapshotRepository) ConfirmWithTx(ctx context.Context, tx pgx.Tx, snapshotID uuid.UUID, capturedAt, confirmedAt time.Time) error {
	query := `
		UPDATE odds_snapshots SET last_confirmed_at = $3
		WHERE id = $1 AND captured_at = $2
	`

	commandTag, err := tx.Exec(ctx, query, snapshotID, capturedAt, confirmedAt)
	if err != nil {
		return fmt.Errorf("failed to confirm odds snapshot: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ConfirmCompetitorWithTx advances last_confirmed_at on an unchanged
// competitor snapshot
func (r *PostgresSnapshotRepository) ConfirmCompetitorWithTx(ctx context.Context, tx pgx.Tx, snapshotID uuid.UUID, capturedAt, confirmedAt time.Time) error {
	query := `
		UPDATE competitor_odds_snapshots SET last_confirmed_at = $3
		WHERE id = $1 AND captured_at = $2
	`

	commandTag, err := tx.Exec(ctx, query, snapshotID, capturedAt, confirmedAt)
	if err != nil {
		return fmt.Errorf("failed to confirm competitor odds snapshot: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// MarkUnavailableWithTx stamps unavailable_at on the reference market row
// where the market was last seen. Zero rows affected is not an error: the
// guard keeps an earlier stamp, and the row can predate the retention window.
func (r *PostgresSnapshotRepository) MarkUnavailableWithTx(ctx context.Context, tx pgx.Tx, update models.AvailabilityUpdate) error {
	query := `
		UPDATE snapshot_markets SET unavailable_at = $5
		WHERE snapshot_id = $1 AND captured_at = $2 AND market_id = $3
			AND line IS NOT DISTINCT FROM $4 AND unavailable_at IS NULL
	`

	_, err := tx.Exec(ctx, query, update.SnapshotID, update.CapturedAt, update.MarketID, update.Line, update.UnavailableAt)
	if err != nil {
		return fmt.Errorf("failed to mark snapshot market unavailable: %w", err)
	}

	return nil
}

// MarkCompetitorUnavailableWithTx stamps unavailable_at on a competitor
// market row. Same contract as MarkUnavailableWithTx.
func (r *PostgresSnapshotRepository) MarkCompetitorUnavailableWithTx(ctx context.Context, tx pgx.Tx, update models.AvailabilityUpdate) error {
	query := `
		UPDATE competitor_snapshot_markets SET unavailable_at = $5
		WHERE snapshot_id = $1 AND captured_at = $2 AND market_id = $3
			AND line IS NOT DISTINCT FROM $4 AND unavailable_at IS NULL
	`

	_, err := tx.Exec(ctx, query, update.SnapshotID, update.CapturedAt, update.MarketID, update.Line, update.UnavailableAt)
	if err != nil {
		return fmt.Errorf("failed to mark competitor snapshot market unavailable: %w", err)
	}

	return nil
}

// LoadLatest retrieves the most recent reference snapshot per
// (event, bookmaker) pair for upcoming events, markets attached. Used to warm
// the odds cache after a restart.
func (r *PostgresSnapshotRepository) LoadLatest(ctx context.Context, since time.Time) ([]*models.OddsSnapshot, error) {
	query := `
		SELECT DISTINCT ON (s.event_id, s.bookmaker_id)
			s.id, s.event_id, s.bookmaker_id, s.scrape_run_id, s.captured_at, s.last_confirmed_at
		FROM odds_snapshots s
		JOIN events e ON e.id = s.event_id
		WHERE s.captured_at >= $1 AND e.kickoff > NOW()
		ORDER BY s.event_id, s.bookmaker_id, s.captured_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.OddsSnapshot
	byID := make(map[uuid.UUID]*models.OddsSnapshot)
	for rows.Next() {
		s := &models.OddsSnapshot{}
		err := rows.Scan(&s.ID, &s.EventID, &s.BookmakerID, &s.ScrapeRunID, &s.CapturedAt, &s.LastConfirmedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	ids := make([]uuid.UUID, 0, len(snapshots))
	for _, s := range snapshots {
		ids = append(ids, s.ID)
	}

	marketQuery := `
		SELECT id, snapshot_id, market_id, market_name, line, handicap_type, handicap_home, handicap_away, outcomes, market_groups, unavailable_at
		FROM snapshot_markets
		WHERE captured_at >= $1 AND snapshot_id = ANY($2)
	`

	marketRows, err := r.db.GetPool().Query(ctx, marketQuery, since, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot markets: %w", err)
	}
	defer marketRows.Close()

	for marketRows.Next() {
		m, snapshotID, err := scanMarketRow(marketRows)
		if err != nil {
			return nil, err
		}
		if s, ok := byID[snapshotID]; ok {
			s.Markets = append(s.Markets, *m)
		}
	}

	return snapshots, marketRows.Err()
}

// LoadLatestCompetitor retrieves the most recent competitor snapshot per
// (competitor event, source) pair for upcoming events, markets attached
func (r *PostgresSnapshotRepository) LoadLatestCompetitor(ctx context.Context, since time.Time) ([]*models.CompetitorOddsSnapshot, error) {
	query := `
		SELECT DISTINCT ON (s.competitor_event_id, s.source)
			s.id, s.competitor_event_id, s.source, s.scrape_run_id, s.captured_at, s.last_confirmed_at
		FROM competitor_odds_snapshots s
		JOIN competitor_events ce ON ce.id = s.competitor_event_id
		WHERE s.captured_at >= $1 AND ce.kickoff > NOW()
		ORDER BY s.competitor_event_id, s.source, s.captured_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest competitor snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.CompetitorOddsSnapshot
	byID := make(map[uuid.UUID]*models.CompetitorOddsSnapshot)
	for rows.Next() {
		s := &models.CompetitorOddsSnapshot{}
		err := rows.Scan(&s.ID, &s.CompetitorEventID, &s.Source, &s.ScrapeRunID, &s.CapturedAt, &s.LastConfirmedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competitor snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	ids := make([]uuid.UUID, 0, len(snapshots))
	for _, s := range snapshots {
		ids = append(ids, s.ID)
	}

	marketQuery := `
		SELECT id, snapshot_id, market_id, market_name, line, handicap_type, handicap_home, handicap_away, outcomes, market_groups, unavailable_at
		FROM competitor_snapshot_markets
		WHERE captured_at >= $1 AND snapshot_id = ANY($2)
	`

	marketRows, err := r.db.GetPool().Query(ctx, marketQuery, since, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitor snapshot markets: %w", err)
	}
	defer marketRows.Close()

	for marketRows.Next() {
		m, snapshotID, err := scanMarketRow(marketRows)
		if err != nil {
			return nil, err
		}
		if s, ok := byID[snapshotID]; ok {
			s.Markets = append(s.Markets, models.CompetitorMarketOdds(*m))
		}
	}

	return snapshots, marketRows.Err()
}

// marketCopyRows flattens reference market rows into COPY tuples
func marketCopyRows(snapshotID uuid.UUID, capturedAt time.Time, markets []models.MarketOdds) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(markets))
	for i := range markets {
		m := &markets[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.SnapshotID = snapshotID

		outcomesJSON, err := json.Marshal(m.Outcomes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal outcomes for market %s: %w", m.MarketID, err)
		}

		var handicapType *string
		var handicapHome, handicapAway *float64
		if m.Handicap != nil {
			t := string(m.Handicap.Type)
			handicapType = &t
			handicapHome = &m.Handicap.Home
			handicapAway = &m.Handicap.Away
		}

		rows = append(rows, []interface{}{
			m.ID, snapshotID, capturedAt, m.MarketID, m.MarketName,
			m.Line, handicapType, handicapHome, handicapAway,
			outcomesJSON, m.MarketGroups, m.UnavailableAt,
		})
	}
	return rows, nil
}

// competitorMarketCopyRows flattens competitor market rows into COPY tuples
func competitorMarketCopyRows(snapshotID uuid.UUID, capturedAt time.Time, markets []models.CompetitorMarketOdds) ([][]interface{}, error) {
	converted := make([]models.MarketOdds, len(markets))
	for i := range markets {
		converted[i] = models.MarketOdds(markets[i])
	}
	rows, err := marketCopyRows(snapshotID, capturedAt, converted)
	if err != nil {
		return nil, err
	}
	for i := range converted {
		markets[i].ID = converted[i].ID
		markets[i].SnapshotID = converted[i].SnapshotID
	}
	return rows, nil
}

// scanMarketRow reads one market row shared by both snapshot market tables
func scanMarketRow(rows pgx.Rows) (*models.MarketOdds, uuid.UUID, error) {
	m := &models.MarketOdds{}
	var snapshotID uuid.UUID
	var outcomesJSON []byte
	var handicapType *string
	var handicapHome, handicapAway *float64

	err := rows.Scan(
		&m.ID, &snapshotID, &m.MarketID, &m.MarketName, &m.Line,
		&handicapType, &handicapHome, &handicapAway,
		&outcomesJSON, &m.MarketGroups, &m.UnavailableAt,
	)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to scan snapshot market: %w", err)
	}

	m.SnapshotID = snapshotID
	if len(outcomesJSON) > 0 {
		if err := json.Unmarshal(outcomesJSON, &m.Outcomes); err != nil {
			return nil, uuid.Nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
		}
	}
	if handicapType != nil && handicapHome != nil && handicapAway != nil {
		m.Handicap = &models.Handicap{
			Type: models.HandicapType(*handicapType),
			Home: *handicapHome,
			Away: *handicapAway,
		}
	}

	return m, snapshotID, nil
}
