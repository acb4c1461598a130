package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geowire/geowire/app/aggregator"
)

// AggregationRecord is one persisted aggregation cycle.
type AggregationRecord struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	TotalItems int       `json:"total_items"`
	ErrorCount int       `json:"error_count"`
}

// Repository reads and writes aggregation history.
type Repository interface {
	aggregator.HistoryRecorder

	LastAggregation(ctx context.Context) (*AggregationRecord, error)
	AggregationCount(ctx context.Context) (int, error)
	SourceFailureCounts(ctx context.Context, since time.Time) (map[string]int, error)
}

// SQLRepository persists aggregation telemetry in SQLite.
type SQLRepository struct {
	db *DB
}

var _ Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// RecordAggregation stores one cycle plus per-source fetch outcomes. Error
// strings in the result are prefixed with the source ID, which is how they
// are attributed back to source_fetches rows here.
func (r *SQLRepository) RecordAggregation(ctx context.Context, result *aggregator.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	aggregationID := uuid.NewString()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO aggregations (id, created_at, total_items, error_count)
		VALUES (?, ?, ?, ?)
	`, aggregationID, result.LastUpdated.UTC(), result.Stats.Total, len(result.Stats.Errors))
	if err != nil {
		return fmt.Errorf("failed to insert aggregation: %w", err)
	}

	errorsBySource := make(map[string]string, len(result.Stats.Errors))
	for _, errStr := range result.Stats.Errors {
		if sourceID, msg, ok := strings.Cut(errStr, ": "); ok {
			errorsBySource[sourceID] = msg
		}
	}

	for sourceID, itemCount := range result.Stats.BySource {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO source_fetches (aggregation_id, source_id, item_count, error)
			VALUES (?, ?, ?, ?)
		`, aggregationID, sourceID, itemCount, errorsBySource[sourceID])
		if err != nil {
			return fmt.Errorf("failed to insert source fetch for %s: %w", sourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aggregation record: %w", err)
	}

	return nil
}

// LastAggregation returns the most recent cycle, or nil when none exist.
func (r *SQLRepository) LastAggregation(ctx context.Context) (*AggregationRecord, error) {
	var record AggregationRecord

	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, total_items, error_count
		FROM aggregations
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&record.ID, &record.CreatedAt, &record.TotalItems, &record.ErrorCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last aggregation: %w", err)
	}

	return &record, nil
}

func (r *SQLRepository) AggregationCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aggregations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count aggregations: %w", err)
	}
	return count, nil
}

// SourceFailureCounts returns the number of failed fetches per source since
// the given time.
func (r *SQLRepository) SourceFailureCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sf.source_id, COUNT(*)
		FROM source_fetches sf
		JOIN aggregations a ON a.id = sf.aggregation_id
		WHERE sf.error != '' AND a.created_at >= ?
		GROUP BY sf.source_id
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query source failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sourceID string
		var count int
		if err := rows.Scan(&sourceID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source failure row: %w", err)
		}
		counts[sourceID] = count
	}

	return counts, rows.Err()
}
