package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// PgxExecutionRepository implements repositories.ExecutionRepositoryFacade
// using pgxpool. Lifecycle transitions are written by the service inside a
// single transaction obtained from the embedded BaseRepository.
type PgxExecutionRepository struct {
	BaseRepository
	pool *pgxpool.Pool
}

// NewExecutionRepository creates a new PgxExecutionRepository.
func NewExecutionRepository(pool *pgxpool.Pool) *PgxExecutionRepository {
	return &PgxExecutionRepository{BaseRepository: BaseRepository{pool: pool}, pool: pool}
}

const recordColumns = `record_id, month_label, goal_ids, status, started_at, can_undo_until, planned_amounts, created_at, created_by, last_updated_at, last_updated_by`

func (r *PgxExecutionRepository) scanRecord(ctx context.Context, row pgx.Row) (*domain.MonthlyExecutionRecord, error) {
	var record domain.MonthlyExecutionRecord
	var plannedJSON []byte
	err := row.Scan(
		&record.RecordID, &record.MonthLabel, &record.GoalIDs, &record.Status,
		&record.StartedAt, &record.CanUndoUntil, &plannedJSON,
		&record.CreatedAt, &record.CreatedBy, &record.LastUpdatedAt, &record.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if len(plannedJSON) > 0 {
		if err := json.Unmarshal(plannedJSON, &record.PlannedAmounts); err != nil {
			return nil, fmt.Errorf("failed to decode planned amounts for record %s: %w", record.RecordID, err)
		}
	}

	completed, err := r.findCompleted(ctx, record.RecordID)
	if err != nil {
		return nil, err
	}
	record.Completed = completed
	return &record, nil
}

// FindRecordByID retrieves a record, including any completion artifact.
func (r *PgxExecutionRepository) FindRecordByID(ctx context.Context, recordID string) (*domain.MonthlyExecutionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM monthly_execution_records WHERE record_id = $1;`
	record, err := r.scanRecord(ctx, r.pool.QueryRow(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find record %s: %w", recordID, err)
	}
	return record, nil
}

// FindRecordByMonth retrieves the record for a month label, if any.
func (r *PgxExecutionRepository) FindRecordByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM monthly_execution_records WHERE month_label = $1;`
	record, err := r.scanRecord(ctx, r.pool.QueryRow(ctx, query, monthLabel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find record for month %s: %w", monthLabel, err)
	}
	return record, nil
}

func (r *PgxExecutionRepository) findCompleted(ctx context.Context, recordID string) (*domain.CompletedExecution, error) {
	query := `SELECT completed_at, rates, planned_amounts FROM completed_executions WHERE record_id = $1;`
	var completed domain.CompletedExecution
	var ratesJSON, plannedJSON []byte
	err := r.pool.QueryRow(ctx, query, recordID).Scan(&completed.CompletedAt, &ratesJSON, &plannedJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // no artifact: record is not closed
		}
		return nil, fmt.Errorf("failed to find completion for record %s: %w", recordID, err)
	}
	if len(ratesJSON) > 0 {
		if err := json.Unmarshal(ratesJSON, &completed.Rates); err != nil {
			return nil, fmt.Errorf("failed to decode rates for record %s: %w", recordID, err)
		}
	}
	if len(plannedJSON) > 0 {
		if err := json.Unmarshal(plannedJSON, &completed.PlannedAmounts); err != nil {
			return nil, fmt.Errorf("failed to decode planned amounts for record %s: %w", recordID, err)
		}
	}

	snapQuery := `
		SELECT snapshot_id, timestamp, source, asset_id, asset_currency, goal_id, goal_currency, asset_delta, goal_amount, rate
		FROM contribution_snapshots
		WHERE record_id = $1
		ORDER BY timestamp ASC, snapshot_id ASC;
	`
	rows, err := r.pool.Query(ctx, snapQuery, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contribution snapshots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var snap domain.ContributionSnapshot
		err := rows.Scan(
			&snap.SnapshotID, &snap.Timestamp, &snap.Source,
			&snap.AssetID, &snap.AssetCurrency, &snap.GoalID, &snap.GoalCurrency,
			&snap.AssetDelta, &snap.GoalAmount, &snap.Rate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution snapshot: %w", err)
		}
		completed.Contributions = append(completed.Contributions, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contribution snapshots: %w", err)
	}
	return &completed, nil
}

// SaveRecordInTx upserts the record row within the given transaction.
func (r *PgxExecutionRepository) SaveRecordInTx(ctx context.Context, tx pgx.Tx, record domain.MonthlyExecutionRecord) error {
	plannedJSON, err := json.Marshal(record.PlannedAmounts)
	if err != nil {
		return fmt.Errorf("failed to encode planned amounts: %w", err)
	}
	query := `
		INSERT INTO monthly_execution_records (record_id, month_label, goal_ids, status, started_at, can_undo_until, planned_amounts, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (record_id) DO UPDATE SET
			goal_ids = EXCLUDED.goal_ids,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			can_undo_until = EXCLUDED.can_undo_until,
			planned_amounts = EXCLUDED.planned_amounts,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`
	_, err = tx.Exec(ctx, query,
		record.RecordID, record.MonthLabel, record.GoalIDs, record.Status,
		record.StartedAt, record.CanUndoUntil, plannedJSON,
		record.CreatedAt, record.CreatedBy, record.LastUpdatedAt, record.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.RecordID, err)
	}
	return nil
}

// SaveCompletedInTx persists the completion artifact and its contribution
// snapshots within the given transaction.
func (r *PgxExecutionRepository) SaveCompletedInTx(ctx context.Context, tx pgx.Tx, recordID string, completed domain.CompletedExecution) error {
	ratesJSON, err := json.Marshal(normalizedRates(completed.Rates))
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	plannedJSON, err := json.Marshal(completed.PlannedAmounts)
	if err != nil {
		return fmt.Errorf("failed to encode planned amounts: %w", err)
	}

	query := `
		INSERT INTO completed_executions (record_id, completed_at, rates, planned_amounts)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := tx.Exec(ctx, query, recordID, completed.CompletedAt, ratesJSON, plannedJSON); err != nil {
		return fmt.Errorf("failed to save completion for record %s: %w", recordID, err)
	}

	batch := &pgx.Batch{}
	snapQuery := `
		INSERT INTO contribution_snapshots (snapshot_id, record_id, timestamp, source, asset_id, asset_currency, goal_id, goal_currency, asset_delta, goal_amount, rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	for _, snap := range completed.Contributions {
		batch.Queue(snapQuery,
			snap.SnapshotID, recordID, snap.Timestamp, snap.Source,
			snap.AssetID, snap.AssetCurrency, snap.GoalID, snap.GoalCurrency,
			snap.AssetDelta, snap.GoalAmount, snap.Rate,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert contribution snapshots for record %s: %w", recordID, err)
	}
	return nil
}

// DeleteCompletedInTx removes the completion artifact and its snapshots
// within the given transaction. Deleting a record without an artifact is a
// no-op.
func (r *PgxExecutionRepository) DeleteCompletedInTx(ctx context.Context, tx pgx.Tx, recordID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM contribution_snapshots WHERE record_id = $1;`, recordID); err != nil {
		return fmt.Errorf("failed to delete contribution snapshots for record %s: %w", recordID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM completed_executions WHERE record_id = $1;`, recordID); err != nil {
		return fmt.Errorf("failed to delete completion for record %s: %w", recordID, err)
	}
	return nil
}

// normalizedRates keeps JSON encoding stable for an empty cache.
func normalizedRates(rates map[string]decimal.Decimal) map[string]decimal.Decimal {
	if rates == nil {
		return map[string]decimal.Decimal{}
	}
	return rates
}
