package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stashly/stashly_backend/internal/core/domain"
)

// PgxLedgerRepository implements repositories.LedgerRepositoryFacade using
// pgxpool: read-only access to the transaction ledger and current
// allocations, plus the baseline seed/purge writes on allocation history.
type PgxLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PgxLedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *PgxLedgerRepository {
	return &PgxLedgerRepository{pool: pool}
}

// ListTransactionsByAsset retrieves all transactions for an asset up to and
// including the given instant, oldest first.
func (r *PgxLedgerRepository) ListTransactionsByAsset(ctx context.Context, assetID string, until time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT transaction_id, asset_id, amount, timestamp
		FROM transactions
		WHERE asset_id = $1 AND timestamp <= $2
		ORDER BY timestamp ASC;
	`
	rows, err := r.pool.Query(ctx, query, assetID, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for asset %s: %w", assetID, err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(&txn.TransactionID, &txn.AssetID, &txn.Amount, &txn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

const allocationColumns = `allocation_id, asset_id, goal_id, amount, created_at, created_by, last_updated_at, last_updated_by`

func scanAllocations(rows pgx.Rows) ([]domain.Allocation, error) {
	defer rows.Close()
	var allocations []domain.Allocation
	for rows.Next() {
		var alloc domain.Allocation
		err := rows.Scan(
			&alloc.AllocationID, &alloc.AssetID, &alloc.GoalID, &alloc.Amount,
			&alloc.CreatedAt, &alloc.CreatedBy, &alloc.LastUpdatedAt, &alloc.LastUpdatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, alloc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocations, nil
}

// ListAllocationsByGoalIDs retrieves the current allocations targeting any of
// the given goals.
func (r *PgxLedgerRepository) ListAllocationsByGoalIDs(ctx context.Context, goalIDs []string) ([]domain.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE goal_id = ANY($1) ORDER BY asset_id, goal_id;`
	rows, err := r.pool.Query(ctx, query, goalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations by goals: %w", err)
	}
	return scanAllocations(rows)
}

// ListAllocationsByAsset retrieves the current allocations of one asset.
func (r *PgxLedgerRepository) ListAllocationsByAsset(ctx context.Context, assetID string) ([]domain.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE asset_id = $1 ORDER BY goal_id;`
	rows, err := r.pool.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations for asset %s: %w", assetID, err)
	}
	return scanAllocations(rows)
}

const historyColumns = `allocation_history_id, asset_id, goal_id, amount, timestamp, creation_order, COALESCE(record_id, ''), created_at, created_by, last_updated_at, last_updated_by`

func scanHistory(rows pgx.Rows) ([]domain.AllocationHistory, error) {
	defer rows.Close()
	var history []domain.AllocationHistory
	for rows.Next() {
		var h domain.AllocationHistory
		err := rows.Scan(
			&h.AllocationHistoryID, &h.AssetID, &h.GoalID, &h.Amount, &h.Timestamp,
			&h.CreationOrder, &h.RecordID,
			&h.CreatedAt, &h.CreatedBy, &h.LastUpdatedAt, &h.LastUpdatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocation history: %w", err)
	}
	return history, nil
}

// ListHistoryByAsset retrieves allocation-history rows for an asset and the
// given goals up to the given instant, ordered by (timestamp, creation_order)
// so same-instant ties resolve deterministically.
func (r *PgxLedgerRepository) ListHistoryByAsset(ctx context.Context, assetID string, goalIDs []string, until time.Time) ([]domain.AllocationHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM allocation_history
		WHERE asset_id = $1 AND goal_id = ANY($2) AND timestamp <= $3
		ORDER BY timestamp ASC, creation_order ASC;
	`
	rows, err := r.pool.Query(ctx, query, assetID, goalIDs, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation history for asset %s: %w", assetID, err)
	}
	return scanHistory(rows)
}

// ListBaselineByRecord retrieves the baseline rows seeded by an execution
// record.
func (r *PgxLedgerRepository) ListBaselineByRecord(ctx context.Context, recordID string) ([]domain.AllocationHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM allocation_history
		WHERE record_id = $1
		ORDER BY creation_order ASC;
	`
	rows, err := r.pool.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline for record %s: %w", recordID, err)
	}
	return scanHistory(rows)
}

// ListRelevantAssetIDs returns ids of assets that currently allocate to one
// of the goals or appear in allocation history for one of them.
func (r *PgxLedgerRepository) ListRelevantAssetIDs(ctx context.Context, goalIDs []string) ([]string, error) {
	query := `
		SELECT asset_id FROM (
			SELECT DISTINCT asset_id FROM allocations WHERE goal_id = ANY($1)
			UNION
			SELECT DISTINCT asset_id FROM allocation_history WHERE goal_id = ANY($1)
		) relevant
		ORDER BY asset_id;
	`
	rows, err := r.pool.Query(ctx, query, goalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query relevant assets: %w", err)
	}
	defer rows.Close()

	var assetIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset id: %w", err)
		}
		assetIDs = append(assetIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset ids: %w", err)
	}
	return assetIDs, nil
}

// SeedBaselineInTx inserts baseline rows within the given transaction using
// a pgx batch.
func (r *PgxLedgerRepository) SeedBaselineInTx(ctx context.Context, tx pgx.Tx, entries []domain.AllocationHistory) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO allocation_history (allocation_history_id, asset_id, goal_id, amount, timestamp, record_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	for _, entry := range entries {
		batch.Queue(query,
			entry.AllocationHistoryID, entry.AssetID, entry.GoalID, entry.Amount, entry.Timestamp, entry.RecordID,
			entry.CreatedAt, entry.CreatedBy, entry.LastUpdatedAt, entry.LastUpdatedBy,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert baseline rows: %w", err)
	}
	return nil
}

// PurgeBaselineInTx deletes every baseline row seeded by the record within
// the given transaction. Organic history rows (empty record_id) are never
// touched.
func (r *PgxLedgerRepository) PurgeBaselineInTx(ctx context.Context, tx pgx.Tx, recordID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM allocation_history WHERE record_id = $1;`, recordID); err != nil {
		return fmt.Errorf("failed to purge baseline for record %s: %w", recordID, err)
	}
	return nil
}
