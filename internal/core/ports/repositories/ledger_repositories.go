package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// TransactionReader defines read-only access to the asset transaction ledger.
// The ledger is written by the external balance-sync collaborator.
type TransactionReader interface {
	// ListTransactionsByAsset retrieves all transactions for an asset with
	// timestamp <= until, ordered by timestamp ascending.
	ListTransactionsByAsset(ctx context.Context, assetID string, until time.Time) ([]domain.Transaction, error)
}

// AllocationReader defines read operations for current allocation targets.
type AllocationReader interface {
	// ListAllocationsByGoalIDs retrieves the current allocations targeting any
	// of the given goals, ordered by asset id.
	ListAllocationsByGoalIDs(ctx context.Context, goalIDs []string) ([]domain.Allocation, error)

	// ListAllocationsByAsset retrieves the current allocations of one asset.
	ListAllocationsByAsset(ctx context.Context, assetID string) ([]domain.Allocation, error)
}

// AllocationHistoryReader defines read operations for the allocation-history
// ledger.
type AllocationHistoryReader interface {
	// ListHistoryByAsset retrieves all allocation-history rows for an asset
	// restricted to the given goals, with timestamp <= until, ordered by
	// (timestamp, creation_order) ascending.
	ListHistoryByAsset(ctx context.Context, assetID string, goalIDs []string, until time.Time) ([]domain.AllocationHistory, error)

	// ListBaselineByRecord retrieves the baseline rows seeded by an execution
	// record.
	ListBaselineByRecord(ctx context.Context, recordID string) ([]domain.AllocationHistory, error)

	// ListRelevantAssetIDs returns ids of assets that either currently
	// allocate to one of the given goals or have an allocation-history row
	// mentioning one of them.
	ListRelevantAssetIDs(ctx context.Context, goalIDs []string) ([]string, error)
}

// AllocationHistoryWriter defines the baseline seed/purge operations. These
// are the only writes this subsystem performs against allocation history.
type AllocationHistoryWriter interface {
	// SeedBaselineInTx inserts baseline rows within the given database
	// transaction.
	SeedBaselineInTx(ctx context.Context, tx pgx.Tx, entries []domain.AllocationHistory) error

	// PurgeBaselineInTx deletes all baseline rows seeded by the given record
	// within the given database transaction.
	PurgeBaselineInTx(ctx context.Context, tx pgx.Tx, recordID string) error
}

// LedgerRepositoryFacade combines all ledger-side repository interfaces for
// clients that need the full set.
type LedgerRepositoryFacade interface {
	TransactionReader
	AllocationReader
	AllocationHistoryReader
	AllocationHistoryWriter
}
