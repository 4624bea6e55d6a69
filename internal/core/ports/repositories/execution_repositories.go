package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// ExecutionReader defines read operations for monthly execution records.
type ExecutionReader interface {
	// FindRecordByID retrieves a record (with any completion artifact) by id.
	FindRecordByID(ctx context.Context, recordID string) (*domain.MonthlyExecutionRecord, error)

	// FindRecordByMonth retrieves the record for a month label, if any.
	FindRecordByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error)
}

// ExecutionWriter defines write operations for monthly execution records.
// Each lifecycle transition is persisted inside a single database
// transaction so no partial-write state is ever observable.
type ExecutionWriter interface {
	// SaveRecordInTx inserts or updates the record row (status, goal set,
	// planned snapshot, undo clock) within the given transaction.
	SaveRecordInTx(ctx context.Context, tx pgx.Tx, record domain.MonthlyExecutionRecord) error

	// SaveCompletedInTx persists the completion artifact and its contribution
	// snapshots, replacing any previous artifact for the record.
	SaveCompletedInTx(ctx context.Context, tx pgx.Tx, recordID string, completed domain.CompletedExecution) error

	// DeleteCompletedInTx removes the completion artifact for the record.
	DeleteCompletedInTx(ctx context.Context, tx pgx.Tx, recordID string) error
}

// ExecutionRepositoryFacade combines execution record access with database
// transaction management.
type ExecutionRepositoryFacade interface {
	ExecutionReader
	ExecutionWriter
	TransactionManager
}
