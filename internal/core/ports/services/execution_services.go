package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stashly/stashly_backend/internal/core/domain"
	"github.com/stashly/stashly_backend/internal/dto"
)

// DerivationSvc replays the transaction and allocation-history ledgers for an
// execution record and produces the derived funding-delta event stream. The
// replay is a pure function of ledger state and window: running it any number
// of times over an unchanged window yields identical events.
type DerivationSvc interface {
	// DeriveEvents computes all funded-amount changes for the record's tracked
	// goals between the record's StartedAt and end, chronologically sorted.
	DeriveEvents(ctx context.Context, record *domain.MonthlyExecutionRecord, end time.Time) ([]domain.DerivedEvent, error)
}

// AggregationSvc nets derived events and converts them into goal-currency
// totals.
type AggregationSvc interface {
	// AggregateTotals nets the event deltas per (goal, asset currency),
	// converts each net delta to the goal's currency and returns the per-goal
	// totals plus the rate cache used. Pairs whose rate lookup fails are
	// skipped, never estimated.
	AggregateTotals(ctx context.Context, events []domain.DerivedEvent) (map[string]decimal.Decimal, map[string]decimal.Decimal, error)

	// BuildContributionSnapshots converts each event individually, for the
	// immutable closure artifact. Uses the same skip-on-failure policy and
	// returns the rate cache used.
	BuildContributionSnapshots(ctx context.Context, events []domain.DerivedEvent) ([]domain.ContributionSnapshot, map[string]decimal.Decimal, error)
}

// ExecutionReaderSvc defines read operations on execution records.
type ExecutionReaderSvc interface {
	// GetRecordByMonth retrieves the execution record for a month label.
	GetRecordByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error)

	// GetRecordByID retrieves an execution record by its id.
	GetRecordByID(ctx context.Context, recordID string) (*domain.MonthlyExecutionRecord, error)

	// GetDerivedContributionTotals returns per-goal funded totals in goal
	// currency: frozen when the record is closed, computed live while it is
	// executing, empty while it is a draft.
	GetDerivedContributionTotals(ctx context.Context, recordID string) (map[string]decimal.Decimal, error)

	// CalculateProgress returns total funded over total planned as a
	// percentage, 0 when nothing is planned.
	CalculateProgress(ctx context.Context, recordID string) (decimal.Decimal, error)
}

// ExecutionWriterSvc defines the lifecycle transitions of execution records.
type ExecutionWriterSvc interface {
	// StartTracking creates or refreshes the record for a month and seeds the
	// allocation baseline. Fails with apperrors.ErrRecordAlreadyExists when
	// the month's record is already closed.
	StartTracking(ctx context.Context, req dto.StartTrackingRequest, creatorUserID string) (*domain.MonthlyExecutionRecord, error)

	// MarkComplete transitions EXECUTING -> CLOSED and freezes the
	// completion artifact.
	MarkComplete(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error)

	// UndoCompletion transitions CLOSED -> EXECUTING within the undo window
	// and deletes the completion artifact.
	UndoCompletion(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error)

	// UndoStartTracking transitions EXECUTING -> DRAFT within the undo window.
	UndoStartTracking(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error)
}

// ExecutionSvcFacade combines all execution-record service interfaces.
type ExecutionSvcFacade interface {
	ExecutionReaderSvc
	ExecutionWriterSvc
}
