package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
	portsrepo "github.com/stashly/stashly_backend/internal/core/ports/repositories"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
	"github.com/stashly/stashly_backend/internal/dto"
	"github.com/stashly/stashly_backend/internal/middleware"
)

// executionService owns the monthly execution record lifecycle
// (DRAFT -> EXECUTING -> CLOSED with a bounded undo window), the allocation
// baseline seed/purge, and the orchestration of derivation and aggregation.
//
// All mutations for a given month are serialized through a per-month mutex,
// so concurrent "ensure record exists" calls cannot race into two records for
// the same label. Each lifecycle transition is persisted as one database
// transaction.
type executionService struct {
	execRepo    portsrepo.ExecutionRepositoryFacade
	ledgerRepo  portsrepo.LedgerRepositoryFacade
	goalRepo    portsrepo.GoalReader
	derivation  portssvc.DerivationSvc
	aggregation portssvc.AggregationSvc
	cache       *ProgressCache

	now func() time.Time

	monthLocks sync.Map // monthLabel -> *sync.Mutex
}

// NewExecutionService creates a new ExecutionSvcFacade.
func NewExecutionService(
	execRepo portsrepo.ExecutionRepositoryFacade,
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	goalRepo portsrepo.GoalReader,
	derivation portssvc.DerivationSvc,
	aggregation portssvc.AggregationSvc,
	cache *ProgressCache,
) portssvc.ExecutionSvcFacade {
	return &executionService{
		execRepo:    execRepo,
		ledgerRepo:  ledgerRepo,
		goalRepo:    goalRepo,
		derivation:  derivation,
		aggregation: aggregation,
		cache:       cache,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ portssvc.ExecutionSvcFacade = (*executionService)(nil)

// lockMonth serializes all lifecycle work for one month label and returns the
// matching unlock.
func (s *executionService) lockMonth(monthLabel string) func() {
	val, _ := s.monthLocks.LoadOrStore(monthLabel, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// StartTracking implements portssvc.ExecutionWriterSvc.
func (s *executionService) StartTracking(ctx context.Context, req dto.StartTrackingRequest, creatorUserID string) (*domain.MonthlyExecutionRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	unlock := s.lockMonth(req.MonthLabel)
	defer unlock()

	record, err := s.execRepo.FindRecordByMonth(ctx, req.MonthLabel)
	switch {
	case err == nil:
		return s.refreshTracking(ctx, record, req, creatorUserID)
	case errors.Is(err, apperrors.ErrNotFound):
		// fall through to creation
	default:
		return nil, fmt.Errorf("failed to look up record for month %s: %w", req.MonthLabel, err)
	}

	now := s.now()
	undoUntil := now.Add(domain.UndoWindow)
	newRecord := domain.MonthlyExecutionRecord{
		RecordID:       uuid.NewString(),
		MonthLabel:     req.MonthLabel,
		GoalIDs:        req.GoalIDs,
		Status:         domain.StatusExecuting,
		StartedAt:      &now,
		CanUndoUntil:   &undoUntil,
		PlannedAmounts: req.PlannedAmounts,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	baseline, err := s.buildBaseline(ctx, &newRecord, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to build allocation baseline: %w", err)
	}

	tx, err := s.execRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.execRepo.Rollback(ctx, tx) }()

	if err := s.execRepo.SaveRecordInTx(ctx, tx, newRecord); err != nil {
		return nil, fmt.Errorf("failed to save execution record: %w", err)
	}
	if err := s.ledgerRepo.SeedBaselineInTx(ctx, tx, baseline); err != nil {
		return nil, fmt.Errorf("failed to seed allocation baseline: %w", err)
	}
	if err := s.execRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	logger.Info("Started execution tracking",
		slog.String("record_id", newRecord.RecordID),
		slog.String("month", newRecord.MonthLabel),
		slog.Int("baseline_entries", len(baseline)),
	)
	return &newRecord, nil
}

// refreshTracking handles the re-entrant StartTracking path: refresh the
// planned snapshot and tracked goals, purge stale derived data, and re-seed
// the baseline only when the existing one is missing or incomplete.
func (s *executionService) refreshTracking(ctx context.Context, record *domain.MonthlyExecutionRecord, req dto.StartTrackingRequest, userID string) (*domain.MonthlyExecutionRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if record.Status == domain.StatusClosed {
		return nil, fmt.Errorf("%w: month %s", apperrors.ErrRecordAlreadyExists, record.MonthLabel)
	}

	now := s.now()
	record.GoalIDs = req.GoalIDs
	record.PlannedAmounts = req.PlannedAmounts
	record.Status = domain.StatusExecuting
	if record.StartedAt == nil {
		undoUntil := now.Add(domain.UndoWindow)
		record.StartedAt = &now
		record.CanUndoUntil = &undoUntil
	}
	record.Completed = nil
	record.LastUpdatedAt = now
	record.LastUpdatedBy = userID

	reseed, baseline := s.shouldReseed(ctx, record, userID)

	tx, err := s.execRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.execRepo.Rollback(ctx, tx) }()

	if err := s.execRepo.SaveRecordInTx(ctx, tx, *record); err != nil {
		return nil, fmt.Errorf("failed to refresh execution record: %w", err)
	}
	// Stale derived data from a prior close is superseded wholesale.
	if err := s.execRepo.DeleteCompletedInTx(ctx, tx, record.RecordID); err != nil {
		return nil, fmt.Errorf("failed to purge stale completion data: %w", err)
	}
	if reseed {
		if err := s.ledgerRepo.PurgeBaselineInTx(ctx, tx, record.RecordID); err != nil {
			return nil, fmt.Errorf("failed to purge stale baseline: %w", err)
		}
		if err := s.ledgerRepo.SeedBaselineInTx(ctx, tx, baseline); err != nil {
			return nil, fmt.Errorf("failed to re-seed baseline: %w", err)
		}
	}
	if err := s.execRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.cache.Invalidate(record.RecordID)
	logger.Info("Refreshed execution tracking",
		slog.String("record_id", record.RecordID),
		slog.String("month", record.MonthLabel),
		slog.Bool("baseline_reseeded", reseed),
	)
	return record, nil
}

// shouldReseed compares the seeded baseline against the current (asset, goal)
// allocation pairs. A reseed is needed when the counts differ or a row lost
// its identifiers. Read failures on this path are logged, not propagated: a
// missed reseed degrades derivation for shared assets but must not fail the
// foreground refresh.
func (s *executionService) shouldReseed(ctx context.Context, record *domain.MonthlyExecutionRecord, userID string) (bool, []domain.AllocationHistory) {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.ledgerRepo.ListBaselineByRecord(ctx, record.RecordID)
	if err != nil {
		logger.Warn("Failed to load existing baseline, skipping reseed", slog.String("error", err.Error()))
		return false, nil
	}
	baseline, err := s.buildBaseline(ctx, record, userID)
	if err != nil {
		logger.Warn("Failed to build replacement baseline, skipping reseed", slog.String("error", err.Error()))
		return false, nil
	}

	complete := len(existing) == len(baseline)
	for _, row := range existing {
		if row.AssetID == "" || row.GoalID == "" {
			complete = false
			break
		}
	}
	if complete {
		return false, nil
	}
	return true, baseline
}

// buildBaseline produces one baseline history row per current allocation that
// targets a tracked goal, stamped at the record's window start.
func (s *executionService) buildBaseline(ctx context.Context, record *domain.MonthlyExecutionRecord, userID string) ([]domain.AllocationHistory, error) {
	allocations, err := s.ledgerRepo.ListAllocationsByGoalIDs(ctx, record.GoalIDs)
	if err != nil {
		return nil, err
	}

	stamp := s.now()
	if record.StartedAt != nil {
		stamp = *record.StartedAt
	}
	baseline := make([]domain.AllocationHistory, 0, len(allocations))
	for _, alloc := range allocations {
		baseline = append(baseline, domain.AllocationHistory{
			AllocationHistoryID: uuid.NewString(),
			AssetID:             alloc.AssetID,
			GoalID:              alloc.GoalID,
			Amount:              alloc.Amount,
			Timestamp:           stamp,
			RecordID:            record.RecordID,
			AuditFields: domain.AuditFields{
				CreatedAt:     stamp,
				CreatedBy:     userID,
				LastUpdatedAt: stamp,
				LastUpdatedBy: userID,
			},
		})
	}
	return baseline, nil
}

// MarkComplete implements portssvc.ExecutionWriterSvc.
func (s *executionService) MarkComplete(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	record, err := s.findRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	unlock := s.lockMonth(record.MonthLabel)
	defer unlock()
	if record, err = s.findRecord(ctx, recordID); err != nil {
		return nil, err
	}

	if record.Status != domain.StatusExecuting {
		return nil, fmt.Errorf("%w: cannot complete a %s record", apperrors.ErrInvalidState, record.Status)
	}

	now := s.now()
	events, err := s.derivation.DeriveEvents(ctx, record, now)
	if err != nil {
		return nil, fmt.Errorf("failed to derive contribution events: %w", err)
	}
	snapshots, rates, err := s.aggregation.BuildContributionSnapshots(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("failed to build contribution snapshots: %w", err)
	}

	completed := domain.CompletedExecution{
		CompletedAt:    now,
		Rates:          rates,
		PlannedAmounts: record.PlannedAmounts,
		Contributions:  snapshots,
	}
	record.Status = domain.StatusClosed
	record.Completed = &completed
	record.LastUpdatedAt = now
	record.LastUpdatedBy = userID

	tx, err := s.execRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.execRepo.Rollback(ctx, tx) }()

	// Any prior artifact is discarded, never merged.
	if err := s.execRepo.DeleteCompletedInTx(ctx, tx, record.RecordID); err != nil {
		return nil, fmt.Errorf("failed to discard prior completion: %w", err)
	}
	if err := s.execRepo.SaveCompletedInTx(ctx, tx, record.RecordID, completed); err != nil {
		return nil, fmt.Errorf("failed to save completion artifact: %w", err)
	}
	if err := s.execRepo.SaveRecordInTx(ctx, tx, *record); err != nil {
		return nil, fmt.Errorf("failed to save execution record: %w", err)
	}
	if err := s.execRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.cache.Invalidate(record.RecordID)
	logger.Info("Completed execution record",
		slog.String("record_id", record.RecordID),
		slog.Int("contributions", len(snapshots)),
	)
	return record, nil
}

// UndoCompletion implements portssvc.ExecutionWriterSvc.
func (s *executionService) UndoCompletion(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error) {
	record, err := s.findRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	unlock := s.lockMonth(record.MonthLabel)
	defer unlock()
	if record, err = s.findRecord(ctx, recordID); err != nil {
		return nil, err
	}

	if record.Status != domain.StatusClosed {
		return nil, fmt.Errorf("%w: cannot undo completion of a %s record", apperrors.ErrInvalidState, record.Status)
	}
	if !record.CanUndo(s.now()) {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrUndoPeriodExpired, record.RecordID)
	}

	record.Status = domain.StatusExecuting
	record.Completed = nil
	record.LastUpdatedAt = s.now()
	record.LastUpdatedBy = userID

	tx, err := s.execRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.execRepo.Rollback(ctx, tx) }()

	if err := s.execRepo.DeleteCompletedInTx(ctx, tx, record.RecordID); err != nil {
		return nil, fmt.Errorf("failed to delete completion artifact: %w", err)
	}
	if err := s.execRepo.SaveRecordInTx(ctx, tx, *record); err != nil {
		return nil, fmt.Errorf("failed to save execution record: %w", err)
	}
	if err := s.execRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.cache.Invalidate(record.RecordID)
	return record, nil
}

// UndoStartTracking implements portssvc.ExecutionWriterSvc.
func (s *executionService) UndoStartTracking(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error) {
	record, err := s.findRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	unlock := s.lockMonth(record.MonthLabel)
	defer unlock()
	if record, err = s.findRecord(ctx, recordID); err != nil {
		return nil, err
	}

	if record.Status != domain.StatusExecuting {
		return nil, fmt.Errorf("%w: cannot undo start of a %s record", apperrors.ErrInvalidState, record.Status)
	}
	if !record.CanUndo(s.now()) {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrUndoPeriodExpired, record.RecordID)
	}

	record.Status = domain.StatusDraft
	record.LastUpdatedAt = s.now()
	record.LastUpdatedBy = userID

	tx, err := s.execRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.execRepo.Rollback(ctx, tx) }()

	if err := s.execRepo.SaveRecordInTx(ctx, tx, *record); err != nil {
		return nil, fmt.Errorf("failed to save execution record: %w", err)
	}
	if err := s.execRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.cache.Invalidate(record.RecordID)
	return record, nil
}

// GetRecordByMonth implements portssvc.ExecutionReaderSvc.
func (s *executionService) GetRecordByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	record, err := s.execRepo.FindRecordByMonth(ctx, monthLabel)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: month %s", apperrors.ErrNotFound, monthLabel)
		}
		return nil, fmt.Errorf("failed to find record for month %s: %w", monthLabel, err)
	}
	return record, nil
}

// GetRecordByID implements portssvc.ExecutionReaderSvc.
func (s *executionService) GetRecordByID(ctx context.Context, recordID string) (*domain.MonthlyExecutionRecord, error) {
	return s.findRecord(ctx, recordID)
}

// GetDerivedContributionTotals implements portssvc.ExecutionReaderSvc.
// Closed records serve the frozen closure totals without recomputation;
// executing records compute live through the derivation engine, memoized by
// the progress cache; drafts have no window and therefore no totals.
func (s *executionService) GetDerivedContributionTotals(ctx context.Context, recordID string) (map[string]decimal.Decimal, error) {
	record, err := s.findRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	switch record.Status {
	case domain.StatusClosed:
		if record.Completed == nil {
			return map[string]decimal.Decimal{}, nil
		}
		return record.Completed.Totals(), nil
	case domain.StatusDraft:
		return map[string]decimal.Decimal{}, nil
	}

	if totals, ok := s.cache.Get(record.RecordID); ok {
		return totals, nil
	}
	events, err := s.derivation.DeriveEvents(ctx, record, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to derive contribution events: %w", err)
	}
	totals, _, err := s.aggregation.AggregateTotals(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate contribution totals: %w", err)
	}
	s.cache.Put(record.RecordID, totals)
	return totals, nil
}

// CalculateProgress implements portssvc.ExecutionReaderSvc.
func (s *executionService) CalculateProgress(ctx context.Context, recordID string) (decimal.Decimal, error) {
	record, err := s.findRecord(ctx, recordID)
	if err != nil {
		return decimal.Zero, err
	}

	planned := decimal.Zero
	for _, amount := range record.PlannedAmounts {
		planned = planned.Add(amount)
	}
	if planned.IsZero() {
		return decimal.Zero, nil
	}

	totals, err := s.GetDerivedContributionTotals(ctx, recordID)
	if err != nil {
		return decimal.Zero, err
	}
	funded := decimal.Zero
	for _, amount := range totals {
		funded = funded.Add(amount)
	}
	return funded.Div(planned).Mul(decimal.NewFromInt(100)), nil
}

func (s *executionService) findRecord(ctx context.Context, recordID string) (*domain.MonthlyExecutionRecord, error) {
	record, err := s.execRepo.FindRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
		}
		return nil, fmt.Errorf("failed to find record %s: %w", recordID, err)
	}
	return record, nil
}
