package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
	portsrepo "github.com/stashly/stashly_backend/internal/core/ports/repositories"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
	"github.com/stashly/stashly_backend/internal/middleware"
)

// fundedEpsilon is the smallest funded-amount change worth emitting. Changes
// at or below it are treated as arithmetic noise.
var fundedEpsilon = decimal.New(1, -7) // 1e-7

// derivationService replays the transaction and allocation-history ledgers
// and derives funded-amount deltas per (asset, goal) pair. The replay itself
// is pure; the service only loads the ledgers and hands them to it.
type derivationService struct {
	assetRepo  portsrepo.AssetReader
	goalRepo   portsrepo.GoalReader
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewDerivationService creates a new DerivationSvc.
func NewDerivationService(assetRepo portsrepo.AssetReader, goalRepo portsrepo.GoalReader, ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.DerivationSvc {
	return &derivationService{
		assetRepo:  assetRepo,
		goalRepo:   goalRepo,
		ledgerRepo: ledgerRepo,
	}
}

var _ portssvc.DerivationSvc = (*derivationService)(nil)

// DeriveEvents implements portssvc.DerivationSvc.
func (s *derivationService) DeriveEvents(ctx context.Context, record *domain.MonthlyExecutionRecord, end time.Time) ([]domain.DerivedEvent, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if record.StartedAt == nil {
		return nil, fmt.Errorf("%w: record %s has no tracking window", apperrors.ErrInvalidState, record.RecordID)
	}
	start := *record.StartedAt

	goals, err := s.goalRepo.FindGoalsByIDs(ctx, record.GoalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked goals: %w", err)
	}

	assetIDs, err := s.ledgerRepo.ListRelevantAssetIDs(ctx, record.GoalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list relevant assets: %w", err)
	}
	assets, err := s.assetRepo.FindAssetsByIDs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	var events []domain.DerivedEvent
	for _, assetID := range assetIDs {
		asset, found := assets[assetID]
		if !found {
			// Dangling ledger reference: the asset is excluded from the
			// computation, not an error.
			logger.Warn("Skipping unknown asset referenced by ledger", slog.String("asset_id", assetID))
			continue
		}

		transactions, err := s.ledgerRepo.ListTransactionsByAsset(ctx, assetID, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions for asset %s: %w", assetID, err)
		}
		history, err := s.ledgerRepo.ListHistoryByAsset(ctx, assetID, record.GoalIDs, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load allocation history for asset %s: %w", assetID, err)
		}
		current, err := s.ledgerRepo.ListAllocationsByAsset(ctx, assetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load allocations for asset %s: %w", assetID, err)
		}

		events = append(events, replayAsset(asset, goals, transactions, history, current, start, end)...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// replayAsset derives all funded-amount changes for one asset between start
// and end. Pure: same ledgers in, same events out, no matter how often it
// runs.
//
// transactions must cover the full ledger up to end (timestamp ascending);
// history must cover the tracked goals up to end, ordered by
// (timestamp, creationOrder) ascending.
func replayAsset(
	asset domain.Asset,
	goals map[string]domain.Goal,
	transactions []domain.Transaction,
	history []domain.AllocationHistory,
	current []domain.Allocation,
	start, end time.Time,
) []domain.DerivedEvent {
	// Starting balance: the sum of every transaction strictly before the
	// window, floored at zero. The ledger is the system of record; a negative
	// reconstructed balance cannot fund anything.
	balance := decimal.Zero
	for _, txn := range transactions {
		if txn.Timestamp.Before(start) {
			balance = balance.Add(txn.Amount)
		}
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	targets := startingTargets(goals, history, current, start)
	funded := rationFunded(balance, targets)

	var events []domain.DerivedEvent
	for _, inst := range buildTimeline(transactions, history, start, end) {
		if len(inst.targetUpdates) > 0 {
			for goalID, amount := range inst.targetUpdates {
				targets[goalID] = amount
			}
			next := rationFunded(balance, targets)
			events = appendDeltas(events, asset, goals, inst.ts, domain.SourceReallocation, funded, next)
			funded = next
		}
		if inst.hasBalanceDelta {
			// The running balance keeps its sign: a mid-window deficit must be
			// repaid before later deposits fund anything. Only the starting
			// balance is floored.
			balance = balance.Add(inst.balanceDelta)
			next := rationFunded(balance, targets)
			events = appendDeltas(events, asset, goals, inst.ts, domain.SourceDeposit, funded, next)
			funded = next
		}
	}
	return events
}

// startingTargets reconstructs the allocation targets in force at the window
// start: the latest history row at or before start per goal (creation order
// breaks same-instant ties). A goal with no baseline row falls back to the
// current allocation when the asset is dedicated to exactly one tracked goal
// and that goal is the one missing a baseline. A shared asset without a
// baseline is ambiguous and contributes no starting target.
func startingTargets(
	goals map[string]domain.Goal,
	history []domain.AllocationHistory,
	current []domain.Allocation,
	start time.Time,
) map[string]decimal.Decimal {
	targets := make(map[string]decimal.Decimal)
	seen := make(map[string]bool)
	for _, h := range history {
		if h.Timestamp.After(start) {
			continue
		}
		if _, tracked := goals[h.GoalID]; !tracked {
			continue
		}
		// History is ordered by (timestamp, creationOrder); the last row wins.
		targets[h.GoalID] = h.Amount
		seen[h.GoalID] = true
	}

	var tracked []domain.Allocation
	for _, alloc := range current {
		if _, ok := goals[alloc.GoalID]; ok {
			tracked = append(tracked, alloc)
		}
	}
	if len(tracked) == 1 && !seen[tracked[0].GoalID] {
		targets[tracked[0].GoalID] = tracked[0].Amount
	}
	return targets
}

// instant is one point on the merged replay timeline.
type instant struct {
	ts              time.Time
	balanceDelta    decimal.Decimal
	hasBalanceDelta bool
	targetUpdates   map[string]decimal.Decimal
}

// buildTimeline merge-sorts in-window transaction and allocation-history
// timestamps into one ordered sequence. Transactions at the window start
// belong to the window (only strictly earlier ones fed the starting balance);
// history rows at the window start are baseline and already consumed by
// startingTargets.
func buildTimeline(transactions []domain.Transaction, history []domain.AllocationHistory, start, end time.Time) []instant {
	byTime := make(map[int64]*instant)
	at := func(ts time.Time) *instant {
		key := ts.UnixNano()
		inst, ok := byTime[key]
		if !ok {
			inst = &instant{ts: ts}
			byTime[key] = inst
		}
		return inst
	}

	for _, txn := range transactions {
		if txn.Timestamp.Before(start) || txn.Timestamp.After(end) {
			continue
		}
		inst := at(txn.Timestamp)
		inst.balanceDelta = inst.balanceDelta.Add(txn.Amount)
		inst.hasBalanceDelta = true
	}
	for _, h := range history {
		if !h.Timestamp.After(start) || h.Timestamp.After(end) {
			continue
		}
		inst := at(h.Timestamp)
		if inst.targetUpdates == nil {
			inst.targetUpdates = make(map[string]decimal.Decimal)
		}
		// Input order is (timestamp, creationOrder) ascending, so the latest
		// same-instant row per goal wins.
		inst.targetUpdates[h.GoalID] = h.Amount
	}

	timeline := make([]instant, 0, len(byTime))
	for _, inst := range byTime {
		timeline = append(timeline, *inst)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].ts.Before(timeline[j].ts) })
	return timeline
}

// rationFunded splits a balance across goals in proportion to their targets.
// Invariants: sum(funded) == min(balance, sum(targets)); under scarcity the
// target ratios are preserved exactly.
func rationFunded(balance decimal.Decimal, targets map[string]decimal.Decimal) map[string]decimal.Decimal {
	funded := make(map[string]decimal.Decimal, len(targets))
	if balance.LessThanOrEqual(decimal.Zero) {
		for goalID := range targets {
			funded[goalID] = decimal.Zero
		}
		return funded
	}

	total := decimal.Zero
	for _, target := range targets {
		total = total.Add(target)
	}
	if total.IsZero() {
		// No goal is entitled to any amount.
		return funded
	}

	if balance.GreaterThanOrEqual(total) {
		for goalID, target := range targets {
			funded[goalID] = target
		}
		return funded
	}
	for goalID, target := range targets {
		funded[goalID] = balance.Mul(target).Div(total)
	}
	return funded
}

// appendDeltas emits one event per goal whose funded amount moved by more
// than the epsilon, in deterministic goal order.
func appendDeltas(
	events []domain.DerivedEvent,
	asset domain.Asset,
	goals map[string]domain.Goal,
	ts time.Time,
	source domain.EventSource,
	prev, next map[string]decimal.Decimal,
) []domain.DerivedEvent {
	goalIDs := make([]string, 0, len(goals))
	for goalID := range goals {
		goalIDs = append(goalIDs, goalID)
	}
	sort.Strings(goalIDs)

	for _, goalID := range goalIDs {
		delta := next[goalID].Sub(prev[goalID])
		if delta.Abs().LessThanOrEqual(fundedEpsilon) {
			continue
		}
		events = append(events, domain.DerivedEvent{
			Timestamp:     ts,
			Source:        source,
			AssetID:       asset.AssetID,
			AssetCurrency: asset.CurrencyCode,
			GoalID:        goalID,
			GoalCurrency:  goals[goalID].CurrencyCode,
			Delta:         delta,
		})
	}
	return events
}
