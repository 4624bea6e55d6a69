package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// --- Mock repositories ---

type MockAssetReader struct {
	mock.Mock
}

func (m *MockAssetReader) FindAssetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetReader) FindAssetsByIDs(ctx context.Context, assetIDs []string) (map[string]domain.Asset, error) {
	args := m.Called(ctx, assetIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Asset), args.Error(1)
}

type MockGoalReader struct {
	mock.Mock
}

func (m *MockGoalReader) FindGoalByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	args := m.Called(ctx, goalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Goal), args.Error(1)
}

func (m *MockGoalReader) FindGoalsByIDs(ctx context.Context, goalIDs []string) (map[string]domain.Goal, error) {
	args := m.Called(ctx, goalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Goal), args.Error(1)
}

// --- Fixtures ---

var windowStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func eur(assetID string) domain.Asset {
	return domain.Asset{AssetID: assetID, Name: "EUR account", CurrencyCode: "EUR"}
}

func trackedGoals(ids ...string) map[string]domain.Goal {
	goals := make(map[string]domain.Goal, len(ids))
	for _, id := range ids {
		goals[id] = domain.Goal{GoalID: id, CurrencyCode: "EUR", TargetAmount: decimal.NewFromInt(10000)}
	}
	return goals
}

func txn(assetID string, amount int64, ts time.Time) domain.Transaction {
	return domain.Transaction{TransactionID: uuid.NewString(), AssetID: assetID, Amount: decimal.NewFromInt(amount), Timestamp: ts}
}

func histRow(assetID, goalID string, amount int64, ts time.Time, order int64) domain.AllocationHistory {
	return domain.AllocationHistory{
		AllocationHistoryID: uuid.NewString(),
		AssetID:             assetID,
		GoalID:              goalID,
		Amount:              decimal.NewFromInt(amount),
		Timestamp:           ts,
		CreationOrder:       order,
	}
}

// sumDeltasPerGoal folds an event stream into per-goal totals.
func sumDeltasPerGoal(events []domain.DerivedEvent) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range events {
		totals[e.GoalID] = totals[e.GoalID].Add(e.Delta)
	}
	return totals
}

// --- rationFunded ---

func TestRationFunded(t *testing.T) {
	g1, g2 := "goal-1", "goal-2"

	tests := []struct {
		name    string
		balance decimal.Decimal
		targets map[string]decimal.Decimal
		want    map[string]decimal.Decimal
	}{
		{
			name:    "zero balance funds nothing",
			balance: decimal.Zero,
			targets: map[string]decimal.Decimal{g1: decimal.NewFromInt(600), g2: decimal.NewFromInt(400)},
			want:    map[string]decimal.Decimal{g1: decimal.Zero, g2: decimal.Zero},
		},
		{
			name:    "negative balance funds nothing",
			balance: decimal.NewFromInt(-50),
			targets: map[string]decimal.Decimal{g1: decimal.NewFromInt(100)},
			want:    map[string]decimal.Decimal{g1: decimal.Zero},
		},
		{
			name:    "zero targets entitle nothing",
			balance: decimal.NewFromInt(500),
			targets: map[string]decimal.Decimal{g1: decimal.Zero, g2: decimal.Zero},
			want:    map[string]decimal.Decimal{},
		},
		{
			name:    "abundance caps at targets",
			balance: decimal.NewFromInt(5000),
			targets: map[string]decimal.Decimal{g1: decimal.NewFromInt(600), g2: decimal.NewFromInt(400)},
			want:    map[string]decimal.Decimal{g1: decimal.NewFromInt(600), g2: decimal.NewFromInt(400)},
		},
		{
			name:    "scarcity rations proportionally",
			balance: decimal.NewFromInt(500),
			targets: map[string]decimal.Decimal{g1: decimal.NewFromInt(600), g2: decimal.NewFromInt(400)},
			want:    map[string]decimal.Decimal{g1: decimal.NewFromInt(300), g2: decimal.NewFromInt(200)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rationFunded(tt.balance, tt.targets)
			require.Len(t, got, len(tt.want))
			for goalID, want := range tt.want {
				assert.True(t, want.Equal(got[goalID]), "goal %s: want %s got %s", goalID, want, got[goalID])
			}
		})
	}
}

func TestRationFunded_SumNeverExceedsBalance(t *testing.T) {
	targets := map[string]decimal.Decimal{
		"a": decimal.NewFromInt(300),
		"b": decimal.NewFromInt(500),
		"c": decimal.NewFromInt(200),
	}
	for _, balance := range []int64{0, 1, 250, 999, 1000, 1001, 100000} {
		funded := rationFunded(decimal.NewFromInt(balance), targets)
		sum := decimal.Zero
		for _, amount := range funded {
			sum = sum.Add(amount)
			assert.False(t, amount.IsNegative(), "funded amount must never be negative")
		}
		assert.True(t, sum.LessThanOrEqual(decimal.NewFromInt(balance)) || balance <= 0,
			"balance %d: funded sum %s exceeds balance", balance, sum)
	}
}

// --- startingTargets ---

func TestStartingTargets(t *testing.T) {
	assetID := "asset-1"
	g1, g2 := "goal-1", "goal-2"
	goals := trackedGoals(g1, g2)

	t.Run("latest row at or before start wins", func(t *testing.T) {
		history := []domain.AllocationHistory{
			histRow(assetID, g1, 100, windowStart.Add(-48*time.Hour), 1),
			histRow(assetID, g1, 250, windowStart, 2),
			histRow(assetID, g1, 999, windowStart.Add(time.Hour), 3), // after start, ignored
		}
		targets := startingTargets(goals, history, nil, windowStart)
		assert.True(t, decimal.NewFromInt(250).Equal(targets[g1]))
	})

	t.Run("same instant resolves by creation order", func(t *testing.T) {
		history := []domain.AllocationHistory{
			histRow(assetID, g1, 100, windowStart, 5),
			histRow(assetID, g1, 300, windowStart, 6),
		}
		targets := startingTargets(goals, history, nil, windowStart)
		assert.True(t, decimal.NewFromInt(300).Equal(targets[g1]))
	})

	t.Run("untracked goals excluded", func(t *testing.T) {
		history := []domain.AllocationHistory{
			histRow(assetID, "other-goal", 100, windowStart, 1),
			histRow(assetID, g2, 50, windowStart, 2),
		}
		targets := startingTargets(goals, history, nil, windowStart)
		_, hasOther := targets["other-goal"]
		assert.False(t, hasOther)
		assert.True(t, decimal.NewFromInt(50).Equal(targets[g2]))
	})

	t.Run("fallback to single dedicated allocation", func(t *testing.T) {
		current := []domain.Allocation{
			{AllocationID: uuid.NewString(), AssetID: assetID, GoalID: g1, Amount: decimal.NewFromInt(100)},
		}
		targets := startingTargets(goals, nil, current, windowStart)
		assert.True(t, decimal.NewFromInt(100).Equal(targets[g1]))
	})

	t.Run("fallback applies per goal beside existing baselines", func(t *testing.T) {
		// goal-1 has a baseline row; goal-2 has none but holds the asset's
		// only current allocation, so it falls back to that.
		history := []domain.AllocationHistory{
			histRow(assetID, g1, 100, windowStart.Add(-24*time.Hour), 1),
		}
		current := []domain.Allocation{
			{AllocationID: uuid.NewString(), AssetID: assetID, GoalID: g2, Amount: decimal.NewFromInt(200)},
		}
		targets := startingTargets(goals, history, current, windowStart)
		assert.True(t, decimal.NewFromInt(100).Equal(targets[g1]))
		assert.True(t, decimal.NewFromInt(200).Equal(targets[g2]))
	})

	t.Run("baseline wins over current allocation", func(t *testing.T) {
		history := []domain.AllocationHistory{
			histRow(assetID, g1, 250, windowStart.Add(-time.Hour), 1),
		}
		current := []domain.Allocation{
			{AllocationID: uuid.NewString(), AssetID: assetID, GoalID: g1, Amount: decimal.NewFromInt(999)},
		}
		targets := startingTargets(goals, history, current, windowStart)
		assert.True(t, decimal.NewFromInt(250).Equal(targets[g1]))
	})

	t.Run("no fallback for shared asset without baseline", func(t *testing.T) {
		current := []domain.Allocation{
			{AllocationID: uuid.NewString(), AssetID: assetID, GoalID: g1, Amount: decimal.NewFromInt(100)},
			{AllocationID: uuid.NewString(), AssetID: assetID, GoalID: g2, Amount: decimal.NewFromInt(200)},
		}
		targets := startingTargets(goals, nil, current, windowStart)
		assert.Empty(t, targets)
	})
}

// --- replayAsset scenarios ---

func TestReplayAsset_WithdrawalUnderScarcity(t *testing.T) {
	assetID := "asset-1"
	g1, g2 := "goal-1", "goal-2"
	asset := eur(assetID)
	goals := trackedGoals(g1, g2)
	end := windowStart.Add(30 * 24 * time.Hour)

	// Balance 1000 before the window, targets 600/400 seeded at the window
	// start, then a 500 withdrawal mid-window.
	transactions := []domain.Transaction{
		txn(assetID, 1000, windowStart.Add(-time.Hour)),
		txn(assetID, -500, windowStart.Add(24*time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 600, windowStart, 1),
		histRow(assetID, g2, 400, windowStart, 2),
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)

	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, domain.SourceDeposit, e.Source)
		assert.Equal(t, "EUR", e.AssetCurrency)
	}
	totals := sumDeltasPerGoal(events)
	assert.True(t, decimal.NewFromInt(-300).Equal(totals[g1]), "goal-1 delta: %s", totals[g1])
	assert.True(t, decimal.NewFromInt(-200).Equal(totals[g2]), "goal-2 delta: %s", totals[g2])
}

func TestReplayAsset_FallbackAllocationFundsDeposit(t *testing.T) {
	assetID := "asset-1"
	g1 := "goal-1"
	asset := eur(assetID)
	goals := trackedGoals(g1)
	end := windowStart.Add(30 * 24 * time.Hour)

	// No baseline at all; the asset is dedicated to one tracked goal so its
	// current allocation serves as the starting target.
	transactions := []domain.Transaction{
		txn(assetID, 100, windowStart.Add(2*time.Hour)),
	}
	current := []domain.Allocation{
		{AllocationID: uuid.NewString(), AssetID: assetID, GoalID: g1, Amount: decimal.NewFromInt(100)},
	}

	events := replayAsset(asset, goals, transactions, nil, current, windowStart, end)

	require.Len(t, events, 1)
	assert.Equal(t, g1, events[0].GoalID)
	assert.Equal(t, domain.SourceDeposit, events[0].Source)
	assert.True(t, decimal.NewFromInt(100).Equal(events[0].Delta))
}

func TestReplayAsset_ReallocationShiftsFunding(t *testing.T) {
	assetID := "asset-1"
	g1, g2 := "goal-1", "goal-2"
	asset := eur(assetID)
	goals := trackedGoals(g1, g2)
	end := windowStart.Add(30 * 24 * time.Hour)

	transactions := []domain.Transaction{
		txn(assetID, 1000, windowStart.Add(-time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 600, windowStart, 1),
		histRow(assetID, g2, 400, windowStart, 2),
		histRow(assetID, g1, 800, windowStart.Add(10*24*time.Hour), 3),
		histRow(assetID, g2, 200, windowStart.Add(10*24*time.Hour), 4),
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)

	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, domain.SourceReallocation, e.Source)
	}
	totals := sumDeltasPerGoal(events)
	assert.True(t, decimal.NewFromInt(200).Equal(totals[g1]))
	assert.True(t, decimal.NewFromInt(-200).Equal(totals[g2]))
}

func TestReplayAsset_TransactionAtWindowStartIsInWindow(t *testing.T) {
	assetID := "asset-1"
	g1 := "goal-1"
	asset := eur(assetID)
	goals := trackedGoals(g1)
	end := windowStart.Add(24 * time.Hour)

	transactions := []domain.Transaction{
		txn(assetID, 100, windowStart), // exactly at start: part of the window
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 100, windowStart, 1), // baseline, consumed by startingTargets
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)

	require.Len(t, events, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(events[0].Delta))
}

func TestReplayAsset_NegativeReconstructedBalanceFloorsAtZero(t *testing.T) {
	assetID := "asset-1"
	g1 := "goal-1"
	asset := eur(assetID)
	goals := trackedGoals(g1)
	end := windowStart.Add(24 * time.Hour)

	// Ledger nets negative before the window: treated as zero, so the first
	// in-window deposit funds from scratch.
	transactions := []domain.Transaction{
		txn(assetID, -300, windowStart.Add(-time.Hour)),
		txn(assetID, 50, windowStart.Add(time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 100, windowStart, 1),
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)

	require.Len(t, events, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(events[0].Delta))
}

func TestReplayAsset_MidWindowDeficitMustBeRepaid(t *testing.T) {
	assetID := "asset-1"
	g1 := "goal-1"
	asset := eur(assetID)
	goals := trackedGoals(g1)
	end := windowStart.Add(30 * 24 * time.Hour)

	// The balance dips below zero mid-window. The recovery deposit only pays
	// off the deficit, so it must not fund the goal; funding resumes once the
	// balance is positive again.
	transactions := []domain.Transaction{
		txn(assetID, 50, windowStart.Add(-time.Hour)),
		txn(assetID, -150, windowStart.Add(10*time.Hour)),
		txn(assetID, 100, windowStart.Add(20*time.Hour)),
		txn(assetID, 150, windowStart.Add(30*time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 100, windowStart, 1),
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)

	require.Len(t, events, 2)
	assert.True(t, decimal.NewFromInt(-50).Equal(events[0].Delta), "dip: %s", events[0].Delta)
	assert.Equal(t, windowStart.Add(10*time.Hour), events[0].Timestamp)
	assert.True(t, decimal.NewFromInt(100).Equal(events[1].Delta), "recovery: %s", events[1].Delta)
	assert.Equal(t, windowStart.Add(30*time.Hour), events[1].Timestamp)

	// Cumulative funding telescopes to a direct rationing of the final
	// balance: 50 start + (-50) + 100 == ration(150, {100}).
	totals := sumDeltasPerGoal(events)
	assert.True(t, decimal.NewFromInt(50).Equal(totals[g1]))
}

func TestReplayAsset_DipAndFullRecoveryFundsNothing(t *testing.T) {
	assetID := "asset-1"
	g1 := "goal-1"
	asset := eur(assetID)
	goals := trackedGoals(g1)
	end := windowStart.Add(24 * time.Hour)

	// Zero starting balance, a withdrawal and a deposit that exactly cancel:
	// the final balance is zero, so nothing may end up funded.
	transactions := []domain.Transaction{
		txn(assetID, -100, windowStart.Add(time.Hour)),
		txn(assetID, 100, windowStart.Add(2*time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 100, windowStart, 1),
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)

	totals := sumDeltasPerGoal(events)
	assert.True(t, totals[g1].IsZero(), "net funding: %s", totals[g1])
}

func TestReplayAsset_Idempotent(t *testing.T) {
	assetID := "asset-1"
	g1, g2 := "goal-1", "goal-2"
	asset := eur(assetID)
	goals := trackedGoals(g1, g2)
	end := windowStart.Add(30 * 24 * time.Hour)

	transactions := []domain.Transaction{
		txn(assetID, 700, windowStart.Add(-time.Hour)),
		txn(assetID, 300, windowStart.Add(time.Hour)),
		txn(assetID, -450, windowStart.Add(48*time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 600, windowStart, 1),
		histRow(assetID, g2, 400, windowStart, 2),
		histRow(assetID, g1, 500, windowStart.Add(72*time.Hour), 3),
	}

	first := replayAsset(asset, goals, transactions, history, nil, windowStart, end)
	second := replayAsset(asset, goals, transactions, history, nil, windowStart, end)
	assert.Equal(t, first, second)
}

// TestReplayAsset_DeltasTelescopeToFinalRationing: with nothing funded before
// the window, the sum of all emitted deltas per goal must equal a direct
// rationing of the final balance over the final targets.
func TestReplayAsset_DeltasTelescopeToFinalRationing(t *testing.T) {
	assetID := "asset-1"
	g1, g2 := "goal-1", "goal-2"
	asset := eur(assetID)
	goals := trackedGoals(g1, g2)
	end := windowStart.Add(30 * 24 * time.Hour)

	transactions := []domain.Transaction{
		txn(assetID, 400, windowStart.Add(1*time.Hour)),
		txn(assetID, 350, windowStart.Add(50*time.Hour)),
		txn(assetID, -200, windowStart.Add(100*time.Hour)),
		txn(assetID, 120, windowStart.Add(200*time.Hour)),
	}
	history := []domain.AllocationHistory{
		histRow(assetID, g1, 600, windowStart, 1),
		histRow(assetID, g2, 400, windowStart, 2),
		histRow(assetID, g1, 300, windowStart.Add(80*time.Hour), 3),
		histRow(assetID, g2, 500, windowStart.Add(150*time.Hour), 4),
	}

	events := replayAsset(asset, goals, transactions, history, nil, windowStart, end)
	totals := sumDeltasPerGoal(events)

	finalBalance := decimal.NewFromInt(400 + 350 - 200 + 120)
	finalTargets := map[string]decimal.Decimal{
		g1: decimal.NewFromInt(300),
		g2: decimal.NewFromInt(500),
	}
	want := rationFunded(finalBalance, finalTargets)

	for _, goalID := range []string{g1, g2} {
		diff := want[goalID].Sub(totals[goalID]).Abs()
		assert.True(t, diff.LessThanOrEqual(fundedEpsilon),
			"goal %s: telescoped %s vs direct %s", goalID, totals[goalID], want[goalID])
	}
}

// --- DeriveEvents orchestration ---

func TestDeriveEvents_RequiresTrackingWindow(t *testing.T) {
	svc := NewDerivationService(new(MockAssetReader), new(MockGoalReader), new(MockLedgerRepository))
	record := &domain.MonthlyExecutionRecord{RecordID: uuid.NewString(), Status: domain.StatusDraft}

	_, err := svc.DeriveEvents(context.Background(), record, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestDeriveEvents_SkipsUnknownAssets(t *testing.T) {
	g1 := "goal-1"
	knownID, ghostID := "asset-known", "asset-ghost"
	end := windowStart.Add(24 * time.Hour)

	assetRepo := new(MockAssetReader)
	goalRepo := new(MockGoalReader)
	ledgerRepo := new(MockLedgerRepository)

	goalRepo.On("FindGoalsByIDs", mock.Anything, []string{g1}).Return(trackedGoals(g1), nil)
	ledgerRepo.On("ListRelevantAssetIDs", mock.Anything, []string{g1}).Return([]string{ghostID, knownID}, nil)
	// The ghost asset appears in the ledger but not in the catalog.
	assetRepo.On("FindAssetsByIDs", mock.Anything, []string{ghostID, knownID}).
		Return(map[string]domain.Asset{knownID: eur(knownID)}, nil)

	ledgerRepo.On("ListTransactionsByAsset", mock.Anything, knownID, end).
		Return([]domain.Transaction{txn(knownID, 100, windowStart.Add(time.Hour))}, nil)
	ledgerRepo.On("ListHistoryByAsset", mock.Anything, knownID, []string{g1}, end).
		Return([]domain.AllocationHistory{histRow(knownID, g1, 100, windowStart, 1)}, nil)
	ledgerRepo.On("ListAllocationsByAsset", mock.Anything, knownID).Return([]domain.Allocation{}, nil)

	svc := NewDerivationService(assetRepo, goalRepo, ledgerRepo)
	record := &domain.MonthlyExecutionRecord{
		RecordID:  uuid.NewString(),
		GoalIDs:   []string{g1},
		Status:    domain.StatusExecuting,
		StartedAt: &windowStart,
	}

	events, err := svc.DeriveEvents(context.Background(), record, end)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, knownID, events[0].AssetID)

	ledgerRepo.AssertNotCalled(t, "ListTransactionsByAsset", mock.Anything, ghostID, mock.Anything)
}
