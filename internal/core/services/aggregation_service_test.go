package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

type MockRateLookup struct {
	mock.Mock
}

func (m *MockRateLookup) FetchRate(ctx context.Context, fromCode, toCode string) (decimal.Decimal, error) {
	args := m.Called(ctx, fromCode, toCode)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func event(goalID, goalCurrency, assetCurrency string, delta int64, ts time.Time) domain.DerivedEvent {
	return domain.DerivedEvent{
		Timestamp:     ts,
		Source:        domain.SourceDeposit,
		AssetID:       "asset-1",
		AssetCurrency: assetCurrency,
		GoalID:        goalID,
		GoalCurrency:  goalCurrency,
		Delta:         decimal.NewFromInt(delta),
	}
}

func TestAggregateTotals_SameCurrencyAddsDirectly(t *testing.T) {
	lookup := new(MockRateLookup)
	svc := NewAggregationService(lookup)
	ts := time.Now()

	events := []domain.DerivedEvent{
		event("goal-1", "EUR", "EUR", 100, ts),
		event("goal-1", "EUR", "eur", 50, ts), // case-insensitive match
	}

	totals, rates, err := svc.AggregateTotals(context.Background(), events)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(totals["goal-1"]))
	assert.Empty(t, rates)
	lookup.AssertNotCalled(t, "FetchRate")
}

func TestAggregateTotals_ConvertsNettedDelta(t *testing.T) {
	lookup := new(MockRateLookup)
	svc := NewAggregationService(lookup)
	ts := time.Now()

	// Deposits and withdrawals net to 80 BTC-units before a single conversion.
	events := []domain.DerivedEvent{
		event("goal-1", "EUR", "BTC", 100, ts),
		event("goal-1", "EUR", "BTC", -20, ts.Add(time.Hour)),
	}
	lookup.On("FetchRate", mock.Anything, "BTC", "EUR").Return(decimal.NewFromInt(50000), nil).Once()

	totals, rates, err := svc.AggregateTotals(context.Background(), events)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000000).Equal(totals["goal-1"]))
	assert.True(t, decimal.NewFromInt(50000).Equal(rates[RateKey("BTC", "EUR")]))
	lookup.AssertExpectations(t)
}

func TestAggregateTotals_SkipsUnavailablePair(t *testing.T) {
	lookup := new(MockRateLookup)
	svc := NewAggregationService(lookup)
	ts := time.Now()

	// EUR->USD has no registered rate; the BTC contribution must survive.
	events := []domain.DerivedEvent{
		event("goal-1", "USD", "EUR", 100, ts),
		event("goal-1", "USD", "BTC", 1, ts),
	}
	lookup.On("FetchRate", mock.Anything, "EUR", "USD").
		Return(decimal.Zero, apperrors.ErrRateUnavailable).Once()
	lookup.On("FetchRate", mock.Anything, "BTC", "USD").Return(decimal.NewFromInt(60000), nil).Once()

	totals, rates, err := svc.AggregateTotals(context.Background(), events)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60000).Equal(totals["goal-1"]), "unconvertible pair must be skipped, not fail")
	_, cached := rates[RateKey("EUR", "USD")]
	assert.False(t, cached)
	lookup.AssertExpectations(t)
}

func TestAggregateTotals_MemoizesFailuresPerCall(t *testing.T) {
	lookup := new(MockRateLookup)
	svc := NewAggregationService(lookup)
	ts := time.Now()

	// Two goals share the failing pair; the lookup must fire exactly once.
	events := []domain.DerivedEvent{
		event("goal-1", "USD", "EUR", 100, ts),
		event("goal-2", "USD", "EUR", 200, ts),
	}
	lookup.On("FetchRate", mock.Anything, "EUR", "USD").
		Return(decimal.Zero, apperrors.ErrRateUnavailable).Once()

	totals, _, err := svc.AggregateTotals(context.Background(), events)
	require.NoError(t, err)
	assert.Empty(t, totals)
	lookup.AssertExpectations(t)
}

func TestBuildContributionSnapshots(t *testing.T) {
	lookup := new(MockRateLookup)
	svc := NewAggregationService(lookup)
	ts := time.Now()

	events := []domain.DerivedEvent{
		event("goal-1", "EUR", "EUR", 100, ts),
		event("goal-1", "EUR", "BTC", 2, ts.Add(time.Hour)),
		event("goal-2", "USD", "ETH", 10, ts.Add(2*time.Hour)), // no ETH->USD rate
	}
	lookup.On("FetchRate", mock.Anything, "BTC", "EUR").Return(decimal.NewFromInt(50000), nil).Once()
	lookup.On("FetchRate", mock.Anything, "ETH", "USD").
		Return(decimal.Zero, apperrors.ErrRateUnavailable).Once()

	snapshots, rates, err := svc.BuildContributionSnapshots(context.Background(), events)
	require.NoError(t, err)
	require.Len(t, snapshots, 2, "unconvertible event must be dropped from the artifact")

	assert.NotEmpty(t, snapshots[0].SnapshotID)
	assert.True(t, decimal.NewFromInt(1).Equal(snapshots[0].Rate), "same currency converts at exactly 1")
	assert.True(t, decimal.NewFromInt(100).Equal(snapshots[0].GoalAmount))

	assert.True(t, decimal.NewFromInt(50000).Equal(snapshots[1].Rate))
	assert.True(t, decimal.NewFromInt(100000).Equal(snapshots[1].GoalAmount))
	assert.True(t, decimal.NewFromInt(2).Equal(snapshots[1].AssetDelta))

	assert.Len(t, rates, 1)
	lookup.AssertExpectations(t)
}

func TestRateKey(t *testing.T) {
	assert.Equal(t, "BTC->EUR", RateKey("btc", "eur"))
	assert.Equal(t, RateKey("BTC", "EUR"), RateKey("btc", "Eur"))
}
