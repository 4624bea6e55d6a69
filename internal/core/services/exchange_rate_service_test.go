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
	"github.com/stashly/stashly_backend/internal/dto"
)

type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) FindExchangeRate(ctx context.Context, fromCode, toCode string) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, fromCode, toCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func TestCreateExchangeRate_Validation(t *testing.T) {
	repo := new(MockExchangeRateRepository)
	svc := NewExchangeRateService(repo, NewProgressCache(DefaultProgressCacheTTL))

	tests := []struct {
		name string
		req  dto.CreateExchangeRateRequest
	}{
		{
			name: "non-positive rate",
			req: dto.CreateExchangeRateRequest{
				FromCurrencyCode: "EUR", ToCurrencyCode: "USD",
				Rate: decimal.Zero, DateEffective: time.Now(),
			},
		},
		{
			name: "identical codes",
			req: dto.CreateExchangeRateRequest{
				FromCurrencyCode: "EUR", ToCurrencyCode: "EUR",
				Rate: decimal.NewFromInt(1), DateEffective: time.Now(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExchangeRate(context.Background(), tt.req, "user-1")
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	repo.AssertNotCalled(t, "SaveExchangeRate")
}

func TestCreateExchangeRate_Persists(t *testing.T) {
	repo := new(MockExchangeRateRepository)
	svc := NewExchangeRateService(repo, NewProgressCache(DefaultProgressCacheTTL))

	var saved domain.ExchangeRate
	repo.On("SaveExchangeRate", mock.Anything, mock.AnythingOfType("domain.ExchangeRate")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.ExchangeRate) }).
		Return(nil).Once()

	rate, err := svc.CreateExchangeRate(context.Background(), dto.CreateExchangeRateRequest{
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "USD",
		Rate:             decimal.NewFromFloat(1.08),
		DateEffective:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, "user-1")

	require.NoError(t, err)
	assert.NotEmpty(t, rate.ExchangeRateID)
	assert.Equal(t, "user-1", saved.CreatedBy)
	assert.True(t, decimal.NewFromFloat(1.08).Equal(saved.Rate))
	repo.AssertExpectations(t)
}

func TestCreateExchangeRate_InvalidatesCachedTotals(t *testing.T) {
	repo := new(MockExchangeRateRepository)
	cache := NewProgressCache(DefaultProgressCacheTTL)
	svc := NewExchangeRateService(repo, cache)

	// Totals cached under the old rate table must not survive a new rate.
	cache.Put("record-1", map[string]decimal.Decimal{"goal-1": decimal.NewFromInt(100)})
	cache.Put("record-2", map[string]decimal.Decimal{"goal-2": decimal.NewFromInt(200)})

	repo.On("SaveExchangeRate", mock.Anything, mock.AnythingOfType("domain.ExchangeRate")).Return(nil).Once()

	_, err := svc.CreateExchangeRate(context.Background(), dto.CreateExchangeRateRequest{
		FromCurrencyCode: "BTC",
		ToCurrencyCode:   "EUR",
		Rate:             decimal.NewFromInt(50000),
		DateEffective:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, "user-1")

	require.NoError(t, err)
	_, ok := cache.Get("record-1")
	assert.False(t, ok)
	_, ok = cache.Get("record-2")
	assert.False(t, ok)
}

func TestFetchRate_IdenticalCodesAreUnity(t *testing.T) {
	repo := new(MockExchangeRateRepository)
	svc := NewExchangeRateService(repo, NewProgressCache(DefaultProgressCacheTTL))

	rate, err := svc.FetchRate(context.Background(), "eur", "EUR")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(rate))
	repo.AssertNotCalled(t, "FindExchangeRate")
}

func TestFetchRate_UppercasesLookup(t *testing.T) {
	repo := new(MockExchangeRateRepository)
	svc := NewExchangeRateService(repo, NewProgressCache(DefaultProgressCacheTTL))

	repo.On("FindExchangeRate", mock.Anything, "BTC", "EUR").
		Return(&domain.ExchangeRate{Rate: decimal.NewFromInt(50000)}, nil).Once()

	rate, err := svc.FetchRate(context.Background(), "btc", "eur")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50000).Equal(rate))
	repo.AssertExpectations(t)
}

func TestFetchRate_MissingPairIsUnavailable(t *testing.T) {
	repo := new(MockExchangeRateRepository)
	svc := NewExchangeRateService(repo, NewProgressCache(DefaultProgressCacheTTL))

	repo.On("FindExchangeRate", mock.Anything, "ETH", "USD").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := svc.FetchRate(context.Background(), "ETH", "USD")
	assert.ErrorIs(t, err, apperrors.ErrRateUnavailable)
}
