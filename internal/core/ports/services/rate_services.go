package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stashly/stashly_backend/internal/core/domain"
	"github.com/stashly/stashly_backend/internal/dto"
)

// RateLookupSvc is the conversion-rate collaborator consumed by aggregation.
type RateLookupSvc interface {
	// FetchRate resolves the multiplier from one currency to another.
	// Returns decimal.NewFromInt(1) when the codes are equal
	// (case-insensitive) and apperrors.ErrRateUnavailable when no rate is
	// registered for the pair.
	FetchRate(ctx context.Context, fromCode, toCode string) (decimal.Decimal, error)
}

// ExchangeRateReaderSvc defines read operations for exchange rate data.
type ExchangeRateReaderSvc interface {
	// GetExchangeRate retrieves an exchange rate between two currencies.
	GetExchangeRate(ctx context.Context, fromCode, toCode string) (*domain.ExchangeRate, error)
}

// ExchangeRateWriterSvc defines write operations for exchange rate data.
type ExchangeRateWriterSvc interface {
	// CreateExchangeRate persists a new exchange rate.
	CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, creatorUserID string) (*domain.ExchangeRate, error)
}

// ExchangeRateSvcFacade combines all exchange-rate-related service interfaces.
type ExchangeRateSvcFacade interface {
	RateLookupSvc
	ExchangeRateReaderSvc
	ExchangeRateWriterSvc
}
