package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
	portsrepo "github.com/stashly/stashly_backend/internal/core/ports/repositories"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
	"github.com/stashly/stashly_backend/internal/dto"
)

// exchangeRateService provides business logic for exchange rates and is the
// concrete rate-lookup collaborator behind aggregation. It holds the progress
// cache because a new rate changes the live totals of every executing record.
type exchangeRateService struct {
	rateRepo portsrepo.ExchangeRateRepository
	cache    *ProgressCache
}

// NewExchangeRateService creates a new ExchangeRateSvcFacade.
func NewExchangeRateService(rateRepo portsrepo.ExchangeRateRepository, cache *ProgressCache) portssvc.ExchangeRateSvcFacade {
	return &exchangeRateService{rateRepo: rateRepo, cache: cache}
}

var _ portssvc.ExchangeRateSvcFacade = (*exchangeRateService)(nil)

// CreateExchangeRate handles the creation of a new exchange rate.
func (s *exchangeRateService) CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, creatorUserID string) (*domain.ExchangeRate, error) {
	if req.Rate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: exchange rate must be positive", apperrors.ErrValidation)
	}
	if req.FromCurrencyCode == req.ToCurrencyCode {
		return nil, fmt.Errorf("%w: from and to currency codes cannot be the same", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	rate := domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: req.FromCurrencyCode,
		ToCurrencyCode:   req.ToCurrencyCode,
		Rate:             req.Rate,
		DateEffective:    req.DateEffective,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.rateRepo.SaveExchangeRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to create exchange rate: %w", err)
	}
	// Every cached live total may have been computed with the old rate table.
	s.cache.InvalidateAll()
	return &rate, nil
}

// GetExchangeRate retrieves the latest exchange rate for a currency pair.
func (s *exchangeRateService) GetExchangeRate(ctx context.Context, fromCode, toCode string) (*domain.ExchangeRate, error) {
	fromCode = strings.ToUpper(fromCode)
	toCode = strings.ToUpper(toCode)
	if len(fromCode) != 3 || len(toCode) != 3 {
		return nil, fmt.Errorf("%w: currency codes must be 3 letters", apperrors.ErrValidation)
	}

	rate, err := s.rateRepo.FindExchangeRate(ctx, fromCode, toCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}
	return rate, nil
}

// FetchRate implements portssvc.RateLookupSvc. Identical codes convert at
// exactly 1; a pair with no registered rate maps to ErrRateUnavailable so
// callers can distinguish an outage from a hard failure.
func (s *exchangeRateService) FetchRate(ctx context.Context, fromCode, toCode string) (decimal.Decimal, error) {
	if strings.EqualFold(fromCode, toCode) {
		return decimal.NewFromInt(1), nil
	}

	rate, err := s.rateRepo.FindExchangeRate(ctx, strings.ToUpper(fromCode), strings.ToUpper(toCode))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: %s to %s", apperrors.ErrRateUnavailable, fromCode, toCode)
		}
		return decimal.Zero, fmt.Errorf("rate lookup for %s to %s: %w", fromCode, toCode, err)
	}
	return rate.Rate, nil
}
