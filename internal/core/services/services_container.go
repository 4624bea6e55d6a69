package services

import (
	"time"

	portsrepo "github.com/stashly/stashly_backend/internal/core/ports/repositories"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
)

// NewServiceContainer wires the application services with their repository
// dependencies. Constructors receive their collaborators explicitly; there is
// no ambient global state.
func NewServiceContainer(repos *portsrepo.RepositoryProvider, progressCacheTTL time.Duration) *portssvc.ServiceContainer {
	cache := NewProgressCache(progressCacheTTL)
	exchangeRate := NewExchangeRateService(repos.ExchangeRate, cache)
	derivation := NewDerivationService(repos.Asset, repos.Goal, repos.Ledger)
	aggregation := NewAggregationService(exchangeRate)

	return &portssvc.ServiceContainer{
		Execution:    NewExecutionService(repos.Execution, repos.Ledger, repos.Goal, derivation, aggregation, cache),
		ExchangeRate: exchangeRate,
		Goal:         NewGoalService(repos.Goal),
	}
}
