package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate stores the conversion rate between two currencies effective
// from a given date. Rates are registered by the price-sync collaborator and
// looked up read-mostly during aggregation.
type ExchangeRate struct {
	ExchangeRateID   string          `json:"exchangeRateID"`   // Primary Key (UUID)
	FromCurrencyCode string          `json:"fromCurrencyCode"` // e.g., "EUR"
	ToCurrencyCode   string          `json:"toCurrencyCode"`   // e.g., "USD"
	Rate             decimal.Decimal `json:"rate"`             // Multiplier from -> to
	DateEffective    time.Time       `json:"dateEffective"`
	AuditFields
}
