package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal represents a savings goal expressed in its own currency.
type Goal struct {
	GoalID       string          `json:"goalID"`       // Primary Key (UUID)
	Name         string          `json:"name"`         // e.g., "House deposit"
	CurrencyCode string          `json:"currencyCode"` // Currency the goal is measured in
	TargetAmount decimal.Decimal `json:"targetAmount"` // Total amount to reach
	Deadline     time.Time       `json:"deadline"`
	AuditFields
}
