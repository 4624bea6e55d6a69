package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventSource tags what kind of ledger change produced a derived event.
type EventSource string

const (
	// SourceDeposit marks events caused by a balance delta (deposit or withdrawal).
	SourceDeposit EventSource = "DEPOSIT"
	// SourceReallocation marks events caused by an allocation target change.
	SourceReallocation EventSource = "REALLOCATION"
)

// DerivedEvent is a computed change in the funded amount of one (asset, goal)
// pair at one instant. Events are produced fresh on every derivation and are
// never persisted; only aggregates and closure snapshots survive.
type DerivedEvent struct {
	Timestamp     time.Time       `json:"timestamp"`
	Source        EventSource     `json:"source"`
	AssetID       string          `json:"assetID"`
	AssetCurrency string          `json:"assetCurrency"`
	GoalID        string          `json:"goalID"`
	GoalCurrency  string          `json:"goalCurrency"`
	Delta         decimal.Decimal `json:"delta"` // Signed change in funded amount, asset currency
}
