package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is the current earmark of an asset for a goal: at most one per
// (asset, goal) pair, amount in the asset's currency, never negative.
type Allocation struct {
	AllocationID string          `json:"allocationID"` // Primary Key (UUID)
	AssetID      string          `json:"assetID"`      // FK -> Asset.assetID
	GoalID       string          `json:"goalID"`       // FK -> Goal.goalID
	Amount       decimal.Decimal `json:"amount"`       // Target amount, asset currency
	AuditFields
}

// AllocationHistory is an immutable snapshot of an allocation target at a
// point in time. A row is appended whenever a target changes, and a baseline
// row is seeded when an execution window starts. Rows are only ever deleted
// by the month-purge that precedes a baseline re-seed.
type AllocationHistory struct {
	AllocationHistoryID string          `json:"allocationHistoryID"` // Primary Key (UUID)
	AssetID             string          `json:"assetID"`             // FK -> Asset.assetID
	GoalID              string          `json:"goalID"`              // FK -> Goal.goalID
	Amount              decimal.Decimal `json:"amount"`              // Target at Timestamp, asset currency
	Timestamp           time.Time       `json:"timestamp"`
	CreationOrder       int64           `json:"creationOrder"` // Monotonic insert sequence; tie-breaker for same-instant rows
	RecordID            string          `json:"recordID"`      // Seeding execution record; empty for organic target changes
	AuditFields
}

// IsBaseline reports whether this row was seeded by an execution record
// rather than written by an organic target change.
func (h AllocationHistory) IsBaseline() bool {
	return h.RecordID != ""
}
