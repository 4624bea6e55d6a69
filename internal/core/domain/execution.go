package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionStatus is the lifecycle state of a monthly execution record.
type ExecutionStatus string

const (
	StatusDraft     ExecutionStatus = "DRAFT"
	StatusExecuting ExecutionStatus = "EXECUTING"
	StatusClosed    ExecutionStatus = "CLOSED"
)

// UndoWindow is how long after startedAt a lifecycle transition can be
// reversed.
const UndoWindow = 24 * time.Hour

// MonthlyExecutionRecord tracks one month of goal funding. It is the unit of
// serialization: all mutations to a record, including its baseline seed and
// purge, go through a single lock.
type MonthlyExecutionRecord struct {
	RecordID       string                     `json:"recordID"`   // Primary Key (UUID)
	MonthLabel     string                     `json:"monthLabel"` // "YYYY-MM", unique
	GoalIDs        []string                   `json:"goalIDs"`    // Goals tracked this month
	Status         ExecutionStatus            `json:"status"`
	StartedAt      *time.Time                 `json:"startedAt,omitempty"`      // Set on first transition to EXECUTING
	CanUndoUntil   *time.Time                 `json:"canUndoUntil,omitempty"`   // StartedAt + UndoWindow
	PlannedAmounts map[string]decimal.Decimal `json:"plannedAmounts,omitempty"` // goalID -> planned amount, goal currency
	Completed      *CompletedExecution        `json:"completed,omitempty"`      // Present only while CLOSED
	AuditFields
}

// CanUndo reports whether the record's undo window is still open at now.
func (r *MonthlyExecutionRecord) CanUndo(now time.Time) bool {
	return r.CanUndoUntil != nil && now.Before(*r.CanUndoUntil)
}

// TracksGoal reports whether goalID is part of this month's tracked set.
func (r *MonthlyExecutionRecord) TracksGoal(goalID string) bool {
	for _, id := range r.GoalIDs {
		if id == goalID {
			return true
		}
	}
	return false
}

// CompletedExecution is the immutable artifact frozen when a record closes.
// It is never mutated: undo deletes it wholesale, re-closure replaces it.
type CompletedExecution struct {
	CompletedAt    time.Time                  `json:"completedAt"`
	Rates          map[string]decimal.Decimal `json:"rates"` // "FROM->TO" -> rate used at closure
	PlannedAmounts map[string]decimal.Decimal `json:"plannedAmounts"`
	Contributions  []ContributionSnapshot     `json:"contributions"`
}

// Totals sums the frozen contribution snapshots per goal, in goal currency.
func (c *CompletedExecution) Totals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, snap := range c.Contributions {
		totals[snap.GoalID] = totals[snap.GoalID].Add(snap.GoalAmount)
	}
	return totals
}

// ContributionSnapshot is one converted derived event as frozen at closure.
type ContributionSnapshot struct {
	SnapshotID    string          `json:"snapshotID"` // Primary Key (UUID)
	Timestamp     time.Time       `json:"timestamp"`
	Source        EventSource     `json:"source"`
	AssetID       string          `json:"assetID"`
	AssetCurrency string          `json:"assetCurrency"`
	GoalID        string          `json:"goalID"`
	GoalCurrency  string          `json:"goalCurrency"`
	AssetDelta    decimal.Decimal `json:"assetDelta"` // Signed, asset currency
	GoalAmount    decimal.Decimal `json:"goalAmount"` // AssetDelta converted at Rate
	Rate          decimal.Decimal `json:"rate"`       // Rate used for conversion (1 for same currency)
}
