package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// StartTrackingRequest defines the payload for starting (or refreshing) a
// month's execution tracking.
type StartTrackingRequest struct {
	MonthLabel     string                     `json:"monthLabel" binding:"required,monthlabel"`
	GoalIDs        []string                   `json:"goalIDs" binding:"required,min=1,dive,uuid"`
	PlannedAmounts map[string]decimal.Decimal `json:"plannedAmounts" binding:"required"` // goalID -> planned amount, goal currency
}

// ExecutionRecordResponse defines the API representation of an execution
// record.
type ExecutionRecordResponse struct {
	RecordID       string                     `json:"recordID"`
	MonthLabel     string                     `json:"monthLabel"`
	GoalIDs        []string                   `json:"goalIDs"`
	Status         domain.ExecutionStatus     `json:"status"`
	StartedAt      *time.Time                 `json:"startedAt,omitempty"`
	CanUndoUntil   *time.Time                 `json:"canUndoUntil,omitempty"`
	PlannedAmounts map[string]decimal.Decimal `json:"plannedAmounts,omitempty"`
	CompletedAt    *time.Time                 `json:"completedAt,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
	LastUpdatedAt  time.Time                  `json:"lastUpdatedAt"`
}

// ToExecutionRecordResponse converts a domain record to its API shape.
func ToExecutionRecordResponse(record *domain.MonthlyExecutionRecord) ExecutionRecordResponse {
	resp := ExecutionRecordResponse{
		RecordID:       record.RecordID,
		MonthLabel:     record.MonthLabel,
		GoalIDs:        record.GoalIDs,
		Status:         record.Status,
		StartedAt:      record.StartedAt,
		CanUndoUntil:   record.CanUndoUntil,
		PlannedAmounts: record.PlannedAmounts,
		CreatedAt:      record.CreatedAt,
		LastUpdatedAt:  record.LastUpdatedAt,
	}
	if record.Completed != nil {
		completedAt := record.Completed.CompletedAt
		resp.CompletedAt = &completedAt
	}
	return resp
}

// GoalTotalResponse is one goal's funded total in its own currency.
type GoalTotalResponse struct {
	GoalID string `json:"goalID"`
	Total  string `json:"total"` // formatted with the goal currency's precision
}

// ContributionTotalsResponse defines the API representation of derived
// contribution totals for a record.
type ContributionTotalsResponse struct {
	RecordID string              `json:"recordID"`
	Frozen   bool                `json:"frozen"` // true when served from a closure artifact
	Totals   []GoalTotalResponse `json:"totals"`
}

// ProgressResponse defines the API representation of a record's progress.
type ProgressResponse struct {
	RecordID string          `json:"recordID"`
	Progress decimal.Decimal `json:"progress"` // percentage
}
