package services

import (
	"context"

	"github.com/stashly/stashly_backend/internal/core/domain"
)

// GoalReaderSvc defines read operations on the goal catalog.
type GoalReaderSvc interface {
	// GetGoalByID retrieves a single goal.
	GetGoalByID(ctx context.Context, goalID string) (*domain.Goal, error)

	// GetGoalsByIDs retrieves goals keyed by id; unknown ids are absent.
	GetGoalsByIDs(ctx context.Context, goalIDs []string) (map[string]domain.Goal, error)
}

// GoalSvcFacade combines all goal-catalog service interfaces.
type GoalSvcFacade interface {
	GoalReaderSvc
}
