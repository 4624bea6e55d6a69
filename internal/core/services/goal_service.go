package services

import (
	"context"
	"fmt"

	"github.com/stashly/stashly_backend/internal/core/domain"
	portsrepo "github.com/stashly/stashly_backend/internal/core/ports/repositories"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
)

// goalService exposes the goal catalog to the API layer.
type goalService struct {
	goalRepo portsrepo.GoalReader
}

// NewGoalService creates a new GoalSvcFacade.
func NewGoalService(goalRepo portsrepo.GoalReader) portssvc.GoalSvcFacade {
	return &goalService{goalRepo: goalRepo}
}

var _ portssvc.GoalSvcFacade = (*goalService)(nil)

func (s *goalService) GetGoalByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	goal, err := s.goalRepo.FindGoalByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal %s: %w", goalID, err)
	}
	return goal, nil
}

func (s *goalService) GetGoalsByIDs(ctx context.Context, goalIDs []string) (map[string]domain.Goal, error) {
	goals, err := s.goalRepo.FindGoalsByIDs(ctx, goalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	return goals, nil
}
