package repositories

import (
	"context"

	"github.com/stashly/stashly_backend/internal/core/domain"
)

// AssetReader defines read operations for the asset catalog.
type AssetReader interface {
	// FindAssetByID retrieves a single asset by its unique identifier.
	FindAssetByID(ctx context.Context, assetID string) (*domain.Asset, error)

	// FindAssetsByIDs retrieves assets for the given ids, keyed by id.
	// Unknown ids are simply absent from the result, not an error.
	FindAssetsByIDs(ctx context.Context, assetIDs []string) (map[string]domain.Asset, error)
}

// GoalReader defines read operations for the goal catalog.
type GoalReader interface {
	// FindGoalByID retrieves a single goal by its unique identifier.
	FindGoalByID(ctx context.Context, goalID string) (*domain.Goal, error)

	// FindGoalsByIDs retrieves goals for the given ids, keyed by id.
	// Unknown ids are simply absent from the result, not an error.
	FindGoalsByIDs(ctx context.Context, goalIDs []string) (map[string]domain.Goal, error)
}
