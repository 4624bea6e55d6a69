package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// PgxGoalRepository implements repositories.GoalReader using pgxpool.
type PgxGoalRepository struct {
	pool *pgxpool.Pool
}

// NewGoalRepository creates a new PgxGoalRepository.
func NewGoalRepository(pool *pgxpool.Pool) *PgxGoalRepository {
	return &PgxGoalRepository{pool: pool}
}

const goalColumns = `goal_id, name, currency_code, target_amount, deadline, created_at, created_by, last_updated_at, last_updated_by`

func scanGoal(row pgx.Row) (*domain.Goal, error) {
	var goal domain.Goal
	err := row.Scan(
		&goal.GoalID, &goal.Name, &goal.CurrencyCode, &goal.TargetAmount, &goal.Deadline,
		&goal.CreatedAt, &goal.CreatedBy, &goal.LastUpdatedAt, &goal.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// FindGoalByID retrieves a single goal by id.
func (r *PgxGoalRepository) FindGoalByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE goal_id = $1;`
	goal, err := scanGoal(r.pool.QueryRow(ctx, query, goalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find goal %s: %w", goalID, err)
	}
	return goal, nil
}

// FindGoalsByIDs retrieves goals keyed by id; unknown ids are absent from the
// result.
func (r *PgxGoalRepository) FindGoalsByIDs(ctx context.Context, goalIDs []string) (map[string]domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE goal_id = ANY($1);`
	rows, err := r.pool.Query(ctx, query, goalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	goals := make(map[string]domain.Goal, len(goalIDs))
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals[goal.GoalID] = *goal
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}
	return goals, nil
}
