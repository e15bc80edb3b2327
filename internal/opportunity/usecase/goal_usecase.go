package usecase

import (
	"context"
	"fmt"
	"strings"

	"hyperagent/internal/opportunity/domain"
	"hyperagent/internal/opportunity/repository"
)

// goalUsecase implements GoalUsecase
type goalUsecase struct {
	goalRepo repository.GoalRepository
}

func NewGoalUsecase(goalRepo repository.GoalRepository) GoalUsecase {
	return &goalUsecase{goalRepo: goalRepo}
}

func (u *goalUsecase) ListGoals(ctx context.Context, celebrityID string) ([]*domain.Goal, error) {
	if celebrityID == "" {
		return nil, domain.ErrForbidden
	}
	return u.goalRepo.ListByCelebrity(ctx, celebrityID)
}

func (u *goalUsecase) CreateGoal(ctx context.Context, celebrityID string, input GoalInput) (*domain.Goal, error) {
	if celebrityID == "" {
		return nil, domain.ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidGoal)
	}
	goal := &domain.Goal{
		CelebrityID:       celebrityID,
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		Priority:          input.Priority,
		DefaultAssigneeID: input.DefaultAssigneeID,
	}
	if err := u.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (u *goalUsecase) findOwned(ctx context.Context, celebrityID, id string) (*domain.Goal, error) {
	goal, err := u.goalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, domain.ErrGoalNotFound
	}
	if celebrityID == "" || goal.CelebrityID != celebrityID {
		return nil, domain.ErrForbidden
	}
	return goal, nil
}

func (u *goalUsecase) UpdateGoal(ctx context.Context, celebrityID, id string, input GoalInput) (*domain.Goal, error) {
	goal, err := u.findOwned(ctx, celebrityID, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidGoal)
	}
	goal.Name = name
	goal.Description = strings.TrimSpace(input.Description)
	goal.Priority = input.Priority
	goal.DefaultAssigneeID = input.DefaultAssigneeID
	if err := u.goalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes the goal. Opportunities that referenced it keep the
// dangling id until reassigned; the classifier only offers live goals.
func (u *goalUsecase) DeleteGoal(ctx context.Context, celebrityID, id string) error {
	if _, err := u.findOwned(ctx, celebrityID, id); err != nil {
		return err
	}
	return u.goalRepo.Delete(ctx, id)
}
