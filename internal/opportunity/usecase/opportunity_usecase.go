package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hyperagent/internal/opportunity/domain"
	"hyperagent/internal/opportunity/repository"
	"hyperagent/pkg/logging"
)

// actionAttempts bounds re-reads when an action races another writer
const actionAttempts = 3

// opportunityUsecase implements OpportunityUsecase
type opportunityUsecase struct {
	oppRepo     repository.OpportunityRepository
	goalRepo    repository.GoalRepository
	commentRepo repository.CommentRepository
	publisher   domain.EventPublisher
	index       SemanticIndex
	researcher  SenderResearcher
	logger      logging.Logger
}

func NewOpportunityUsecase(
	oppRepo repository.OpportunityRepository,
	goalRepo repository.GoalRepository,
	commentRepo repository.CommentRepository,
	publisher domain.EventPublisher,
	logger logging.Logger,
) OpportunityUsecase {
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	return &opportunityUsecase{
		oppRepo:     oppRepo,
		goalRepo:    goalRepo,
		commentRepo: commentRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

func (u *opportunityUsecase) SetSemanticIndex(index SemanticIndex) {
	u.index = index
}

func (u *opportunityUsecase) SetResearcher(researcher SenderResearcher) {
	u.researcher = researcher
}

func (u *opportunityUsecase) GetOpportunity(ctx context.Context, celebrityID, id string) (*domain.Opportunity, error) {
	opp, err := u.oppRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, domain.ErrOpportunityNotFound
	}
	if celebrityID == "" || opp.CelebrityID != celebrityID {
		return nil, domain.ErrForbidden
	}
	return opp, nil
}

func (u *opportunityUsecase) ListOpportunities(ctx context.Context, filter domain.ListFilter) ([]*domain.Opportunity, int64, error) {
	if filter.CelebrityID == "" {
		return nil, 0, domain.ErrForbidden
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return u.oppRepo.List(ctx, filter)
}

func (u *opportunityUsecase) ListComments(ctx context.Context, celebrityID, id string) ([]*domain.Comment, error) {
	if _, err := u.GetOpportunity(ctx, celebrityID, id); err != nil {
		return nil, err
	}
	return u.commentRepo.ListByOpportunity(ctx, id)
}

func (u *opportunityUsecase) ApplyAction(ctx context.Context, celebrityID, userID, id string, action domain.Action, expectedRevision *int) (*domain.Opportunity, error) {
	opp, err := u.GetOpportunity(ctx, celebrityID, id)
	if err != nil {
		return nil, err
	}
	if expectedRevision != nil && *expectedRevision != opp.Revision {
		return nil, domain.ErrRevisionConflict
	}

	if comment, ok := action.(domain.AddComment); ok {
		err := u.commentRepo.Create(ctx, &domain.Comment{
			OpportunityID: opp.ID,
			UserID:        userID,
			Body:          comment.Comment,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save comment: %w", err)
		}
		return opp, nil
	}

	if assign, ok := action.(domain.AssignGoal); ok && assign.GoalID != nil && strings.TrimSpace(*assign.GoalID) != "" {
		goal, err := u.goalRepo.FindByID(ctx, strings.TrimSpace(*assign.GoalID))
		if err != nil {
			return nil, err
		}
		if goal == nil || goal.CelebrityID != opp.CelebrityID {
			return nil, domain.ErrGoalNotFound
		}
	}

	// Without an expected revision the caller asked for no optimistic
	// check, so a concurrent write only forces a re-read.
	for attempt := 1; ; attempt++ {
		previousStatus := opp.Status
		readRevision := opp.Revision
		if err := action.Apply(opp); err != nil {
			return nil, err
		}
		err := u.oppRepo.Update(ctx, opp, readRevision)
		if errors.Is(err, domain.ErrRevisionConflict) && expectedRevision == nil && attempt < actionAttempts {
			if opp, err = u.GetOpportunity(ctx, celebrityID, id); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		u.logger.WithFields(logging.Fields{
			"opportunity_id": opp.ID,
			"action":         action.Type(),
			"user_id":        userID,
			"revision":       opp.Revision,
		}).Info("Applied opportunity action")

		if opp.Status != previousStatus {
			u.publisher.Publish(ctx, domain.NewEvent(domain.EventStatusChanged, opp))
		}
		return opp, nil
	}
}

func (u *opportunityUsecase) ResearchSender(ctx context.Context, celebrityID, id string) (*domain.Opportunity, error) {
	if u.researcher == nil {
		return nil, domain.ErrResearchUnavailable
	}
	opp, err := u.GetOpportunity(ctx, celebrityID, id)
	if err != nil {
		return nil, err
	}

	handle := opp.SenderHandle
	if opp.SenderName != "" {
		handle = fmt.Sprintf("%s (%s)", opp.SenderName, opp.SenderHandle)
	}
	research, err := u.researcher.ResearchSender(ctx, handle, opp.InitialMessage)
	if err != nil {
		u.logger.WithError(err).WithField("opportunity_id", opp.ID).Error("Sender research failed")
		return nil, fmt.Errorf("sender research: %w", err)
	}

	opp.SenderResearch = research
	if err := u.oppRepo.Update(ctx, opp, opp.Revision); err != nil {
		return nil, err
	}
	return opp, nil
}
