package repository

import (
	"context"
	"time"

	"hyperagent/internal/opportunity/domain"
)

// OpportunityRepository defines persistence for opportunities.
// Finders return (nil, nil) when nothing matches.
type OpportunityRepository interface {
	// Create inserts a new opportunity, assigning an ID when empty
	Create(ctx context.Context, opp *domain.Opportunity) error

	// FindByID retrieves a single opportunity
	FindByID(ctx context.Context, id string) (*domain.Opportunity, error)

	// FindByIDs retrieves opportunities by id, skipping unknown ids
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Opportunity, error)

	// List returns a filtered page plus the total count
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Opportunity, int64, error)

	// ListUnclassified returns up to limit rows with the -1 score sentinel, oldest first
	ListUnclassified(ctx context.Context, limit int) ([]*domain.Opportunity, error)

	// ListOpen returns pending and approved opportunities of a celebrity
	ListOpen(ctx context.Context, celebrityID string) ([]*domain.Opportunity, error)

	// FindLatestByConversation returns the newest opportunity for a conversation and source
	FindLatestByConversation(ctx context.Context, conversationID string, source domain.Source) (*domain.Opportunity, error)

	// ApplyClassification writes the classifier result only if the row is still
	// unclassified. It reports whether a row was updated.
	ApplyClassification(ctx context.Context, id string, result domain.ClassificationResult, classifiedAt time.Time) (bool, error)

	// Update saves every field of opp if its stored revision equals
	// expectedRevision, bumping the revision. Returns domain.ErrRevisionConflict otherwise.
	Update(ctx context.Context, opp *domain.Opportunity, expectedRevision int) error
}

// GoalRepository defines persistence for goals
type GoalRepository interface {
	Create(ctx context.Context, goal *domain.Goal) error
	FindByID(ctx context.Context, id string) (*domain.Goal, error)
	// ListByCelebrity returns goals ordered by descending priority
	ListByCelebrity(ctx context.Context, celebrityID string) ([]*domain.Goal, error)
	Update(ctx context.Context, goal *domain.Goal) error
	Delete(ctx context.Context, id string) error
}

// CelebrityRepository defines persistence for celebrities
type CelebrityRepository interface {
	Create(ctx context.Context, celebrity *domain.Celebrity) error
	FindByID(ctx context.Context, id string) (*domain.Celebrity, error)
	FindByInboundEmail(ctx context.Context, address string) (*domain.Celebrity, error)
}

// CommentRepository defines persistence for opportunity comments
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByOpportunity(ctx context.Context, opportunityID string) ([]*domain.Comment, error)
}
