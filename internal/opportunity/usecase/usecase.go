package usecase

import (
	"context"

	"hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/chroma"
)

// OpportunityUsecase is the review surface team members work through.
// Every method is scoped to the caller's celebrity; rows of another
// celebrity are reported as domain.ErrForbidden.
type OpportunityUsecase interface {
	GetOpportunity(ctx context.Context, celebrityID, id string) (*domain.Opportunity, error)

	// ListOpportunities returns a page plus the total match count
	ListOpportunities(ctx context.Context, filter domain.ListFilter) ([]*domain.Opportunity, int64, error)

	ListComments(ctx context.Context, celebrityID, id string) ([]*domain.Comment, error)

	// ApplyAction runs one manual override. When expectedRevision is set it
	// must match the stored revision, otherwise domain.ErrRevisionConflict.
	ApplyAction(ctx context.Context, celebrityID, userID, id string, action domain.Action, expectedRevision *int) (*domain.Opportunity, error)

	// Search ranks the celebrity's opportunities by typo-tolerant keyword match
	Search(ctx context.Context, celebrityID, query string, limit int) ([]SearchResult, error)

	// SemanticSearch ranks opportunities by embedding similarity
	SemanticSearch(ctx context.Context, celebrityID, query string, limit int) ([]SearchResult, error)

	// ResearchSender asks the research model about the sender and stores the answer
	ResearchSender(ctx context.Context, celebrityID, id string) (*domain.Opportunity, error)

	// SetSemanticIndex enables SemanticSearch
	SetSemanticIndex(index SemanticIndex)

	// SetResearcher enables ResearchSender
	SetResearcher(researcher SenderResearcher)
}

// GoalUsecase manages a celebrity's goals
type GoalUsecase interface {
	ListGoals(ctx context.Context, celebrityID string) ([]*domain.Goal, error)
	CreateGoal(ctx context.Context, celebrityID string, input GoalInput) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, celebrityID, id string, input GoalInput) (*domain.Goal, error)
	DeleteGoal(ctx context.Context, celebrityID, id string) error
}

// GoalInput carries the editable goal fields
type GoalInput struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Priority          int     `json:"priority"`
	DefaultAssigneeID *string `json:"defaultAssigneeId"`
}

// SearchResult is an opportunity with its match score
type SearchResult struct {
	Opportunity *domain.Opportunity `json:"opportunity"`
	Score       float64             `json:"score"`
}

// SemanticIndex stores and queries opportunity embeddings
type SemanticIndex interface {
	Upsert(ctx context.Context, doc chroma.Document) error
	Search(ctx context.Context, celebrityID, query string, limit int) ([]chroma.Hit, error)
}

// SenderResearcher looks up public information about a sender
type SenderResearcher interface {
	ResearchSender(ctx context.Context, handle, message string) (string, error)
}
