package usecase

import (
	"context"

	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/internal/transcript/domain"
)

// TranscriptUsecase reconciles meeting transcripts with open opportunities.
// Nothing is written until a human applies a proposal.
type TranscriptUsecase interface {
	// Process infers the outcome for one known opportunity
	Process(ctx context.Context, celebrityID, opportunityID, transcript string) (*domain.Proposal, error)
	// ProcessBulk identifies the discussed opportunities, then infers each outcome
	ProcessBulk(ctx context.Context, celebrityID, transcript string, opportunityIDs []string) (*domain.BulkResult, error)
	Apply(ctx context.Context, celebrityID, userID string, in domain.ApplyInput) (*oppdomain.Opportunity, error)

	CreateSession(ctx context.Context, celebrityID, userID, transcript string, opportunityIDs []string) (*domain.Session, error)
	GetSession(ctx context.Context, celebrityID, sessionID string) (*domain.Session, error)
	ApplyCurrent(ctx context.Context, celebrityID, userID, sessionID string, edits ProposalEdits) (*domain.Session, error)
	SkipCurrent(ctx context.Context, celebrityID, sessionID string) (*domain.Session, error)
}

// ProposalEdits lets the reviewer adjust a proposal before applying it
type ProposalEdits struct {
	ProposedStatus *oppdomain.Status `json:"proposedStatus"`
	Summary        *string           `json:"summary"`
	ActionRecap    *string           `json:"actionRecap"`
}
