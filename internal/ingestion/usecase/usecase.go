package usecase

import (
	"context"

	"hyperagent/internal/ingestion/domain"
	msgdomain "hyperagent/internal/messaging/domain"
	msgusecase "hyperagent/internal/messaging/usecase"
	oppdomain "hyperagent/internal/opportunity/domain"
)

// IngestionUsecase turns external contact attempts into opportunities
type IngestionUsecase interface {
	SubmitWidget(ctx context.Context, in domain.WidgetSubmission) (*oppdomain.Opportunity, error)
	// HandleInboundEmail verifies the webhook signature before touching storage
	HandleInboundEmail(ctx context.Context, in domain.InboundEmail) (*domain.InboundResult, error)
	// SyncTwitter sweeps every connected account; one account failing never
	// affects another
	SyncTwitter(ctx context.Context) (*domain.SyncReport, error)

	SetTwitterSessions(sessions msgusecase.TwitterSessionFactory)
}

// InboundRecorder appends received email to an opportunity's thread.
// The messaging usecase implements it.
type InboundRecorder interface {
	RecordInboundEmail(ctx context.Context, opportunityID string, in msgusecase.InboundEmail) (*msgdomain.EmailMessage, error)
}
