package usecase

import (
	"context"
	"time"

	"hyperagent/internal/messaging/domain"
	"hyperagent/pkg/twitter"
)

// MessagingUsecase covers outbound replies, conversation history and the
// writing style used for drafts
type MessagingUsecase interface {
	SendEmail(ctx context.Context, celebrityID string, in SendEmailInput) (*domain.EmailMessage, error)
	SendTwitter(ctx context.Context, celebrityID string, in SendTwitterInput) (*domain.TwitterMessage, error)
	GetThread(ctx context.Context, celebrityID, opportunityID string) (*ThreadView, error)
	UpdateThreadStatus(ctx context.Context, celebrityID, threadID string, status domain.ThreadStatus) (*domain.EmailThread, error)
	DraftReply(ctx context.Context, celebrityID string, in DraftInput) (string, error)
	GetWritingStyle(ctx context.Context, celebrityID string) (*domain.WritingStyle, error)
	SaveWritingStyle(ctx context.Context, celebrityID string, in WritingStyleInput) (*domain.WritingStyle, error)
	ConnectTwitter(ctx context.Context, celebrityID string, creds twitter.Credentials) (*domain.TwitterAuth, error)

	// RecordInboundEmail appends a received email to the opportunity's
	// thread, creating the thread on first contact
	RecordInboundEmail(ctx context.Context, opportunityID string, in InboundEmail) (*domain.EmailMessage, error)

	SetEmailSender(sender EmailSender)
	SetTwitter(sessions TwitterSessionFactory, verifier TwitterVerifier)
	SetDrafter(drafter ReplyDrafter)
}

type SendEmailInput struct {
	OpportunityID string `json:"opportunityId"`
	Message       string `json:"message"`
	Subject       string `json:"subject"`
}

type SendTwitterInput struct {
	OpportunityID string `json:"opportunityId"`
	Message       string `json:"message"`
}

type DraftInput struct {
	OpportunityID string `json:"opportunityId"`
	Channel       string `json:"channel"`
	Instructions  string `json:"instructions"`
}

type WritingStyleInput struct {
	Tone      string   `json:"tone"`
	Signature string   `json:"signature"`
	Examples  []string `json:"examples"`
}

// InboundEmail is a received message already resolved to an opportunity
type InboundEmail struct {
	From              string
	To                string
	Subject           string
	Body              string
	ProviderMessageID string
	ReceivedAt        time.Time
}

// ThreadView is the full conversation of one opportunity
type ThreadView struct {
	Thread          *domain.EmailThread      `json:"thread"`
	Messages        []*domain.EmailMessage   `json:"messages"`
	TwitterMessages []*domain.TwitterMessage `json:"twitterMessages"`
}
