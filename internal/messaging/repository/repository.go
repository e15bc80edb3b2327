package repository

import (
	"context"
	"time"

	"hyperagent/internal/messaging/domain"
)

// ThreadRepository persists email threads and their messages.
// Finders return (nil, nil) when nothing matches.
type ThreadRepository interface {
	FindByID(ctx context.Context, id string) (*domain.EmailThread, error)
	FindByOpportunity(ctx context.Context, opportunityID string) (*domain.EmailThread, error)
	Create(ctx context.Context, thread *domain.EmailThread) error
	UpdateStatus(ctx context.Context, id string, status domain.ThreadStatus) error
	// AppendMessage stores msg and moves the thread's last_message_at forward
	AppendMessage(ctx context.Context, msg *domain.EmailMessage) error
	// ListMessages returns a thread's messages oldest first
	ListMessages(ctx context.Context, threadID string) ([]*domain.EmailMessage, error)
}

// TwitterRepository persists connected accounts and DM history
type TwitterRepository interface {
	ListAccounts(ctx context.Context) ([]*domain.TwitterAuth, error)
	FindAccountByCelebrity(ctx context.Context, celebrityID string) (*domain.TwitterAuth, error)
	// SaveAccount inserts or replaces the account keyed by twitter_user_id
	SaveAccount(ctx context.Context, account *domain.TwitterAuth) error
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateLastSynced(ctx context.Context, id string, lastSyncedAt time.Time) error
	AppendMessage(ctx context.Context, msg *domain.TwitterMessage) error
	// ListMessages returns an opportunity's DMs oldest first
	ListMessages(ctx context.Context, opportunityID string) ([]*domain.TwitterMessage, error)
}

// WritingStyleRepository persists one writing style per celebrity
type WritingStyleRepository interface {
	FindByCelebrity(ctx context.Context, celebrityID string) (*domain.WritingStyle, error)
	Save(ctx context.Context, style *domain.WritingStyle) error
}
