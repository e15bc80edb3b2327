package usecase

import (
	"context"

	"hyperagent/internal/messaging/domain"
	"hyperagent/internal/messaging/repository"
	"hyperagent/pkg/ai"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/mailgun"
	"hyperagent/pkg/twitter"
)

type EmailSender interface {
	Send(ctx context.Context, msg mailgun.Message) (string, error)
}

type ReplyDrafter interface {
	DraftReply(ctx context.Context, in ai.DraftInput) (string, error)
}

// TwitterSession is one account's authenticated view of the DM API.
// *twitter.Session satisfies it.
type TwitterSession interface {
	ListDMEvents(ctx context.Context, paginationToken string) (*twitter.DMPage, error)
	GetUser(ctx context.Context, userID string) (*twitter.User, error)
	SendDM(ctx context.Context, conversationID, text string) (string, error)
}

// TwitterSessionFactory opens a session for a stored account
type TwitterSessionFactory func(account *domain.TwitterAuth) TwitterSession

// TwitterVerifier resolves the account behind an access token
type TwitterVerifier interface {
	GetMe(ctx context.Context, accessToken string) (*twitter.User, error)
}

// PersistingSessions opens client sessions whose refreshed token pairs are
// written back to the account row.
func PersistingSessions(client *twitter.Client, repo repository.TwitterRepository, logger logging.Logger) TwitterSessionFactory {
	return func(account *domain.TwitterAuth) TwitterSession {
		creds := twitter.Credentials{
			AccessToken:  account.AccessToken,
			RefreshToken: account.RefreshToken,
		}
		if account.ExpiresAt != nil {
			creds.ExpiresAt = *account.ExpiresAt
		}
		accountID := account.ID
		return client.NewSession(creds, func(ctx context.Context, refreshed twitter.Credentials) error {
			if err := repo.UpdateTokens(ctx, accountID, refreshed.AccessToken, refreshed.RefreshToken, refreshed.ExpiresAt); err != nil {
				logger.WithError(err).WithField("account_id", accountID).Error("Failed to persist refreshed twitter tokens")
				return err
			}
			logger.WithField("account_id", accountID).Info("Refreshed twitter credentials")
			return nil
		})
	}
}
