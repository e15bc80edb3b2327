package twitter

import (
	"context"
	"errors"
	"sync"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// WithCredentialRefresh runs call and, if it fails with ErrUnauthorized,
// runs refresh and retries call exactly once. A refresh failure or a second
// rejection is returned to the caller.
func WithCredentialRefresh[T any](ctx context.Context, refresh func(context.Context) error, call func(context.Context) (T, error)) (T, error) {
	policy := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool {
			return errors.Is(err, ErrUnauthorized)
		}).
		WithMaxRetries(1).
		ReturnLastFailure().
		Build()

	return failsafe.With[T](policy).WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[T]) (T, error) {
		if exec.Attempts() > 1 {
			if err := refresh(ctx); err != nil {
				var zero T
				return zero, err
			}
		}
		return call(ctx)
	})
}

// Session binds a client to one account's credentials. Refreshed
// credentials are handed to onRefresh so they can be persisted.
type Session struct {
	client    *Client
	onRefresh func(context.Context, Credentials) error

	mu    sync.Mutex
	creds Credentials
}

func (c *Client) NewSession(creds Credentials, onRefresh func(context.Context, Credentials) error) *Session {
	return &Session{client: c, creds: creds, onRefresh: onRefresh}
}

func (s *Session) accessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.AccessToken
}

// Credentials returns the current token pair
func (s *Session) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

func (s *Session) refresh(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.creds.RefreshToken
	s.mu.Unlock()

	creds, err := s.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = *creds
	s.mu.Unlock()

	if s.onRefresh != nil {
		return s.onRefresh(ctx, *creds)
	}
	return nil
}

func (s *Session) ListDMEvents(ctx context.Context, paginationToken string) (*DMPage, error) {
	return WithCredentialRefresh(ctx, s.refresh, func(ctx context.Context) (*DMPage, error) {
		return s.client.ListDMEvents(ctx, s.accessToken(), paginationToken)
	})
}

func (s *Session) GetUser(ctx context.Context, userID string) (*User, error) {
	return WithCredentialRefresh(ctx, s.refresh, func(ctx context.Context) (*User, error) {
		return s.client.GetUser(ctx, s.accessToken(), userID)
	})
}

func (s *Session) SendDM(ctx context.Context, conversationID, text string) (string, error) {
	return WithCredentialRefresh(ctx, s.refresh, func(ctx context.Context) (string, error) {
		return s.client.SendDM(ctx, s.accessToken(), conversationID, text)
	})
}
