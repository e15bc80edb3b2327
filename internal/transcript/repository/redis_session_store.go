package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hyperagent/internal/transcript/domain"

	goredis "github.com/redis/go-redis/v9"
)

// updateAttempts bounds WATCH retries when two replicas touch one session
const updateAttempts = 5

// RedisSessionStore shares wizard sessions between replicas. Each session is
// one JSON value whose TTL ends at the session's ExpiresAt.
type RedisSessionStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisSessionStore(client goredis.UniversalClient, prefix string) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: prefix, now: time.Now}
}

// storedSession carries the transcript, which the API view of a session omits
type storedSession struct {
	Session    *domain.Session `json:"session"`
	Transcript string          `json:"transcript"`
}

func (s *RedisSessionStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisSessionStore) encode(session *domain.Session) ([]byte, time.Duration, error) {
	ttl := session.ExpiresAt.Sub(s.now())
	data, err := json.Marshal(storedSession{Session: session, Transcript: session.Transcript})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, ttl, nil
}

func decodeSession(data []byte) (*domain.Session, error) {
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if stored.Session == nil {
		return nil, errors.New("failed to decode session: empty record")
	}
	stored.Session.Transcript = stored.Transcript
	if stored.Session.Decisions == nil {
		stored.Session.Decisions = map[string]domain.Decision{}
	}
	return stored.Session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *domain.Session) error {
	data, ttl, err := s.encode(session)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(session.ID), data, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return session, nil
}

// Update reads, changes and writes the session inside WATCH/MULTI, so a
// concurrent writer on another replica forces a fresh read instead of
// being overwritten.
func (s *RedisSessionStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	key := s.key(id)
	var updated *domain.Session

	txf := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if !s.now().Before(session.ExpiresAt) {
			return domain.ErrSessionNotFound
		}
		if err := fn(session); err != nil {
			return err
		}
		out, ttl, err := s.encode(session)
		if err != nil {
			return err
		}
		if ttl <= 0 {
			return domain.ErrSessionNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = session
		return nil
	}

	for attempt := 0; attempt < updateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("session %s: %w", id, goredis.TxFailedErr)
}
