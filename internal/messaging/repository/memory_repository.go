package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"hyperagent/internal/messaging/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MemoryStore keeps messaging state in process memory for local runs and tests
type MemoryStore struct {
	mu              sync.RWMutex
	threads         map[string]domain.EmailThread
	emailMessages   []domain.EmailMessage
	accounts        map[string]domain.TwitterAuth
	twitterMessages []domain.TwitterMessage
	styles          map[string]domain.WritingStyle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads:  make(map[string]domain.EmailThread),
		accounts: make(map[string]domain.TwitterAuth),
		styles:   make(map[string]domain.WritingStyle),
	}
}

func (s *MemoryStore) Threads() ThreadRepository             { return memoryThreads{s} }
func (s *MemoryStore) Twitter() TwitterRepository            { return memoryTwitter{s} }
func (s *MemoryStore) WritingStyles() WritingStyleRepository { return memoryStyles{s} }

type memoryThreads struct{ s *MemoryStore }

func (m memoryThreads) FindByID(_ context.Context, id string) (*domain.EmailThread, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	t, ok := m.s.threads[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m memoryThreads) FindByOpportunity(_ context.Context, opportunityID string) (*domain.EmailThread, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, t := range m.s.threads {
		if t.OpportunityID == opportunityID {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (m memoryThreads) Create(_ context.Context, thread *domain.EmailThread) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.threads {
		if t.OpportunityID == thread.OpportunityID {
			return nil
		}
	}
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	if thread.Status == "" {
		thread.Status = domain.ThreadActive
	}
	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now
	if thread.LastMessageAt.IsZero() {
		thread.LastMessageAt = now
	}
	m.s.threads[thread.ID] = *thread
	return nil
}

func (m memoryThreads) UpdateStatus(_ context.Context, id string, status domain.ThreadStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.threads[id]; ok {
		t.Status = status
		t.UpdatedAt = time.Now()
		m.s.threads[id] = t
	}
	return nil
}

func (m memoryThreads) AppendMessage(_ context.Context, msg *domain.EmailMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.s.emailMessages = append(m.s.emailMessages, *msg)
	if t, ok := m.s.threads[msg.ThreadID]; ok && t.LastMessageAt.Before(msg.CreatedAt) {
		t.LastMessageAt = msg.CreatedAt
		m.s.threads[msg.ThreadID] = t
	}
	return nil
}

func (m memoryThreads) ListMessages(_ context.Context, threadID string) ([]*domain.EmailMessage, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.EmailMessage
	for _, msg := range m.s.emailMessages {
		if msg.ThreadID == threadID {
			mm := msg
			out = append(out, &mm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memoryTwitter struct{ s *MemoryStore }

func (m memoryTwitter) ListAccounts(_ context.Context) ([]*domain.TwitterAuth, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.TwitterAuth
	for _, a := range m.s.accounts {
		aa := a
		out = append(out, &aa)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m memoryTwitter) FindAccountByCelebrity(_ context.Context, celebrityID string) (*domain.TwitterAuth, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var found *domain.TwitterAuth
	for _, a := range m.s.accounts {
		if a.CelebrityID == celebrityID && (found == nil || a.UpdatedAt.After(found.UpdatedAt)) {
			aa := a
			found = &aa
		}
	}
	return found, nil
}

func (m memoryTwitter) SaveAccount(_ context.Context, account *domain.TwitterAuth) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now()
	for id, a := range m.s.accounts {
		if a.TwitterUserID == account.TwitterUserID {
			account.ID = id
			account.CreatedAt = a.CreatedAt
			account.LastSyncedAt = a.LastSyncedAt
		}
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	m.s.accounts[account.ID] = *account
	return nil
}

func (m memoryTwitter) UpdateTokens(_ context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.accounts[id]; ok {
		a.AccessToken = accessToken
		a.RefreshToken = refreshToken
		a.ExpiresAt = &expiresAt
		a.UpdatedAt = time.Now()
		m.s.accounts[id] = a
	}
	return nil
}

func (m memoryTwitter) UpdateLastSynced(_ context.Context, id string, lastSyncedAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.accounts[id]; ok {
		a.LastSyncedAt = &lastSyncedAt
		m.s.accounts[id] = a
	}
	return nil
}

func (m memoryTwitter) AppendMessage(_ context.Context, msg *domain.TwitterMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.s.twitterMessages = append(m.s.twitterMessages, *msg)
	return nil
}

func (m memoryTwitter) ListMessages(_ context.Context, opportunityID string) ([]*domain.TwitterMessage, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.TwitterMessage
	for _, msg := range m.s.twitterMessages {
		if msg.OpportunityID == opportunityID {
			mm := msg
			out = append(out, &mm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memoryStyles struct{ s *MemoryStore }

func (m memoryStyles) FindByCelebrity(_ context.Context, celebrityID string) (*domain.WritingStyle, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	style, ok := m.s.styles[celebrityID]
	if !ok {
		return nil, nil
	}
	style.Examples = append(pq.StringArray{}, style.Examples...)
	return &style, nil
}

func (m memoryStyles) Save(_ context.Context, style *domain.WritingStyle) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if existing, ok := m.s.styles[style.CelebrityID]; ok {
		style.ID = existing.ID
	}
	if style.ID == "" {
		style.ID = uuid.New().String()
	}
	style.UpdatedAt = time.Now()
	stored := *style
	stored.Examples = append(pq.StringArray{}, style.Examples...)
	m.s.styles[style.CelebrityID] = stored
	return nil
}
