package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	authdomain "hyperagent/internal/auth/domain"

	"github.com/google/uuid"
)

// MemoryStore holds users, invite codes and device tokens in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]authdomain.User
	invites map[string]authdomain.InviteCode
	tokens  map[string]authdomain.FCMToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]authdomain.User),
		invites: make(map[string]authdomain.InviteCode),
		tokens:  make(map[string]authdomain.FCMToken),
	}
}

func (s *MemoryStore) Users() UserRepository             { return memoryUsers{s} }
func (s *MemoryStore) InviteCodes() InviteCodeRepository { return memoryInvites{s} }
func (s *MemoryStore) FCMTokens() FCMTokenRepository     { return memoryTokens{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(_ context.Context, user *authdomain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.s.users[user.ID] = *user
	return nil
}

func (m memoryUsers) FindByID(_ context.Context, id string) (*authdomain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	user, ok := m.s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m memoryUsers) FindByEmail(_ context.Context, email string) (*authdomain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, user := range m.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (m memoryUsers) ListByCelebrity(_ context.Context, celebrityID string) ([]*authdomain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*authdomain.User
	for _, user := range m.s.users {
		if user.CelebrityID == celebrityID {
			u := user
			out = append(out, &u)
		}
	}
	return out, nil
}

func (m memoryUsers) Update(_ context.Context, user *authdomain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	user.UpdatedAt = time.Now()
	m.s.users[user.ID] = *user
	return nil
}

type memoryInvites struct{ s *MemoryStore }

func (m memoryInvites) Create(_ context.Context, code *authdomain.InviteCode) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	code.CreatedAt = time.Now()
	m.s.invites[code.Code] = *code
	return nil
}

func (m memoryInvites) FindByCode(_ context.Context, code string) (*authdomain.InviteCode, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	invite, ok := m.s.invites[code]
	if !ok {
		return nil, nil
	}
	return &invite, nil
}

func (m memoryInvites) MarkUsed(_ context.Context, code, userID string, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	invite, ok := m.s.invites[code]
	if !ok || invite.UsedBy != nil {
		return false, nil
	}
	usedBy, usedAt := userID, at
	invite.UsedBy = &usedBy
	invite.UsedAt = &usedAt
	m.s.invites[code] = invite
	return true, nil
}

type memoryTokens struct{ s *MemoryStore }

func (m memoryTokens) SaveToken(_ context.Context, userID, token, deviceInfo string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.tokens[token]
	if !ok {
		existing = authdomain.FCMToken{ID: uuid.New().String(), Token: token, CreatedAt: time.Now()}
	}
	existing.UserID = userID
	existing.DeviceInfo = deviceInfo
	existing.UpdatedAt = time.Now()
	m.s.tokens[token] = existing
	return nil
}

func (m memoryTokens) GetTokensByUserIDs(_ context.Context, userIDs []string) ([]authdomain.FCMToken, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []authdomain.FCMToken
	for _, t := range m.s.tokens {
		if wanted[t.UserID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m memoryTokens) DeleteToken(_ context.Context, token string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.tokens, token)
	return nil
}
