package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the lease
var ErrHeld = errors.New("lock is held by another owner")

// Locker hands out single-holder leases by name.
type Locker interface {
	// Acquire takes the lease for key or returns ErrHeld. The returned func
	// releases it; releasing after expiry is a no-op.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// RedisLocker implements Locker with SET NX leases shared by every replica.
type RedisLocker struct {
	client goredis.UniversalClient
	prefix string
}

func NewRedisLocker(client goredis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Only the token that set the key may delete it, so a holder whose lease
// expired cannot release a successor's lease.
var releaseScript = goredis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('del', KEYS[1])
else
  return 0
end
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	fullKey := l.prefix + key
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
	}, nil
}

// MemoryLocker implements Locker inside one process.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

type memoryLease struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]memoryLease), now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, ok := l.leases[key]; ok && now.Before(lease.expires) {
		return nil, ErrHeld
	}
	token := uuid.New().String()
	l.leases[key] = memoryLease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.leases[key]; ok && lease.token == token {
			delete(l.leases, key)
		}
		return nil
	}, nil
}
