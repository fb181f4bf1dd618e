package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker keeps leases in process memory. It only serializes requests
// served by the same instance.
type MemoryLocker struct {
	ttl  time.Duration
	wait time.Duration
	now  func() time.Time

	mu     sync.Mutex
	leases map[string]memoryLease
}

type memoryLease struct {
	token    string
	expireAt time.Time
}

func NewMemoryLocker(ttl, wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		ttl:    ttl,
		wait:   wait,
		now:    time.Now,
		leases: make(map[string]memoryLease),
	}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, m.wait)
	defer cancel()

	token := uuid.NewString()
	for {
		if m.tryAcquire(key, token) {
			var once sync.Once
			return func() { once.Do(func() { m.release(key, token) }) }, nil
		}
		if err := backoff(ctx); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, ErrTimeout
			}
			return nil, err
		}
	}
}

func (m *MemoryLocker) tryAcquire(key, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.leases[key]; ok && now.Before(cur.expireAt) {
		return false
	}
	m.leases[key] = memoryLease{token: token, expireAt: now.Add(m.ttl)}
	return true
}

// release only drops the lease if it is still ours; an expired lease may
// have been handed to someone else meanwhile.
func (m *MemoryLocker) release(key, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.leases[key]; ok && cur.token == token {
		delete(m.leases, key)
	}
}
