package lease

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-salesiq/infrastructure/valkey"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// compare-and-delete, so an expired lease taken over by another holder is
// never released by the previous one
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// ValkeyLocker shares leases across every bridge instance using the same
// Valkey server and key prefix.
type ValkeyLocker struct {
	client *valkey.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewValkeyLocker(client *valkey.Client, ttl, wait time.Duration) *ValkeyLocker {
	return &ValkeyLocker{client: client, ttl: ttl, wait: wait}
}

func (v *ValkeyLocker) Acquire(ctx context.Context, key string) (func(), error) {
	leaseKey := v.client.Key("lease", key)
	token := uuid.NewString()
	inner := v.client.Inner()

	waitCtx, cancel := context.WithTimeout(ctx, v.wait)
	defer cancel()

	for attempt := 1; ; attempt++ {
		// SET key token NX PX ttl
		cmd := inner.B().Set().Key(leaseKey).Value(token).Nx().Px(v.ttl).Build()
		err := inner.Do(waitCtx, cmd).Error()
		if err == nil {
			var once sync.Once
			return func() { once.Do(func() { v.release(leaseKey, token) }) }, nil
		}
		if !valkey.IsNil(err) {
			logrus.Debugf("[LEASE] attempt %d for %s failed: %v", attempt, leaseKey, err)
		}
		if err := backoff(waitCtx); err != nil {
			if waitCtx.Err() == context.DeadlineExceeded {
				return nil, ErrTimeout
			}
			return nil, err
		}
	}
}

// release uses its own context: the request context may already be done
// when the deferred release runs.
func (v *ValkeyLocker) release(leaseKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	inner := v.client.Inner()
	cmd := inner.B().Eval().Script(releaseScript).Numkeys(1).Key(leaseKey).Arg(token).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		logrus.Warnf("[LEASE] failed to release %s: %v", leaseKey, err)
	}
}
