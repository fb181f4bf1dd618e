// Package lease provides short-lived per-key mutual exclusion used around the
// locate-or-create sequence of the resolver. Leases expire on their own so a
// crashed holder never blocks a phone for longer than the TTL.
package lease

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/AzielCF/az-salesiq/core/config"
	"github.com/AzielCF/az-salesiq/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

// ErrTimeout is returned when the lease could not be obtained within the
// configured wait.
var ErrTimeout = errors.New("lease acquisition timed out")

const pollInterval = 50 * time.Millisecond

// Locker hands out leases keyed by an arbitrary string (the phone number).
// The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NopLocker is used when leases are disabled.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// New picks the locker for cfg. A nil client selects the in-memory locker.
func New(cfg config.LeaseConfig, client *valkey.Client) Locker {
	switch {
	case !cfg.Enabled:
		logrus.Info("[LEASE] per-phone lease disabled")
		return NopLocker{}
	case client != nil:
		logrus.Infof("[LEASE] using valkey leases (ttl %s)", cfg.TTL)
		return NewValkeyLocker(client, cfg.TTL, cfg.Wait)
	default:
		logrus.Infof("[LEASE] using in-memory leases (ttl %s)", cfg.TTL)
		return NewMemoryLocker(cfg.TTL, cfg.Wait)
	}
}

// backoff waits one poll interval plus jitter, or returns the context error.
func backoff(ctx context.Context) error {
	d := pollInterval + time.Duration(rand.Intn(20))*time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
