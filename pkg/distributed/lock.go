package distributed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockTimeout = errors.New("lock acquisition timeout")
	ErrNotHeld     = errors.New("lock was not held by this instance")
)

// Only delete the key if it still carries our value.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lock is a Redis SET NX lock with a holder token. It is renewed at half
// its TTL while held, so a holder that dies releases it after one TTL.
type Lock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration

	mu        sync.Mutex
	stopRenew chan struct{}
}

func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to acquire the lock without waiting.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to try lock %s: %w", l.key, err)
	}
	if acquired {
		l.startRenewal()
	}
	return acquired, nil
}

// LockWithTimeout polls until the lock is acquired, timeout elapses or
// ctx is done.
func (l *Lock) LockWithTimeout(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		acquired, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Unlock releases the lock if this instance still holds it.
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if l.stopRenew != nil {
		close(l.stopRenew)
		l.stopRenew = nil
	}
	l.mu.Unlock()

	n, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// WithLock runs fn while holding the lock.
func (l *Lock) WithLock(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := l.LockWithTimeout(ctx, timeout); err != nil {
		return err
	}
	fnErr := fn(ctx)
	if err := l.Unlock(context.WithoutCancel(ctx)); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

func (l *Lock) startRenewal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopRenew != nil {
		return
	}
	stop := make(chan struct{})
	l.stopRenew = stop
	go l.renew(stop)
}

func (l *Lock) renew(stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/2)
			current, err := l.client.Get(ctx, l.key).Result()
			if err != nil || current != l.value {
				cancel()
				return
			}
			l.client.Expire(ctx, l.key, l.ttl)
			cancel()
		}
	}
}
