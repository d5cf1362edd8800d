// Package lock provides a Redis distributed lock so periodic maintenance runs on one replica at a time.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storepulse/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultLockTTL      = 30 * time.Second // lock TTL, bounds how long a crashed holder blocks others
	lockAcquireTimeout  = 5 * time.Second  // timeout for the SET NX round trip
	defaultRenewEvery   = 10 * time.Second // renewal interval
	maxLockHoldDuration = 10 * time.Minute // a holder running longer than this gives the lock up
)

var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	renewScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// DistributedLock distributed lock interface
type DistributedLock interface {
	// TryLock attempts to acquire the lock without waiting
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock if held
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance still holds the lock
	IsHeld() bool
}

// RedisLock Redis implementation of DistributedLock (SET NX PX plus background renewal)
type RedisLock struct {
	client     *redis.Client
	key        string
	value      string // unique per instance so we never release someone else's lock
	ttl        time.Duration
	renewEvery time.Duration
	isHeld     bool // false once renewal fails, even before Unlock
	active     bool // between a successful TryLock and Unlock
	acquiredAt time.Time
	stopRenew  chan struct{}
	mu         sync.Mutex
}

// Option customizes a RedisLock
type Option func(*RedisLock)

// WithTTL overrides the lock TTL; renewal runs at a third of it
func WithTTL(ttl time.Duration) Option {
	return func(l *RedisLock) {
		if ttl > 0 {
			l.ttl = ttl
			l.renewEvery = ttl / 3
		}
	}
}

// NewRedisLock creates a lock on key. A nil client degrades to a local, always-acquired lock.
func NewRedisLock(client *redis.Client, key string, opts ...Option) *RedisLock {
	l := &RedisLock{
		client:     client,
		key:        key,
		value:      fmt.Sprintf("%s-%s", key, uuid.NewString()),
		ttl:        defaultLockTTL,
		renewEvery: defaultRenewEvery,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock attempts to acquire the lock
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.WarnCtx(ctx, "redis client is nil, skipping distributed lock %s (single-instance mode)", l.key)
		l.mu.Lock()
		l.isHeld = true
		l.active = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		logger.DebugCtx(ctx, "lock %s already held by another instance", l.key)
		return false, nil
	}

	l.mu.Lock()
	l.isHeld = true
	l.active = true
	l.acquiredAt = time.Now()
	// fresh channel per acquisition so TryLock/Unlock cycles can repeat
	l.stopRenew = make(chan struct{})
	stop := l.stopRenew
	l.mu.Unlock()

	go l.renew(ctx, stop)

	logger.DebugCtx(ctx, "lock %s acquired", l.key)
	return true, nil
}

// Unlock releases the lock
func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return nil
	}
	l.active = false
	if l.client == nil {
		l.isHeld = false
		l.mu.Unlock()
		return nil
	}
	close(l.stopRenew)
	l.mu.Unlock()

	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()

	if result == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.key)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or held by another instance", l.key)
	}
	return nil
}

// IsHeld reports whether the lock is held
func (l *RedisLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// renew extends the TTL until stopped; any failure marks the lock lost
func (l *RedisLock) renew(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			holdDuration := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if holdDuration > maxLockHoldDuration {
				// leave the release to Unlock so stopRenew is closed exactly once
				logger.WarnCtx(ctx, "lock %s held for too long (%.0f seconds), giving it up", l.key, holdDuration.Seconds())
				l.markLost()
				return
			}

			result, err := renewScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.key, err)
				l.markLost()
				return
			}
			if result == 0 {
				logger.WarnCtx(ctx, "lock %s renewal failed, lock lost", l.key)
				l.markLost()
				return
			}
		}
	}
}

func (l *RedisLock) markLost() {
	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()
}

// WithLock runs fn only if the lock can be acquired; ran is false when another instance holds it
func WithLock(ctx context.Context, l DistributedLock, fn func(ctx context.Context) error) (ran bool, err error) {
	acquired, err := l.TryLock(ctx)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if unlockErr := l.Unlock(ctx); unlockErr != nil {
			logger.WarnCtx(ctx, "failed to release lock: %v", unlockErr)
		}
	}()
	return true, fn(ctx)
}
