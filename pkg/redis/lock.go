package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when trying to release a lock not held
	ErrLockNotHeld = errors.New("lock not held")
)

// compare-and-delete so a lock that expired and was re-taken is never released by the old holder
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held distributed lock
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// Key returns the full redis key of the lock
func (l *Lock) Key() string { return l.key }

// Locker hands out distributed locks
type Locker struct {
	client *Client
}

// NewLocker creates a new Locker
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// Acquire makes a single attempt at the lock
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := l.client.key("lock", name)
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", name)

	return &Lock{client: l.client, key: key, token: token, ttl: ttl}, nil
}

// TryAcquire retries Acquire with capped exponential backoff until timeout or ctx ends
func (l *Locker) TryAcquire(ctx context.Context, name string, ttl, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for {
		lock, err := l.Acquire(ctx, name, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		if !time.Now().Add(backoff).Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, 500*time.Millisecond)
	}
}

// Release releases the lock if it is still held by this holder
func (l *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	l.client.logger.WithContext(ctx).Debugf("Released lock: %s", l.key)
	return nil
}

// Extend resets the lock's TTL
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	l.ttl = ttl
	return nil
}
