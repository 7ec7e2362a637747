package linking

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/redis"
)

// Locker gives a caller exclusive scope over a set of ids. Implementations
// take the ids in lexicographic order so two callers sharing an id can never
// deadlock on each other.
type Locker interface {
	Lock(ctx context.Context, ids ...string) (unlock func(), err error)
}

// lockOrder sorts and de-duplicates ids
func lockOrder(ids []string) []string {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	return slices.Compact(ordered)
}

type keyedEntry struct {
	held chan struct{}
	refs int
}

// KeyedLocker is an in-process Locker keyed by id
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedLocker creates an empty KeyedLocker
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: map[string]*keyedEntry{}}
}

func (l *KeyedLocker) Lock(ctx context.Context, ids ...string) (func(), error) {
	started := time.Now()
	defer func() { metrics.LockWaitDuration.WithLabelValues("memory").Observe(time.Since(started).Seconds()) }()

	ordered := lockOrder(ids)
	acquired := make([]string, 0, len(ordered))
	for _, id := range ordered {
		if err := l.acquire(ctx, id); err != nil {
			l.releaseAll(acquired)
			return nil, err
		}
		acquired = append(acquired, id)
	}

	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(acquired) }) }, nil
}

func (l *KeyedLocker) acquire(ctx context.Context, id string) error {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &keyedEntry{held: make(chan struct{}, 1)}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.held <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(id, entry)
		return ctx.Err()
	}
}

func (l *KeyedLocker) releaseAll(ids []string) {
	for i := len(ids) - 1; i >= 0; i-- {
		l.mu.Lock()
		entry := l.entries[ids[i]]
		l.mu.Unlock()
		<-entry.held
		l.drop(ids[i], entry)
	}
}

func (l *KeyedLocker) drop(id string, entry *keyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, id)
	}
}

// RedisLocker is a Locker backed by redis so merges are serialised across replicas
type RedisLocker struct {
	locker *redis.Locker
	logger ectologger.Logger
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker creates a RedisLocker. ttl bounds how long a crashed holder
// can block others; wait bounds how long Lock retries per id.
func NewRedisLocker(locker *redis.Locker, logger ectologger.Logger, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &RedisLocker{locker: locker, logger: logger, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, ids ...string) (func(), error) {
	started := time.Now()
	defer func() { metrics.LockWaitDuration.WithLabelValues("redis").Observe(time.Since(started).Seconds()) }()

	ordered := lockOrder(ids)
	held := make([]*redis.Lock, 0, len(ordered))
	release := func() {
		// release even when the caller's context is already done
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(releaseCtx); err != nil {
				l.logger.WithContext(ctx).WithError(err).WithField("lock", held[i].Key()).Warn("Failed to release lock")
			}
		}
	}

	for _, id := range ordered {
		lock, err := l.locker.TryAcquire(ctx, "subject:"+id, l.ttl, l.wait)
		if err != nil {
			release()
			return nil, errors.Wrapf(err, "lock %s", id)
		}
		held = append(held, lock)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
