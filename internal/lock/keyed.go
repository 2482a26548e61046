package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be acquired within the
// configured wait. Callers treat it as a retryable conflict.
var ErrTimeout = errors.New("lock acquire timed out")

const defaultTimeout = 3 * time.Second

// Keyed provides exclusive locks scoped to string keys. Locks for distinct
// keys never contend, so operations on unrelated books proceed in parallel.
// Entries are reference counted and removed once the last waiter is gone,
// keeping the map bounded by in-flight operations.
type Keyed struct {
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewKeyed(timeout time.Duration) *Keyed {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Keyed{
		timeout: timeout,
		entries: make(map[string]*entry),
	}
}

// Acquire takes the exclusive lock for key, waiting at most the configured
// timeout. On success it returns a release function that is safe to call
// more than once; callers should defer it so the lock is freed on every
// exit path.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.sem
				k.unref(key, e)
			})
		}
		return release, nil
	case <-ctx.Done():
		k.unref(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		k.unref(key, e)
		return nil, ErrTimeout
	}
}

func (k *Keyed) unref(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// Len reports how many keys currently have an active or waiting holder.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
