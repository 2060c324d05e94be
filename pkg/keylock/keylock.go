package keylock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Resource prefixes. Each per-user resource is locked independently.
const (
	ResourceSession  = "session"
	ResourceDocument = "document"
	ResourceApiKey   = "apikey"
	ResourceWidget   = "widget"
)

// Key names one lockable resource of one user.
func Key(resource, userID string) string {
	return resource + ":" + userID
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Locker hands out exclusive locks per key. Entries are dropped once no
// goroutine holds or waits on them.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locker {
	return &Locker{entries: make(map[string]*entry)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireEntry(key)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.releaseEntry(key, e)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.releaseEntry(key, e)
		})
	}, nil
}

// TryLock takes key only if it is free right now.
func (l *Locker) TryLock(key string) (func(), bool) {
	e := l.acquireEntry(key)
	if !e.sem.TryAcquire(1) {
		l.releaseEntry(key, e)
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.releaseEntry(key, e)
		})
	}, true
}

func (l *Locker) acquireEntry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseEntry(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len reports how many keys are currently tracked.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
