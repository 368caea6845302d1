// Package lock serializes mutations per table.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotObtained is returned when a lock could not be acquired in time.
var ErrNotObtained = errors.New("lock not obtained")

// Locker hands out exclusive per-table locks. The returned unlock func is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, tableID int64) (func(), error)
}

// Local is an in-process keyed mutex. Entries are reference counted and
// dropped once no goroutine holds or waits for them.
type Local struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocal creates an empty keyed mutex.
func NewLocal() *Local {
	return &Local{locks: make(map[int64]*entry)}
}

// Lock blocks until the table's lock is free or ctx is done.
func (l *Local) Lock(ctx context.Context, tableID int64) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[tableID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[tableID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(tableID, e)
		return nil, errors.Join(ErrNotObtained, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(tableID, e)
		})
	}, nil
}

func (l *Local) release(tableID int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, tableID)
	}
}

// Len reports how many tables currently have holders or waiters.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
