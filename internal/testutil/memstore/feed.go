package memstore

import (
	"context"
	"sync"
)

// Feed is a change feed over the teams collection. Bursts of writes
// between two Next calls collapse into one event.
type Feed struct {
	db   *DB
	ch   chan struct{}
	done chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func (f *Feed) signal() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

// fail must be called with db.mu held.
func (f *Feed) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.err = err
	f.closed = true
	close(f.done)
	delete(f.db.feeds, f)
}

func (f *Feed) Next(ctx context.Context) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case <-f.ch:
		return true
	case <-f.done:
		return false
	case <-ctx.Done():
		f.mu.Lock()
		if f.err == nil {
			f.err = ctx.Err()
		}
		f.mu.Unlock()
		return false
	}
}

func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Feed) Close(context.Context) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	delete(f.db.feeds, f)
	return nil
}
