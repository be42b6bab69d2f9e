// Package controller reruns profiles in the background when their documents
// change.
package controller

import (
	"sync"
	"time"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

type entry struct {
	key   string
	ready time.Time
}

// Queue is a deduplicating work queue. A key added while it is being
// processed is queued again once Done is called for it, and a key that
// failed is retried with exponential backoff.
type Queue struct {
	mu       sync.Mutex
	pending  []entry
	queued   map[string]bool
	active   map[string]bool
	redo     map[string]bool
	failures map[string]int
	wake     chan struct{}
	closed   bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		queued:   make(map[string]bool),
		active:   make(map[string]bool),
		redo:     make(map[string]bool),
		failures: make(map[string]int),
		wake:     make(chan struct{}, 1),
	}
}

// Add enqueues key for immediate processing.
func (q *Queue) Add(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	if q.active[key] {
		q.redo[key] = true
		return
	}
	q.push(key, time.Time{})
}

// Get blocks until a key is ready and marks it active. It returns false
// once the queue is closed.
func (q *Queue) Get() (string, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return "", false
		}

		now := time.Now()
		var wait time.Duration
		for i, e := range q.pending {
			if !now.Before(e.ready) {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				delete(q.queued, e.key)
				q.active[e.key] = true
				q.mu.Unlock()
				return e.key, true
			}
			if d := e.ready.Sub(now); wait == 0 || d < wait {
				wait = d
			}
		}
		q.mu.Unlock()

		if wait == 0 {
			<-q.wake
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-q.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Done releases an active key. A non-nil err schedules a retry after the
// key's backoff; otherwise the key's failure count is reset.
func (q *Queue) Done(key string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.active, key)
	if q.closed {
		return
	}

	if err != nil {
		q.failures[key]++
		delete(q.redo, key)
		q.push(key, time.Now().Add(backoff(q.failures[key])))
		return
	}

	delete(q.failures, key)
	if q.redo[key] {
		delete(q.redo, key)
		q.push(key, time.Time{})
	}
}

// Len returns the number of keys waiting to be processed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close unblocks Get and drops pending keys.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.pending = nil
	close(q.wake)
}

// push must be called with mu held on an open queue.
func (q *Queue) push(key string, ready time.Time) {
	if q.queued[key] {
		return
	}
	q.queued[key] = true
	q.pending = append(q.pending, entry{key: key, ready: ready})
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// backoff returns 1s, 2s, 4s, ... capped at 60s for the nth failure.
func backoff(failures int) time.Duration {
	d := initialBackoff
	for i := 1; i < failures && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
