package navigation

import (
	"context"
	"sync"
)

// queue serializes navigation requests in call order. Each request waits for
// its predecessor to finish, and is stale once a later request has been
// queued behind it.
type queue struct {
	mu   sync.Mutex
	tail chan struct{}
}

func newQueue() *queue {
	done := make(chan struct{})
	close(done)
	return &queue{tail: done}
}

type ticket struct {
	q    *queue
	prev chan struct{}
	done chan struct{}
	once sync.Once
}

func (q *queue) enqueue() *ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := &ticket{q: q, prev: q.tail, done: make(chan struct{})}
	q.tail = t.done
	return t
}

// wait blocks until every earlier request has finished.
func (t *ticket) wait(ctx context.Context) error {
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stale reports whether a newer request is queued.
func (t *ticket) stale() bool {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.q.tail != t.done
}

// release lets the next request run. If this request gave up waiting, the
// release is deferred until its predecessor is done so order is kept.
func (t *ticket) release() {
	t.once.Do(func() {
		select {
		case <-t.prev:
			close(t.done)
		default:
			go func() {
				<-t.prev
				close(t.done)
			}()
		}
	})
}
