// Package queue implements the growable worklist that coordinates the
// sync workers. Producers (including the consumers themselves) may keep
// scheduling ids until the queue is closed; consumers block on Take and
// terminate exactly once the queue is both closed and empty. Termination
// is never signaled on queue-empty alone, since a momentarily empty
// queue can still receive more work.
package queue

import (
	"errors"
	"sync"
)

// ErrExhausted is returned by Take once the queue is closed and no
// items remain. Consumers use it to exit their loop.
var ErrExhausted = errors.New("queue exhausted")

// Queue is a deduplicating FIFO worklist with deterministic
// multi-consumer termination.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []int64
	seen   map[int64]struct{}
	order  []int64
	closed bool
}

func New() *Queue {
	q := &Queue{seen: make(map[int64]struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Schedule enqueues an id on first insertion. Re-scheduling a known id
// is a no-op. After Close the id is still recorded as seen, so it lands
// in the persisted id registry for the next run, but it is no longer
// enqueued. It reports whether the id was newly enqueued.
func (q *Queue) Schedule(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.seen[id]; ok {
		return false
	}
	q.seen[id] = struct{}{}
	q.order = append(q.order, id)
	if q.closed {
		return false
	}
	q.items = append(q.items, id)
	q.cond.Signal()
	return true
}

// Take blocks until an item is available or the queue is exhausted.
func (q *Queue) Take() (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return 0, ErrExhausted
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, nil
}

// Close marks the end of production. Blocked consumers drain the
// remaining items and then receive ErrExhausted.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of items currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Scheduled returns every id ever scheduled, in insertion order.
func (q *Queue) Scheduled() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]int64, len(q.order))
	copy(ids, q.order)
	return ids
}

// Manager pairs the product and price queues. Scheduling a product may
// also schedule its price fetch when the id came from the catalog.
type Manager struct {
	Products *Queue
	Prices   *Queue
}

func NewManager() *Manager {
	return &Manager{Products: New(), Prices: New()}
}

// ScheduleProduct adds a product to the work list. When store is true
// the id is also queued for the price batch task.
func (m *Manager) ScheduleProduct(id int64, store bool) {
	m.Products.Schedule(id)
	if store {
		m.Prices.Schedule(id)
	}
}

// ScheduleProducts schedules a batch of ids.
func (m *Manager) ScheduleProducts(ids []int64, store bool) {
	for _, id := range ids {
		m.ScheduleProduct(id, store)
	}
}
