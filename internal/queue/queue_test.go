package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/Yepoleb/gogdb/internal/queue"
)

func TestQueue_Schedule(t *testing.T) {
	t.Run("first insertion enqueues", func(t *testing.T) {
		t.Parallel()
		q := queue.New()

		if !q.Schedule(1) {
			t.Error("Schedule(1) = false, want true")
		}
		if q.Len() != 1 {
			t.Errorf("Len() = %d, want 1", q.Len())
		}
	})

	t.Run("rescheduling is a no-op", func(t *testing.T) {
		t.Parallel()
		q := queue.New()

		q.Schedule(1)
		if q.Schedule(1) {
			t.Error("second Schedule(1) = true, want false")
		}
		if q.Len() != 1 {
			t.Errorf("Len() = %d, want 1", q.Len())
		}
	})

	t.Run("taken ids stay deduplicated", func(t *testing.T) {
		t.Parallel()
		q := queue.New()

		q.Schedule(1)
		if _, err := q.Take(); err != nil {
			t.Fatalf("Take() error = %v", err)
		}
		if q.Schedule(1) {
			t.Error("Schedule(1) after Take = true, want false")
		}
		if q.Len() != 0 {
			t.Errorf("Len() = %d, want 0", q.Len())
		}
	})

	t.Run("after close ids are recorded but not enqueued", func(t *testing.T) {
		t.Parallel()
		q := queue.New()

		q.Close()
		if q.Schedule(7) {
			t.Error("Schedule(7) after Close = true, want false")
		}
		if q.Len() != 0 {
			t.Errorf("Len() = %d, want 0", q.Len())
		}
		scheduled := q.Scheduled()
		if len(scheduled) != 1 || scheduled[0] != 7 {
			t.Errorf("Scheduled() = %v, want [7]", scheduled)
		}
	})
}

func TestQueue_Take(t *testing.T) {
	t.Run("drains in fifo order", func(t *testing.T) {
		t.Parallel()
		q := queue.New()

		q.Schedule(3)
		q.Schedule(1)
		q.Schedule(2)
		for _, want := range []int64{3, 1, 2} {
			got, err := q.Take()
			if err != nil {
				t.Fatalf("Take() error = %v", err)
			}
			if got != want {
				t.Errorf("Take() = %d, want %d", got, want)
			}
		}
	})

	t.Run("empty closed queue exhausts without blocking", func(t *testing.T) {
		t.Parallel()
		q := queue.New()
		q.Close()

		done := make(chan error, 1)
		go func() {
			_, err := q.Take()
			done <- err
		}()
		select {
		case err := <-done:
			if err != queue.ErrExhausted {
				t.Errorf("Take() error = %v, want ErrExhausted", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Take() blocked on empty closed queue")
		}
	})

	t.Run("every consumer exits after close", func(t *testing.T) {
		t.Parallel()
		q := queue.New()
		for id := int64(0); id < 20; id++ {
			q.Schedule(id)
		}

		const consumers = 4
		var wg sync.WaitGroup
		var mu sync.Mutex
		taken := map[int64]bool{}
		wg.Add(consumers)
		for i := 0; i < consumers; i++ {
			go func() {
				defer wg.Done()
				for {
					id, err := q.Take()
					if err != nil {
						return
					}
					mu.Lock()
					taken[id] = true
					mu.Unlock()
				}
			}()
		}
		q.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("consumers did not terminate")
		}
		if len(taken) != 20 {
			t.Errorf("took %d distinct ids, want 20", len(taken))
		}
	})

	t.Run("blocked consumer receives later item", func(t *testing.T) {
		t.Parallel()
		q := queue.New()

		got := make(chan int64, 1)
		go func() {
			id, err := q.Take()
			if err != nil {
				got <- -1
				return
			}
			got <- id
		}()
		time.Sleep(10 * time.Millisecond)
		q.Schedule(42)

		select {
		case id := <-got:
			if id != 42 {
				t.Errorf("Take() = %d, want 42", id)
			}
		case <-time.After(time.Second):
			t.Fatal("Take() never returned")
		}
	})
}

func TestManager_ScheduleProduct(t *testing.T) {
	t.Parallel()
	m := queue.NewManager()

	m.ScheduleProduct(1, false)
	m.ScheduleProduct(2, true)
	m.ScheduleProduct(2, true)

	if got := m.Products.Len(); got != 2 {
		t.Errorf("Products.Len() = %d, want 2", got)
	}
	if got := m.Prices.Len(); got != 1 {
		t.Errorf("Prices.Len() = %d, want 1", got)
	}
}
