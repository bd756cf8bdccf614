package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/telemetry/events"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New(Config{Workers: 2, QueueSize: 64})
	defer b.Shutdown(true)

	var count atomic.Int64
	for i := 0; i < 3; i++ {
		b.Subscribe("test.topic", func(topic string, e events.Event) {
			count.Add(1)
		})
	}

	b.Publish("test.topic", events.New("test.topic", "test", events.SeverityInfo, nil))
	b.Shutdown(true)

	if got := count.Load(); got != 3 {
		t.Errorf("deliveries = %d, want 3", got)
	}
}

func TestPublishNoSubscribersIsNoop(t *testing.T) {
	b := New(Config{Workers: 1, QueueSize: 8})
	defer b.Shutdown(true)
	b.Publish("nobody.listens", events.New("nobody.listens", "test", events.SeverityInfo, nil))
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	b := New(Config{Workers: 1, QueueSize: 8})

	var delivered atomic.Bool
	b.Subscribe("test.topic", func(topic string, e events.Event) {
		panic("subscriber bug")
	})
	b.Subscribe("test.topic", func(topic string, e events.Event) {
		delivered.Store(true)
	})

	b.Publish("test.topic", events.New("test.topic", "test", events.SeverityInfo, nil))
	b.Shutdown(true)

	if !delivered.Load() {
		t.Error("second subscriber did not receive event after first panicked")
	}
}

func TestPublishSyncOrder(t *testing.T) {
	b := New(Config{Workers: 1, QueueSize: 8})
	defer b.Shutdown(true)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe("ordered", func(topic string, e events.Event) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}

	b.PublishSync("ordered", events.New("ordered", "test", events.SeverityInfo, nil))

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want subscription order", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("deliveries = %d, want 5", len(order))
	}
}

func TestPublishSyncPanicIsolated(t *testing.T) {
	b := New(Config{Workers: 1, QueueSize: 8})
	defer b.Shutdown(true)

	var delivered bool
	b.Subscribe("sync.topic", func(topic string, e events.Event) {
		panic("boom")
	})
	b.Subscribe("sync.topic", func(topic string, e events.Event) {
		delivered = true
	})

	b.PublishSync("sync.topic", events.New("sync.topic", "test", events.SeverityInfo, nil))
	if !delivered {
		t.Error("second subscriber skipped after panic in first")
	}
}

func TestPublishAfterShutdownDoesNotPanic(t *testing.T) {
	b := New(Config{Workers: 1, QueueSize: 8})
	b.Shutdown(true)
	b.Publish("late.topic", events.New("late.topic", "test", events.SeverityInfo, nil))
}

func TestQueueFullDropsAndCounts(t *testing.T) {
	b := New(Config{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	b.Subscribe("slow", func(topic string, e events.Event) {
		<-release
	})

	// First publish occupies the worker, subsequent ones fill the queue
	// and then overflow. Publishing must never block here.
	for i := 0; i < 10; i++ {
		b.Publish("slow", events.New("slow", "test", events.SeverityInfo, nil))
	}

	deadline := time.After(2 * time.Second)
	for b.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("no drops recorded for overflowing queue")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(release)
	b.Shutdown(true)
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := New(Config{Workers: 4, QueueSize: 1024})
	defer b.Shutdown(true)

	var count atomic.Int64
	b.Subscribe("concurrent", func(topic string, e events.Event) {
		count.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish("concurrent", events.New("concurrent", "test", events.SeverityInfo, nil))
			}
		}()
	}
	wg.Wait()
	b.Shutdown(true)

	if got := count.Load() + b.Dropped(); got != 400 {
		t.Errorf("delivered+dropped = %d, want 400", got)
	}
}

// Publishers racing Shutdown must either deliver or drop each event,
// never send on the closed dispatch channel.
func TestPublishRacingShutdownDoesNotPanic(t *testing.T) {
	for i := 0; i < 100; i++ {
		b := New(Config{Workers: 2, QueueSize: 4})
		b.Subscribe("racy", func(topic string, e events.Event) {})

		start := make(chan struct{})
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 20; j++ {
					b.Publish("racy", events.New("racy", "test", events.SeverityInfo, nil))
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			b.Shutdown(true)
		}()
		close(start)
		wg.Wait()
	}
}
