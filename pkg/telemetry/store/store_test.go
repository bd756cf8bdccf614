package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
)

func newTestStore(t *testing.T, cfg Config) *TimeSeriesStore {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "telemetry.db")
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func eventAt(eventType string, ts time.Time, seq int) events.Event {
	return events.Event{
		EventID:      fmt.Sprintf("evt-%s-%04d", eventType, seq),
		EventType:    eventType,
		EventSource:  "test",
		TimestampUTC: ts.UTC().Format(time.RFC3339Nano),
		Severity:     events.SeverityInfo,
		Payload:      map[string]any{"seq": seq},
	}
}

func TestStopFlushesRemainder(t *testing.T) {
	s := newTestStore(t, Config{BatchSize: 100, FlushInterval: time.Hour})
	s.Start()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		s.Ingest(eventAt("api.call.success", base.Add(time.Duration(i)*time.Second), i))
	}
	if depth := s.QueueDepth(); depth != 7 {
		t.Fatalf("QueueDepth() = %d, want 7 before flush", depth)
	}

	// Reopen to verify the data survived Stop.
	path := s.cfg.Path
	s.Stop()

	reopened, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Stop()
	n, err := reopened.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 7 {
		t.Errorf("Count() = %d, want 7", n)
	}
}

func TestBatchSizeTriggersFlush(t *testing.T) {
	s := newTestStore(t, Config{BatchSize: 5, FlushInterval: time.Hour})
	defer s.Stop()
	s.Start()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Ingest(eventAt("api.call.attempt", base.Add(time.Duration(i)*time.Second), i))
	}

	deadline := time.After(5 * time.Second)
	for {
		n, err := s.Count(context.Background())
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n == 5 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Count() = %d after deadline, want 5", n)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestQueryRangePagination(t *testing.T) {
	s := newTestStore(t, Config{BatchSize: 100, FlushInterval: time.Hour})
	defer s.Stop()
	s.Start()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		s.Ingest(eventAt("ledger.entry.created", base.Add(time.Duration(i)*time.Minute), i))
	}
	// Noise of another type inside the range must not appear.
	s.Ingest(eventAt("api.call.failure", base.Add(time.Minute), 999))
	for s.flushOnce() > 0 {
	}

	cursor := s.QueryRange("ledger.entry.created", base, base.Add(time.Hour), 10)
	var all []events.Event
	pages := 0
	for {
		page, err := cursor.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if page == nil {
			break
		}
		pages++
		if len(page) > 10 {
			t.Fatalf("page size = %d, want <= 10", len(page))
		}
		all = append(all, page...)
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(all) != 25 {
		t.Fatalf("events = %d, want 25", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].TimestampUTC < all[i-1].TimestampUTC {
			t.Fatal("events not ordered by timestamp ascending")
		}
	}
	for _, e := range all {
		if e.EventType != "ledger.entry.created" {
			t.Fatalf("unexpected event type %q in results", e.EventType)
		}
	}
	if seq, ok := all[0].Payload["seq"].(float64); !ok || seq != 0 {
		t.Errorf("first payload seq = %v, want 0", all[0].Payload["seq"])
	}

	// Exhausted cursor stays exhausted.
	if page, err := cursor.Next(context.Background()); err != nil || page != nil {
		t.Errorf("Next() after exhaustion = %v, %v, want nil, nil", page, err)
	}

	// A fresh cursor restarts from the beginning.
	again := s.QueryRange("ledger.entry.created", base, base.Add(time.Hour), 25)
	page, err := again.Next(context.Background())
	if err != nil {
		t.Fatalf("restarted Next() error = %v", err)
	}
	if len(page) != 25 {
		t.Errorf("restarted cursor page = %d events, want 25", len(page))
	}
}

func TestQueryRangeBounds(t *testing.T) {
	s := newTestStore(t, Config{BatchSize: 100, FlushInterval: time.Hour})
	defer s.Stop()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s.Ingest(eventAt("api.call.success", base.Add(time.Duration(i)*time.Minute), i))
	}
	for s.flushOnce() > 0 {
	}

	// Half-open range: [base+2m, base+5m) holds minutes 2, 3, 4.
	cursor := s.QueryRange("api.call.success", base.Add(2*time.Minute), base.Add(5*time.Minute), 100)
	page, err := cursor.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(page) != 3 {
		t.Errorf("events in range = %d, want 3", len(page))
	}
}

func TestFlushFailureRequeues(t *testing.T) {
	s := newTestStore(t, Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
		MaxRetries:    1,
		RetryBackoff:  time.Millisecond,
	})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s.Ingest(eventAt("api.call.failure", base.Add(time.Duration(i)*time.Second), i))
	}

	// Force write failures by closing the underlying handle.
	s.db.Close()
	if n := s.flushOnce(); n != 0 {
		t.Fatalf("flushOnce() against closed db = %d, want 0", n)
	}
	if got := s.FlushFailures(); got != 1 {
		t.Errorf("FlushFailures() = %d, want 1", got)
	}
	if depth := s.QueueDepth(); depth != 4 {
		t.Errorf("QueueDepth() after failed flush = %d, want 4 (batch re-queued)", depth)
	}
}

func TestQueueFullDrops(t *testing.T) {
	s := newTestStore(t, Config{QueueSize: 2, BatchSize: 100, FlushInterval: time.Hour})
	defer s.Stop()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Ingest(eventAt("api.call.attempt", base.Add(time.Duration(i)*time.Second), i))
	}
	if got := s.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
	if depth := s.QueueDepth(); depth != 2 {
		t.Errorf("QueueDepth() = %d, want 2", depth)
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t, Config{BatchSize: 100, FlushInterval: time.Hour})
	defer s.Stop()

	now := time.Now().UTC()
	s.Ingest(eventAt("api.call.success", now.Add(-48*time.Hour), 0))
	s.Ingest(eventAt("api.call.success", now.Add(-36*time.Hour), 1))
	s.Ingest(eventAt("api.call.success", now.Add(-time.Hour), 2))
	for s.flushOnce() > 0 {
	}

	deleted, err := s.Prune(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted = %d, want 2", deleted)
	}
	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() after prune = %d, want 1", n)
	}
}

func TestSubscriberPersistsBusEvents(t *testing.T) {
	s := newTestStore(t, Config{BatchSize: 100, FlushInterval: time.Hour})
	defer s.Stop()

	b := bus.New(bus.Config{Workers: 1, QueueSize: 64})
	NewSubscriber(s).Register(b)

	b.Publish(events.TopicCallSuccess, events.New(events.TopicCallSuccess, "test", events.SeverityInfo, nil))
	b.Publish(events.TopicCircuitTripped, events.New(events.TopicCircuitTripped, "test", events.SeverityWarning, nil))
	b.Shutdown(true)

	if depth := s.QueueDepth(); depth != 2 {
		t.Errorf("QueueDepth() = %d, want 2 bus events ingested", depth)
	}
}

func TestRetentionSchedulerValidation(t *testing.T) {
	s := newTestStore(t, Config{})
	defer s.Stop()

	t.Run("idle without config", func(t *testing.T) {
		r := NewRetentionScheduler(s, RetentionConfig{}, nil)
		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	})

	t.Run("rejects bad cron expression", func(t *testing.T) {
		r := NewRetentionScheduler(s, RetentionConfig{MaxAge: time.Hour, Schedule: "not a cron"}, nil)
		if err := r.Start(context.Background()); err == nil {
			t.Fatal("Start() accepted invalid schedule")
		}
	})

	t.Run("starts and stops", func(t *testing.T) {
		r := NewRetentionScheduler(s, RetentionConfig{MaxAge: time.Hour, Schedule: "0 3 * * *"}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		if err := r.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		cancel()
		r.Stop()
	})
}
