package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/learning"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "analyses.db"))
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotStore_SaveAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	first := []learning.PerformanceAnalysis{
		{Provider: "openai", Model: "gpt-4o", TotalRequests: 10, Successes: 9, SuccessRate: 0.9},
	}
	second := []learning.PerformanceAnalysis{
		{Provider: "openai", Model: "gpt-4o", TotalRequests: 20, Successes: 20, SuccessRate: 1.0},
		{Provider: "gemini", Model: "gemini-pro", TotalRequests: 5, Successes: 4, SuccessRate: 0.8},
	}

	if err := s.Save(ctx, start, end, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, end, end.Add(24*time.Hour), second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(snap.Analyses) != 2 {
		t.Fatalf("Latest() returned %d analyses, want the second save's 2", len(snap.Analyses))
	}
	if snap.Analyses[0].TotalRequests != 20 {
		t.Errorf("TotalRequests = %d, want 20", snap.Analyses[0].TotalRequests)
	}
	if !snap.PeriodStart.Equal(end) {
		t.Errorf("PeriodStart = %v, want %v", snap.PeriodStart, end)
	}
}

func TestSnapshotStore_LatestEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Latest(context.Background()); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("Latest() error = %v, want ErrNoSnapshots", err)
	}
}

func TestSnapshotStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyses.db")
	s, err := NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Save(context.Background(), start, start.Add(time.Hour), []learning.PerformanceAnalysis{
		{Provider: "openai", Model: "gpt-4o", TotalRequests: 1},
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Close()

	reopened, err := NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("NewSnapshotStore() reopen error = %v", err)
	}
	defer reopened.Close()
	snap, err := reopened.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() after reopen error = %v", err)
	}
	if len(snap.Analyses) != 1 || snap.Analyses[0].Provider != "openai" {
		t.Errorf("Latest() analyses = %+v", snap.Analyses)
	}
}

func TestNewSnapshotStore_EmptyPath(t *testing.T) {
	if _, err := NewSnapshotStore(""); err == nil {
		t.Error("NewSnapshotStore(\"\") succeeded, want error")
	}
}
