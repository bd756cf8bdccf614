package learning

import (
	"testing"

	"mercator-hq/saturn/pkg/ledger"
	"mercator-hq/saturn/pkg/ranking"
	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
)

func ledgerBusEvent(entry any) events.Event {
	return events.New(events.TopicLedgerEntryCreated, "bias_ledger", events.SeverityInfo,
		map[string]any{"entry": entry})
}

func TestOnlineSubscriber_FeedsRanking(t *testing.T) {
	r, err := ranking.New(ranking.DefaultConfig())
	if err != nil {
		t.Fatalf("ranking.New() error = %v", err)
	}
	b := bus.New(bus.Config{})
	defer b.Shutdown(true)

	NewOnlineSubscriber(r, nil).Register(b)

	b.PublishSync(events.TopicLedgerEntryCreated, ledgerBusEvent(&ledger.Entry{
		RequestID:       "req-1",
		FinalProvider:   "openai",
		ResilienceScore: 0.8,
	}))

	stats, ok := r.ProviderStats("openai")
	if !ok {
		t.Fatal("expected stats for openai")
	}
	if stats.Requests != 1 {
		t.Errorf("Requests = %d, want 1", stats.Requests)
	}
	if stats.EMA != 0.8 {
		t.Errorf("EMA = %v, want cold-start adoption of 0.8", stats.EMA)
	}
}

func TestOnlineSubscriber_SkipsUnattributedEntries(t *testing.T) {
	r, err := ranking.New(ranking.DefaultConfig())
	if err != nil {
		t.Fatalf("ranking.New() error = %v", err)
	}
	b := bus.New(bus.Config{})
	defer b.Shutdown(true)

	NewOnlineSubscriber(r, nil).Register(b)

	// Failure entries carry no provider; malformed payloads carry no entry.
	b.PublishSync(events.TopicLedgerEntryCreated, ledgerBusEvent(&ledger.Entry{
		RequestID:       "req-1",
		ResilienceScore: 0,
	}))
	b.PublishSync(events.TopicLedgerEntryCreated, ledgerBusEvent("not an entry"))
	b.PublishSync(events.TopicLedgerEntryCreated, events.New(
		events.TopicLedgerEntryCreated, "test", events.SeverityInfo, nil))

	if got := r.Scores(); len(got) != 0 {
		t.Errorf("Scores() = %v, want none recorded", got)
	}
}
