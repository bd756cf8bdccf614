package learning

import (
	"log/slog"

	"mercator-hq/saturn/pkg/ledger"
	"mercator-hq/saturn/pkg/ranking"
	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
)

// OnlineSubscriber feeds finished requests' resilience scores into the
// ranking engine as they happen.
type OnlineSubscriber struct {
	ranking *ranking.Engine
	logger  *slog.Logger
}

// NewOnlineSubscriber creates an online learning subscriber.
func NewOnlineSubscriber(r *ranking.Engine, logger *slog.Logger) *OnlineSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnlineSubscriber{
		ranking: r,
		logger:  logger.With("component", "online_learning"),
	}
}

// Register subscribes the learner to ledger entry events.
func (s *OnlineSubscriber) Register(b *bus.Bus) {
	b.Subscribe(events.TopicLedgerEntryCreated, s.HandleEvent)
}

// HandleEvent implements bus.Handler. Entries without a final provider
// carry no attributable signal and are skipped.
func (s *OnlineSubscriber) HandleEvent(topic string, e events.Event) {
	entry, ok := e.Payload["entry"].(*ledger.Entry)
	if !ok {
		s.logger.Debug("ignoring ledger event without a typed entry", "event_id", e.EventID)
		return
	}
	if entry.FinalProvider == "" {
		s.logger.Debug("skipping unattributed ledger entry", "request_id", entry.RequestID)
		return
	}
	s.ranking.RecordOutcome(entry.FinalProvider, entry.ResilienceScore)
	s.logger.Debug("recorded outcome",
		"provider", entry.FinalProvider,
		"score", entry.ResilienceScore)
}
