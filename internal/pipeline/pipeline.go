// Package pipeline wires classification, retention, telemetry, and
// alert publishing into the single ingest path every event takes.
package pipeline

import (
	"log/slog"

	"github.com/sentinelsoc/sentry/internal/engine"
	"github.com/sentinelsoc/sentry/internal/metrics"
	"github.com/sentinelsoc/sentry/internal/model"
	"github.com/sentinelsoc/sentry/internal/store"
)

// AlertPublisher forwards raised alerts to an external consumer. A nil
// publisher is valid and means alerts stay local.
type AlertPublisher interface {
	PublishAlert(alert model.Alert) error
}

// Pipeline owns the mutable pipeline state and is the only writer to
// the retention store. Readers get immutable snapshots from the store.
type Pipeline struct {
	engine    *engine.Engine
	store     *store.Memory
	metrics   *metrics.Metrics
	publisher AlertPublisher
	logger    *slog.Logger
}

// New assembles the ingest path. publisher may be nil.
func New(eng *engine.Engine, st *store.Memory, m *metrics.Metrics, publisher AlertPublisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		engine:    eng,
		store:     st,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
	}
}

// Ingest classifies one event and records the outcome. The store write
// couples the event, its alert, and the counter updates atomically.
func (p *Pipeline) Ingest(ev model.Event) (model.Event, *model.Alert) {
	ev, alert := p.engine.Classify(ev)
	p.store.Record(ev, alert)

	p.metrics.EventsIngested.Inc()
	if alert != nil {
		p.metrics.AlertsRaised.WithLabelValues(string(alert.Status)).Inc()
		if alert.Status == model.AlertActive && alert.Automated {
			p.metrics.ThreatsBlocked.Inc()
		}
	}

	p.logger.Info("Event ingested",
		"event_id", ev.ID,
		"type", ev.Type,
		"severity", ev.Severity,
		"source_ip", ev.SourceIP,
		"status", ev.Status,
		"alerted", alert != nil)

	if alert != nil && p.publisher != nil {
		if err := p.publisher.PublishAlert(*alert); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Warn("Failed to publish alert", "alert_id", alert.ID, "error", err)
		}
	}
	return ev, alert
}

// Store exposes the retention store for snapshot readers.
func (p *Pipeline) Store() *store.Memory {
	return p.store
}
