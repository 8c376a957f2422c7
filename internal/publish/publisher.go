// Package publish forwards raised alerts to NATS for downstream
// consumers. The pipeline works without a broker; this is additive.
package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/sentinelsoc/sentry/internal/model"
)

// SubjectAlerts is the subject raised alerts are published on.
const SubjectAlerts = "sentry.alerts.triggered"

// NATSPublisher publishes alerts as JSON messages.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher wraps an established NATS connection. An empty
// subject falls back to SubjectAlerts.
func NewNATSPublisher(nc *nats.Conn, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = SubjectAlerts
	}
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}
}

// PublishAlert implements pipeline.AlertPublisher.
func (p *NATSPublisher) PublishAlert(alert model.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshaling alert %s: %w", alert.ID, err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing alert %s: %w", alert.ID, err)
	}
	p.logger.Debug("Published alert", "alert_id", alert.ID, "subject", p.subject)
	return nil
}
