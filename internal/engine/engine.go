// Package engine classifies incoming security events against the threat
// index and decides between automated response and manual review.
package engine

import (
	"fmt"
	"time"

	"github.com/sentinelsoc/sentry/internal/intel"
	"github.com/sentinelsoc/sentry/internal/model"
)

// blockActions is the fixed remediation sequence for an automated block.
var blockActions = []string{"IP Blocked", "Firewall Rule Added", "Incident Ticket Created"}

// feedActions is the monitoring sequence for feed-derived detections
// awaiting confirmation.
var feedActions = []string{"Indicator Recorded", "Traffic Monitoring Enabled", "Watchlist Updated"}

// Engine is the correlation engine. Classify is a total function: every
// event lands in exactly one branch of the decision table and no branch
// can fail.
type Engine struct {
	index *intel.Index
}

// New creates an engine backed by the given threat index.
func New(index *intel.Index) *Engine {
	return &Engine{index: index}
}

// Classify evaluates one event against the decision table, in order:
//
//  1. source IP malicious in the index: block the event and raise an
//     active automated alert with the remediation action list;
//  2. critical severity or pre-classified automated: raise a pending
//     alert for review;
//  3. otherwise: store the event as-is, no alert.
//
// A malicious index match always wins over the automated-feed flag.
// Status and Automated are the only event fields Classify mutates.
func (e *Engine) Classify(ev model.Event) (model.Event, *model.Alert) {
	threat := e.index.Lookup(ev.SourceIP)

	if threat.Reputation == model.ReputationMalicious {
		ev.Status = model.StatusBlocked
		ev.Automated = true
		alert := &model.Alert{
			ID:          model.NewAlertID(),
			EventID:     ev.ID,
			Timestamp:   time.Now().UTC(),
			Severity:    model.SeverityCritical,
			Title:       fmt.Sprintf("Automated Response: %s", ev.Type),
			Description: fmt.Sprintf("IP %s blocked - Known %s", ev.SourceIP, threat.Category),
			Status:      model.AlertActive,
			Automated:   true,
			Actions:     append([]string(nil), blockActions...),
		}
		return ev, alert
	}

	if ev.Severity == model.SeverityCritical || ev.Automated {
		alert := &model.Alert{
			ID:          model.NewAlertID(),
			EventID:     ev.ID,
			Timestamp:   time.Now().UTC(),
			Severity:    ev.Severity,
			Description: ev.Description,
			Status:      model.AlertPending,
		}
		if feed := ev.FeedName(); feed != "" {
			alert.Title = fmt.Sprintf("Threat Feed Detection: %s", ev.Type)
			alert.Automated = true
			alert.Actions = append([]string(nil), feedActions...)
		} else {
			alert.Title = fmt.Sprintf("Manual Review Required: %s", ev.Type)
		}
		return ev, alert
	}

	return ev, nil
}
