// Package store keeps bounded, newest-first in-memory views of events
// and alerts together with the rollup counters derived from them.
package store

import (
	"sync"

	"github.com/sentinelsoc/sentry/internal/model"
)

// Counters are the monotonically accumulating rollup metrics. They are
// never decremented while the process lives.
type Counters struct {
	TotalEvents     uint64 `json:"total_events"`
	CriticalAlerts  uint64 `json:"critical_alerts"`
	BlockedThreats  uint64 `json:"blocked_threats"`
	ActiveIncidents uint64 `json:"active_incidents"`
}

// Stats is a point-in-time summary of the store for operator consumption.
type Stats struct {
	Counters     Counters          `json:"counters"`
	StoredEvents int               `json:"stored_events"`
	StoredAlerts int               `json:"stored_alerts"`
	BySeverity   map[string]int    `json:"by_severity"`
	ByStatus     map[string]int    `json:"by_status"`
}

// Memory is the retention store: two independent bounded sequences kept
// newest-first, plus the counters. An event, its derived alert, and the
// counter updates land under one lock, so readers never observe one
// without the others.
type Memory struct {
	mu        sync.RWMutex
	events    []model.Event
	alerts    []model.Alert
	maxEvents int
	maxAlerts int
	counters  Counters
}

// NewMemory creates a store with the given retention caps.
func NewMemory(maxEvents, maxAlerts int) *Memory {
	return &Memory{
		events:    make([]model.Event, 0, maxEvents),
		alerts:    make([]model.Alert, 0, maxAlerts),
		maxEvents: maxEvents,
		maxAlerts: maxAlerts,
	}
}

// Record inserts a classified event and its optional alert atomically,
// updating the counters in the same critical section. Insertion is
// prepend-then-truncate: the oldest entries are silently evicted once a
// cap is exceeded.
func (m *Memory) Record(ev model.Event, alert *model.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = prepend(m.events, ev, m.maxEvents)
	m.counters.TotalEvents++

	if alert == nil {
		return
	}
	m.alerts = prepend(m.alerts, *alert, m.maxAlerts)

	// The alert shape encodes the engine's branch: an active automated
	// alert is an auto-block, a pending alert is a critical queued for
	// review.
	if alert.Status == model.AlertActive && alert.Automated {
		m.counters.BlockedThreats++
		m.counters.ActiveIncidents++
	} else {
		m.counters.CriticalAlerts++
	}
}

func prepend[T any](list []T, item T, max int) []T {
	list = append(list, item)
	copy(list[1:], list)
	list[0] = item
	if len(list) > max {
		list = list[:max]
	}
	return list
}

// Events returns a newest-first snapshot, at most limit entries
// (limit <= 0 means all retained).
func (m *Memory) Events(limit int) []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Event, n)
	copy(out, m.events[:n])
	return out
}

// Alerts returns a newest-first snapshot, at most limit entries
// (limit <= 0 means all retained).
func (m *Memory) Alerts(limit int) []model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.alerts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Alert, n)
	copy(out, m.alerts[:n])
	return out
}

// Counters returns the current rollup counters.
func (m *Memory) Counters() Counters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters
}

// Stats summarizes the retained events by severity and status alongside
// the counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Counters:     m.counters,
		StoredEvents: len(m.events),
		StoredAlerts: len(m.alerts),
		BySeverity:   make(map[string]int),
		ByStatus:     make(map[string]int),
	}
	for _, ev := range m.events {
		stats.BySeverity[string(ev.Severity)]++
		stats.ByStatus[string(ev.Status)]++
	}
	return stats
}
