package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity is the ordered severity scale used by events and alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of the severity (low=1 .. critical=4).
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// EventStatus tracks where an event sits in its lifecycle.
type EventStatus string

const (
	StatusDetected EventStatus = "detected"
	StatusBlocked  EventStatus = "blocked"
	StatusArchived EventStatus = "archived"
	StatusResolved EventStatus = "resolved"
)

// AlertStatus distinguishes alerts the engine acted on from alerts
// queued for an analyst.
type AlertStatus string

const (
	AlertActive  AlertStatus = "active"
	AlertPending AlertStatus = "pending"
)

// Reputation classifies a threat indicator.
type Reputation string

const (
	ReputationMalicious  Reputation = "malicious"
	ReputationSuspicious Reputation = "suspicious"
	ReputationClean      Reputation = "clean"
)

// Metadata keys set by feed-derived events.
const (
	MetaFeed      = "feed"
	MetaIndicator = "indicator"
	MetaURL       = "url"
	MetaTags      = "tags"
	MetaReporter  = "reporter"
	MetaAttempts  = "attempts"
)

// Event represents a single security event flowing through the pipeline.
// Sources create events, the correlation engine may flip Status and
// Automated exactly once, and the event is immutable after that.
type Event struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Type        string            `json:"type"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description"`
	SourceIP    string            `json:"source_ip"`
	DestIP      string            `json:"dest_ip,omitempty"`
	User        string            `json:"user,omitempty"`
	Status      EventStatus       `json:"status"`
	Automated   bool              `json:"automated"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FeedName returns the originating feed name for feed-derived events,
// or empty for synthetic events.
func (e *Event) FeedName() string {
	return e.Metadata[MetaFeed]
}

// Alert is the correlation engine's output for a qualifying event.
// Alerts are created once and never mutated.
type Alert struct {
	ID          string      `json:"id"`
	EventID     string      `json:"event_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Severity    Severity    `json:"severity"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      AlertStatus `json:"status"`
	Automated   bool        `json:"automated"`
	Actions     []string    `json:"actions,omitempty"`
}

// ThreatIndicator is the reputation record for a single indicator
// (IP address, hostname, or file artifact).
type ThreatIndicator struct {
	Reputation Reputation `json:"reputation" yaml:"reputation"`
	Score      int        `json:"score" yaml:"score"`
	Category   string     `json:"category" yaml:"category"`
	Country    string     `json:"country,omitempty" yaml:"country,omitempty"`
	Family     string     `json:"family,omitempty" yaml:"family,omitempty"`
}

// NewEventID returns a time-ordered event ID with a random suffix.
// Same-millisecond IDs still differ in the UUID-derived suffix, so
// collisions are negligible.
func NewEventID() string {
	return newID("EVT")
}

// NewAlertID returns a time-ordered alert ID with a random suffix.
func NewAlertID() string {
	return newID("ALT")
}

func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
