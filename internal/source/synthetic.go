package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sentinelsoc/sentry/internal/model"
)

// archetype is one entry of the synthetic event catalog.
type archetype struct {
	eventType   string
	severity    model.Severity
	description string
}

// eventCatalog is the fixed set of synthetic event archetypes.
var eventCatalog = []archetype{
	{"INTRUSION_ATTEMPT", model.SeverityCritical, "Multiple failed SSH login attempts detected"},
	{"MALWARE_DETECTED", model.SeverityCritical, "Malicious file execution blocked"},
	{"DATA_EXFILTRATION", model.SeverityHigh, "Unusual outbound data transfer"},
	{"PORT_SCAN", model.SeverityMedium, "Network scanning activity detected"},
	{"PRIVILEGE_ESCALATION", model.SeverityCritical, "Unauthorized privilege escalation attempt"},
	{"SUSPICIOUS_PROCESS", model.SeverityHigh, "Unknown process spawned from system directory"},
	{"PHISHING_ATTEMPT", model.SeverityMedium, "Suspicious email link clicked"},
	{"ANOMALOUS_LOGIN", model.SeverityHigh, "Login from unusual geolocation"},
	{"FILE_INTEGRITY", model.SeverityMedium, "Critical system file modification detected"},
	{"DNS_TUNNELING", model.SeverityHigh, "Potential DNS tunneling detected"},
}

var (
	syntheticSourceIPs = []string{"192.168.1.100", "10.0.0.50", "172.16.0.25", "203.0.113.42"}
	syntheticUsers     = []string{"admin", "root", "user1", "system", "service_account"}
)

// Synthetic generates one procedural event per batch by sampling the
// archetype catalog and the fixed address/user pools.
type Synthetic struct {
	rng     *rand.Rand
	cadence time.Duration
}

// NewSynthetic creates a synthetic generator ticking at the given cadence.
func NewSynthetic(cadence time.Duration) *Synthetic {
	return &Synthetic{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cadence: cadence,
	}
}

// Name implements Source.
func (s *Synthetic) Name() string { return "synthetic" }

// Cadence implements Source.
func (s *Synthetic) Cadence() time.Duration { return s.cadence }

// NextBatch returns exactly one freshly generated event.
func (s *Synthetic) NextBatch(_ context.Context) ([]model.Event, error) {
	at := eventCatalog[s.rng.Intn(len(eventCatalog))]
	ev := model.Event{
		ID:          model.NewEventID(),
		Timestamp:   time.Now().UTC(),
		Type:        at.eventType,
		Severity:    at.severity,
		Description: at.description,
		SourceIP:    syntheticSourceIPs[s.rng.Intn(len(syntheticSourceIPs))],
		DestIP:      fmt.Sprintf("10.0.%d.%d", s.rng.Intn(255), s.rng.Intn(255)),
		User:        syntheticUsers[s.rng.Intn(len(syntheticUsers))],
		Status:      model.StatusDetected,
		Automated:   false,
	}
	return []model.Event{ev}, nil
}
