// Package intel provides the threat-intelligence index and the operator
// lookup service layered on top of it.
package intel

import (
	"github.com/sentinelsoc/sentry/internal/model"
)

// unknownIndicator is returned for any indicator absent from the index.
var unknownIndicator = model.ThreatIndicator{
	Reputation: model.ReputationClean,
	Score:      10,
	Category:   "Unknown",
}

// Index is a read-only indicator reputation table. Lookup is a pure
// function of the table, so concurrent readers need no synchronization.
type Index struct {
	table map[string]model.ThreatIndicator
}

// NewIndex builds an index from the given seed table. The table is
// copied; later changes to the caller's map are not observed.
func NewIndex(seed map[string]model.ThreatIndicator) *Index {
	table := make(map[string]model.ThreatIndicator, len(seed))
	for k, v := range seed {
		table[k] = v
	}
	return &Index{table: table}
}

// DefaultTable returns the built-in reference indicator set.
func DefaultTable() map[string]model.ThreatIndicator {
	return map[string]model.ThreatIndicator{
		"192.168.1.100":  {Reputation: model.ReputationMalicious, Score: 95, Category: "C2 Server", Country: "Unknown"},
		"10.0.0.50":      {Reputation: model.ReputationSuspicious, Score: 65, Category: "Scanning Activity", Country: "CN"},
		"203.0.113.42":   {Reputation: model.ReputationMalicious, Score: 88, Category: "Malware Distribution", Country: "RU"},
		"malware.exe":    {Reputation: model.ReputationMalicious, Score: 100, Category: "Trojan", Family: "GenericKD"},
		"suspicious.dll": {Reputation: model.ReputationSuspicious, Score: 70, Category: "PUP", Family: "Adware"},
	}
}

// Lookup returns the reputation record for an indicator. It never
// fails: absent indicators resolve to a clean default with score 10.
func (ix *Index) Lookup(indicator string) model.ThreatIndicator {
	if ti, ok := ix.table[indicator]; ok {
		return ti
	}
	return unknownIndicator
}

// Contains reports whether the indicator is present in the backing table.
func (ix *Index) Contains(indicator string) bool {
	_, ok := ix.table[indicator]
	return ok
}

// Size returns the number of seeded indicators.
func (ix *Index) Size() int {
	return len(ix.table)
}
