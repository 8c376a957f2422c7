package intel

import (
	"time"

	"github.com/sentinelsoc/sentry/internal/model"
)

// Provenance labels attached to lookup results.
const (
	SourceLocalIndex = "Local Threat Intelligence"
	SourceNoData     = "No threat data available"
)

// LookupResult is an indicator reputation enriched with provenance and
// the time the lookup was performed.
type LookupResult struct {
	Indicator string `json:"indicator"`
	model.ThreatIndicator
	Source   string    `json:"source"`
	LastSeen time.Time `json:"last_seen"`
}

// QueryService answers on-demand operator lookups. It is independent of
// the ingestion pipeline and safe to call concurrently with it.
type QueryService struct {
	index *Index
}

// NewQueryService wraps an index for operator queries.
func NewQueryService(index *Index) *QueryService {
	return &QueryService{index: index}
}

// Lookup resolves an indicator against the local index, labeling the
// result with its provenance.
func (s *QueryService) Lookup(indicator string) LookupResult {
	result := LookupResult{
		Indicator:       indicator,
		ThreatIndicator: s.index.Lookup(indicator),
		Source:          SourceLocalIndex,
		LastSeen:        time.Now().UTC(),
	}
	if !s.index.Contains(indicator) {
		result.Source = SourceNoData
	}
	return result
}
