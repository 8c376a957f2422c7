package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentinelsoc/sentry/internal/model"
)

// FeedNameURLhaus is the feed label stamped into event metadata.
const FeedNameURLhaus = "URLhaus"

const maxStoredURLLen = 120

// urlhausResponse is the recent-URLs payload shape.
type urlhausResponse struct {
	QueryStatus string          `json:"query_status"`
	URLs        []urlhausRecord `json:"urls"`
}

type urlhausRecord struct {
	URL       string   `json:"url"`
	DateAdded string   `json:"date_added"`
	Threat    string   `json:"threat"`
	Tags      []string `json:"tags"`
	Reporter  string   `json:"reporter"`
	URLStatus string   `json:"url_status"`
}

// URLhaus polls the URLhaus recent-URLs endpoint and maps malicious-URL
// records to events. Records with unparseable URLs are skipped, never
// fatal.
type URLhaus struct {
	client   *http.Client
	endpoint string
	limit    int
	cadence  time.Duration
	logger   *slog.Logger
}

// NewURLhaus creates a URL-reputation feed adapter. The endpoint should
// already include the record limit path segment where the upstream API
// requires one.
func NewURLhaus(endpoint string, limit int, cadence time.Duration, logger *slog.Logger) *URLhaus {
	return &URLhaus{
		client:   &http.Client{},
		endpoint: endpoint,
		limit:    limit,
		cadence:  cadence,
		logger:   logger,
	}
}

// Name implements Source.
func (u *URLhaus) Name() string { return FeedNameURLhaus }

// Cadence implements Source.
func (u *URLhaus) Cadence() time.Duration { return u.cadence }

// NextBatch fetches the most recent malicious-URL records and maps each
// to a MALWARE_URL_DETECTED event.
func (u *URLhaus) NextBatch(ctx context.Context) ([]model.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building urlhaus request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching urlhaus feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("urlhaus feed returned status %d", resp.StatusCode)
	}

	var payload urlhausResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding urlhaus payload: %w", err)
	}
	if payload.QueryStatus != "ok" {
		u.logger.Warn("URLhaus query not ok, treating as empty", "query_status", payload.QueryStatus)
		return nil, nil
	}

	events := make([]model.Event, 0, u.limit)
	for _, rec := range payload.URLs {
		if len(events) >= u.limit {
			break
		}
		ev, ok := u.mapRecord(rec)
		if !ok {
			u.logger.Debug("Skipping malformed URLhaus record", "url", rec.URL)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// mapRecord converts one feed record to an event. The second return is
// false when the record's URL has no usable host.
func (u *URLhaus) mapRecord(rec urlhausRecord) (model.Event, bool) {
	parsed, err := url.Parse(rec.URL)
	if err != nil || parsed.Hostname() == "" {
		return model.Event{}, false
	}

	severity := model.SeverityHigh
	if rec.Threat == "malware_download" {
		severity = model.SeverityCritical
	}

	status := model.StatusArchived
	if rec.URLStatus == "online" {
		status = model.StatusDetected
	}

	stored := rec.URL
	if len(stored) > maxStoredURLLen {
		stored = stored[:maxStoredURLLen]
	}

	return model.Event{
		ID:          model.NewEventID(),
		Timestamp:   time.Now().UTC(),
		Type:        "MALWARE_URL_DETECTED",
		Severity:    severity,
		Description: fmt.Sprintf("Malicious URL reported by %s feed", FeedNameURLhaus),
		SourceIP:    parsed.Hostname(),
		User:        "external",
		Status:      status,
		Automated:   true,
		Metadata: map[string]string{
			model.MetaFeed:      FeedNameURLhaus,
			model.MetaIndicator: rec.URL,
			model.MetaURL:       stored,
			model.MetaTags:      strings.Join(rec.Tags, ","),
			model.MetaReporter:  rec.Reporter,
		},
	}, true
}
