package source

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelsoc/sentry/internal/model"
)

// FeedNameBlocklist is the feed label stamped into event metadata.
const FeedNameBlocklist = "blocklist.de"

// dottedQuad accepts only strict IPv4 dotted-quad notation, 0-255 per
// octet, no leading zeros beyond a bare zero.
var dottedQuad = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])\.){3}(25[0-5]|2[0-4][0-9]|1[0-9][0-9]|[1-9]?[0-9])$`)

// Blocklist polls a newline-delimited IPv4 blocklist. Lines that are
// not strict dotted quads are discarded per line, never fatal.
type Blocklist struct {
	client   *http.Client
	endpoint string
	limit    int
	cadence  time.Duration
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewBlocklist creates an IP-blocklist feed adapter taking the first
// limit valid addresses of each fetch.
func NewBlocklist(endpoint string, limit int, cadence time.Duration, logger *slog.Logger) *Blocklist {
	return &Blocklist{
		client:   &http.Client{},
		endpoint: endpoint,
		limit:    limit,
		cadence:  cadence,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

// Name implements Source.
func (b *Blocklist) Name() string { return FeedNameBlocklist }

// Cadence implements Source.
func (b *Blocklist) Cadence() time.Duration { return b.cadence }

// NextBatch fetches the blocklist and maps the first valid addresses to
// INTRUSION_ATTEMPT events already marked blocked.
func (b *Blocklist) NextBatch(ctx context.Context) ([]model.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building blocklist request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching blocklist feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blocklist feed returned status %d", resp.StatusCode)
	}

	events := make([]model.Event, 0, b.limit)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if len(events) >= b.limit {
			break
		}
		ip := strings.TrimSpace(scanner.Text())
		if !dottedQuad.MatchString(ip) {
			continue
		}
		events = append(events, b.mapAddress(ip))
	}
	if err := scanner.Err(); err != nil {
		// Keep whatever parsed cleanly before the read error.
		b.logger.Warn("Blocklist read truncated", "error", err, "events", len(events))
	}
	return events, nil
}

func (b *Blocklist) mapAddress(ip string) model.Event {
	attempts := 3 + b.rng.Intn(47)
	return model.Event{
		ID:          model.NewEventID(),
		Timestamp:   time.Now().UTC(),
		Type:        "INTRUSION_ATTEMPT",
		Severity:    model.SeverityCritical,
		Description: fmt.Sprintf("Address reported for brute-force attacks (%d attempts)", attempts),
		SourceIP:    ip,
		User:        "external",
		Status:      model.StatusBlocked,
		Automated:   true,
		Metadata: map[string]string{
			model.MetaFeed:      FeedNameBlocklist,
			model.MetaIndicator: ip,
			model.MetaAttempts:  strconv.Itoa(attempts),
		},
	}
}
