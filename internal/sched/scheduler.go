// Package sched drives event sources on their cadences: a fixed-interval
// tick for the synthetic generator, rate-limited poll-and-fan-out for the
// live threat feeds.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sentinelsoc/sentry/internal/metrics"
	"github.com/sentinelsoc/sentry/internal/model"
	"github.com/sentinelsoc/sentry/internal/pipeline"
	"github.com/sentinelsoc/sentry/internal/source"
)

// Mode selects the active ingestion strategy.
type Mode string

const (
	ModeSynthetic Mode = "synthetic"
	ModeLive      Mode = "live"
)

// ParseMode validates an operator-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSynthetic, ModeLive:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown ingestion mode %q", s)
	}
}

// Config carries the scheduler timing knobs.
type Config struct {
	SyntheticInterval time.Duration
	LiveInterval      time.Duration
	Stagger           time.Duration
	Cooldown          time.Duration
	FetchTimeout      time.Duration
	DedupeCap         int
}

// Scheduler owns the two mutually exclusive ingestion modes. Switching
// modes cancels the previous timer loop and bumps a generation token;
// staggered insertions from a cancelled cycle check the token before
// writing and are discarded when stale.
type Scheduler struct {
	cfg       Config
	pipe      *pipeline.Pipeline
	synthetic source.Source
	feeds     []source.Source
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	baseCtx    context.Context
	mode       Mode
	generation uint64
	cancelMode context.CancelFunc
	lastFetch  time.Time
	started    bool

	dedupe *lru.Cache[string, time.Time]
	wg     sync.WaitGroup

	// now is swapped in tests to exercise the cooldown guard.
	now func() time.Time
}

// New creates a scheduler. feeds are polled concurrently in live mode.
func New(cfg Config, pipe *pipeline.Pipeline, synthetic source.Source, feeds []source.Source, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	capacity := cfg.DedupeCap
	if capacity <= 0 {
		capacity = 1024
	}
	dedupe, _ := lru.New[string, time.Time](capacity)
	return &Scheduler{
		cfg:       cfg,
		pipe:      pipe,
		synthetic: synthetic,
		feeds:     feeds,
		metrics:   m,
		logger:    logger,
		dedupe:    dedupe,
		now:       time.Now,
	}
}

// Start begins scheduling in the given mode. The context bounds the
// scheduler's lifetime; Stop or context cancellation end it.
func (s *Scheduler) Start(ctx context.Context, mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.baseCtx = ctx
	s.started = true
	s.startModeLocked(mode)
	return nil
}

// SetMode switches the ingestion strategy at runtime. Retained data is
// untouched; only the timer loop is torn down and replaced. Setting the
// current mode is a no-op.
func (s *Scheduler) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("scheduler not started")
	}
	if mode == s.mode {
		return nil
	}

	s.logger.Info("Switching ingestion mode", "from", s.mode, "to", mode)
	s.stopModeLocked()
	s.startModeLocked(mode)
	return nil
}

// Mode returns the active ingestion mode.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Stop cancels the active timer loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopModeLocked()
	s.started = false
	s.mu.Unlock()
	s.wg.Wait()
}

// startModeLocked installs a fresh generation and launches the mode's
// timer loop. Caller holds s.mu.
func (s *Scheduler) startModeLocked(mode Mode) {
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancelMode = cancel
	s.mode = mode

	s.wg.Add(1)
	switch mode {
	case ModeLive:
		go s.runLive(ctx, gen)
	default:
		go s.runSynthetic(ctx, gen)
	}
}

// stopModeLocked cancels the active loop and invalidates its generation
// so in-flight staggered insertions cannot land. Caller holds s.mu.
func (s *Scheduler) stopModeLocked() {
	if s.cancelMode != nil {
		s.cancelMode()
		s.cancelMode = nil
	}
	s.generation++
}

func (s *Scheduler) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

// runSynthetic ticks the procedural generator at a fixed interval.
func (s *Scheduler) runSynthetic(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SyntheticInterval)
	defer ticker.Stop()

	s.logger.Info("Synthetic ingestion started", "interval", s.cfg.SyntheticInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := s.synthetic.NextBatch(ctx)
			if err != nil {
				s.logger.Warn("Synthetic source failed", "error", err)
				continue
			}
			s.insertBatch(ctx, gen, batch)
		}
	}
}

// runLive triggers an immediate fetch cycle, then one per interval.
func (s *Scheduler) runLive(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	s.logger.Info("Live ingestion started",
		"interval", s.cfg.LiveInterval,
		"cooldown", s.cfg.Cooldown,
		"feeds", len(s.feeds))

	s.runFetchCycle(ctx, gen)

	ticker := time.NewTicker(s.cfg.LiveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFetchCycle(ctx, gen)
		}
	}
}

// runFetchCycle polls every feed concurrently and inserts the combined
// batch with the inter-item stagger. The cooldown guard rejects the
// cycle outright if the previous one completed too recently, protecting
// the upstream feeds even if the timer fires early.
func (s *Scheduler) runFetchCycle(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if !s.lastFetch.IsZero() {
		if since := s.now().Sub(s.lastFetch); since < s.cfg.Cooldown {
			s.mu.Unlock()
			s.metrics.FetchesSkipped.Inc()
			s.logger.Info("Fetch cycle rejected by cooldown guard", "since_last", since, "cooldown", s.cfg.Cooldown)
			return
		}
	}
	s.mu.Unlock()

	batch := s.fetchAll(ctx)
	batch = s.dedupeBatch(batch)
	s.insertBatch(ctx, gen, batch)

	s.mu.Lock()
	s.lastFetch = s.now()
	s.mu.Unlock()
}

// fetchAll fans out to all feeds and joins the results. A failing feed
// contributes an empty slice; partial failure never aborts the cycle.
func (s *Scheduler) fetchAll(ctx context.Context) []model.Event {
	results := make([][]model.Event, len(s.feeds))

	var wg sync.WaitGroup
	for i, feed := range s.feeds {
		wg.Add(1)
		go func(i int, feed source.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			s.metrics.FeedFetches.WithLabelValues(feed.Name()).Inc()
			batch, err := feed.NextBatch(fetchCtx)
			if err != nil {
				s.metrics.FeedFetchErrors.WithLabelValues(feed.Name()).Inc()
				s.logger.Warn("Feed fetch failed, contributing empty batch", "feed", feed.Name(), "error", err)
				return
			}
			results[i] = batch
		}(i, feed)
	}
	wg.Wait()

	var combined []model.Event
	for _, batch := range results {
		combined = append(combined, batch...)
	}
	return combined
}

// dedupeBatch drops feed records whose indicator was already ingested
// within the cache horizon, so a feed re-serving the same record on the
// next poll does not duplicate events.
func (s *Scheduler) dedupeBatch(batch []model.Event) []model.Event {
	kept := batch[:0]
	for _, ev := range batch {
		indicator := ev.Metadata[model.MetaIndicator]
		if indicator == "" {
			kept = append(kept, ev)
			continue
		}
		key := ev.FeedName() + "|" + indicator
		if _, seen := s.dedupe.Get(key); seen {
			continue
		}
		s.dedupe.Add(key, s.now())
		kept = append(kept, ev)
	}
	return kept
}

// insertBatch feeds events into the pipeline sequentially with the
// configured inter-item delay. Every write re-checks the generation
// token; a mode switch or shutdown mid-batch discards the remainder.
func (s *Scheduler) insertBatch(ctx context.Context, gen uint64, events []model.Event) {
	for i, ev := range events {
		if i > 0 && s.cfg.Stagger > 0 {
			timer := time.NewTimer(s.cfg.Stagger)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.dropStale(len(events) - i)
				return
			case <-timer.C:
			}
		}
		if !s.isCurrent(gen) {
			s.dropStale(len(events) - i)
			return
		}
		s.pipe.Ingest(ev)
	}
}

func (s *Scheduler) dropStale(n int) {
	if n <= 0 {
		return
	}
	s.metrics.StaleDropped.Add(float64(n))
	s.logger.Info("Discarded stale staggered insertions", "dropped", n)
}
