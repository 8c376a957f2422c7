package sched

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/sentry/internal/engine"
	"github.com/sentinelsoc/sentry/internal/intel"
	"github.com/sentinelsoc/sentry/internal/metrics"
	"github.com/sentinelsoc/sentry/internal/model"
	"github.com/sentinelsoc/sentry/internal/pipeline"
	"github.com/sentinelsoc/sentry/internal/source"
	"github.com/sentinelsoc/sentry/internal/store"
)

// stubSource returns canned batches, or an error when failing.
type stubSource struct {
	name    string
	batches [][]model.Event
	failing bool
	calls   int
}

func (s *stubSource) Name() string           { return s.name }
func (s *stubSource) Cadence() time.Duration { return time.Minute }

func (s *stubSource) NextBatch(_ context.Context) ([]model.Event, error) {
	s.calls++
	if s.failing {
		return nil, errors.New("feed down")
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	if len(s.batches) > 1 {
		s.batches = s.batches[1:]
	}
	return batch, nil
}

func feedEvent(feed, indicator string) model.Event {
	return model.Event{
		ID:        model.NewEventID(),
		Type:      "INTRUSION_ATTEMPT",
		Severity:  model.SeverityCritical,
		SourceIP:  indicator,
		Status:    model.StatusBlocked,
		Automated: true,
		Metadata: map[string]string{
			model.MetaFeed:      feed,
			model.MetaIndicator: indicator,
		},
	}
}

func newTestScheduler(t *testing.T, cfg Config, synthetic source.Source, feeds ...source.Source) (*Scheduler, *store.Memory) {
	t.Helper()
	st := store.NewMemory(100, 50)
	eng := engine.New(intel.NewIndex(nil))
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipe := pipeline.New(eng, st, m, nil, logger)
	return New(cfg, pipe, synthetic, feeds, m, logger), st
}

func TestRunFetchCycle_CooldownGuard(t *testing.T) {
	feed := &stubSource{name: "feed", batches: [][]model.Event{
		{feedEvent("feed", "198.51.100.1")},
		{feedEvent("feed", "198.51.100.2")},
	}}
	cfg := Config{Cooldown: 30 * time.Second, FetchTimeout: time.Second}
	s, st := newTestScheduler(t, cfg, nil, feed)

	base := time.Now()
	s.now = func() time.Time { return base }

	s.runFetchCycle(context.Background(), s.generation)
	assert.Equal(t, uint64(1), st.Counters().TotalEvents)

	// Timer jitter fires again 10s later: rejected, one fetch total.
	s.now = func() time.Time { return base.Add(10 * time.Second) }
	s.runFetchCycle(context.Background(), s.generation)
	assert.Equal(t, uint64(1), st.Counters().TotalEvents)
	assert.Equal(t, 1, feed.calls)

	// Past the cooldown the next cycle goes through.
	s.now = func() time.Time { return base.Add(31 * time.Second) }
	s.runFetchCycle(context.Background(), s.generation)
	assert.Equal(t, uint64(2), st.Counters().TotalEvents)
}

func TestInsertBatch_StaleGenerationDiscarded(t *testing.T) {
	cfg := Config{Stagger: time.Millisecond}
	s, st := newTestScheduler(t, cfg, nil)

	batch := []model.Event{
		feedEvent("feed", "198.51.100.1"),
		feedEvent("feed", "198.51.100.2"),
	}

	s.generation = 7
	s.insertBatch(context.Background(), 6, batch)
	assert.Equal(t, uint64(0), st.Counters().TotalEvents, "stale generation must not land")

	s.insertBatch(context.Background(), 7, batch)
	assert.Equal(t, uint64(2), st.Counters().TotalEvents)
}

func TestInsertBatch_CancelledContextDropsRemainder(t *testing.T) {
	cfg := Config{Stagger: 50 * time.Millisecond}
	s, st := newTestScheduler(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	batch := []model.Event{
		feedEvent("feed", "198.51.100.1"),
		feedEvent("feed", "198.51.100.2"),
		feedEvent("feed", "198.51.100.3"),
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	s.insertBatch(ctx, s.generation, batch)

	assert.Equal(t, uint64(1), st.Counters().TotalEvents, "only the pre-cancel item lands")
}

func TestFetchAll_PartialFailure(t *testing.T) {
	good := &stubSource{name: "good", batches: [][]model.Event{{
		feedEvent("good", "198.51.100.1"),
		feedEvent("good", "198.51.100.2"),
	}}}
	bad := &stubSource{name: "bad", failing: true}

	cfg := Config{FetchTimeout: time.Second}
	s, _ := newTestScheduler(t, cfg, nil, good, bad)

	batch := s.fetchAll(context.Background())
	assert.Len(t, batch, 2, "failing feed contributes empty, not fatal")
	assert.Equal(t, 1, bad.calls)
}

func TestDedupeBatch(t *testing.T) {
	cfg := Config{DedupeCap: 16}
	s, _ := newTestScheduler(t, cfg, nil)

	first := s.dedupeBatch([]model.Event{
		feedEvent("feed", "198.51.100.1"),
		feedEvent("feed", "198.51.100.1"),
		feedEvent("feed", "198.51.100.2"),
	})
	assert.Len(t, first, 2)

	// The next poll re-serving the same records adds nothing.
	second := s.dedupeBatch([]model.Event{
		feedEvent("feed", "198.51.100.1"),
		feedEvent("feed", "198.51.100.2"),
	})
	assert.Empty(t, second)

	// Synthetic events carry no indicator and are never deduped.
	plain := model.Event{ID: model.NewEventID(), Type: "PORT_SCAN"}
	third := s.dedupeBatch([]model.Event{plain, plain})
	assert.Len(t, third, 2)
}

func TestScheduler_SyntheticMode(t *testing.T) {
	synthetic := source.NewSynthetic(10 * time.Millisecond)
	cfg := Config{SyntheticInterval: 10 * time.Millisecond, FetchTimeout: time.Second}
	s, st := newTestScheduler(t, cfg, synthetic)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx, ModeSynthetic))
	defer s.Stop()

	assert.Equal(t, ModeSynthetic, s.Mode())
	assert.Eventually(t, func() bool {
		return st.Counters().TotalEvents >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_LiveModeFetchesImmediately(t *testing.T) {
	feed := &stubSource{name: "feed", batches: [][]model.Event{{
		feedEvent("feed", "198.51.100.1"),
		feedEvent("feed", "198.51.100.2"),
	}}}
	cfg := Config{
		LiveInterval: time.Hour,
		Cooldown:     time.Hour,
		FetchTimeout: time.Second,
		Stagger:      time.Millisecond,
	}
	s, st := newTestScheduler(t, cfg, nil, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx, ModeLive))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return st.Counters().TotalEvents == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_ModeSwitchDiscardsInFlightBatch(t *testing.T) {
	var batch []model.Event
	for i := 0; i < 5; i++ {
		batch = append(batch, feedEvent("feed", fmt.Sprintf("198.51.100.%d", i+1)))
	}
	feed := &stubSource{name: "feed", batches: [][]model.Event{batch}}

	cfg := Config{
		SyntheticInterval: time.Hour,
		LiveInterval:      time.Hour,
		Cooldown:          time.Hour,
		FetchTimeout:      time.Second,
		Stagger:           250 * time.Millisecond,
	}
	s, st := newTestScheduler(t, cfg, source.NewSynthetic(time.Hour))

	s.feeds = []source.Source{feed}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx, ModeLive))
	defer s.Stop()

	// Wait for the first staggered item, then switch away mid-batch.
	require.Eventually(t, func() bool {
		return st.Counters().TotalEvents >= 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.SetMode(ModeSynthetic))

	// The cancelled cycle must not keep landing items.
	time.Sleep(600 * time.Millisecond)
	assert.Less(t, st.Counters().TotalEvents, uint64(5))
	assert.Equal(t, ModeSynthetic, s.Mode())
}

func TestScheduler_SetModeValidation(t *testing.T) {
	cfg := Config{SyntheticInterval: time.Hour}
	s, _ := newTestScheduler(t, cfg, source.NewSynthetic(time.Hour))

	assert.Error(t, s.SetMode(ModeLive), "SetMode before Start is an error")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx, ModeSynthetic))
	defer s.Stop()

	assert.Error(t, s.SetMode(Mode("chaotic")))
	assert.NoError(t, s.SetMode(ModeSynthetic), "same-mode switch is a no-op")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("live")
	require.NoError(t, err)
	assert.Equal(t, ModeLive, m)

	_, err = ParseMode("manual")
	assert.Error(t, err)
}
