// Package source produces security events, either synthetically or by
// polling external threat feeds.
package source

import (
	"context"
	"time"

	"github.com/sentinelsoc/sentry/internal/model"
)

// Source produces batches of security events. A batch may be empty.
// Implementations must treat a fetch failure as their own problem to
// report; callers degrade an error to an empty batch.
type Source interface {
	// Name identifies the source in logs and event metadata.
	Name() string
	// NextBatch returns the next batch of events. The context bounds
	// any network activity.
	NextBatch(ctx context.Context) ([]model.Event, error)
	// Cadence is the polling interval the source is designed for.
	Cadence() time.Duration
}
