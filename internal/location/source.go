// Package location abstracts the platform location service and owns the
// background heartbeat ticker.
package location

import (
	"context"
	"time"
)

// Sample is a single position fix.
type Sample struct {
	Lat float64
	Lng float64
	At  time.Time
}

// WatchOptions tune the foreground stream. The platform service emits a
// sample on movement beyond MinDistanceM or after Interval, whichever comes
// first; implementations treat these as hints.
type WatchOptions struct {
	Interval     time.Duration
	MinDistanceM float64
}

// Source produces position samples. Current is the one-shot "get current
// position"; Watch is the continuous foreground subscription, whose channel
// closes when the context is done. A source that cannot obtain a position
// (permission denied, platform failure) returns ErrLocationUnavailable and
// the stream simply never starts; there is no retry loop.
type Source interface {
	Current(ctx context.Context) (Sample, error)
	Watch(ctx context.Context, opts WatchOptions) (<-chan Sample, error)
}
