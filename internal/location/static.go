package location

import (
	"context"
	"time"

	"github.com/fieldops/nfotrack/pkg/models"
)

// StaticSource reports a fixed coordinate pair. It stands in for the
// platform GPS on headless deployments; a zero-value source behaves like a
// denied permission.
type StaticSource struct {
	Lat float64
	Lng float64
}

var _ Source = (*StaticSource)(nil)

func NewStaticSource(lat, lng float64) *StaticSource {
	return &StaticSource{Lat: lat, Lng: lng}
}

func (s *StaticSource) available() bool {
	return s != nil && (s.Lat != 0 || s.Lng != 0)
}

func (s *StaticSource) Current(ctx context.Context) (Sample, error) {
	if !s.available() {
		return Sample{}, models.ErrLocationUnavailable
	}
	return Sample{Lat: s.Lat, Lng: s.Lng, At: time.Now().UTC()}, nil
}

// Watch emits the fixed position every opts.Interval until ctx is done.
func (s *StaticSource) Watch(ctx context.Context, opts WatchOptions) (<-chan Sample, error) {
	if !s.available() {
		return nil, models.ErrLocationUnavailable
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ch := make(chan Sample, 1)
	// first fix immediately, then on the interval
	ch <- Sample{Lat: s.Lat, Lng: s.Lng, At: time.Now().UTC()}
	go func() {
		defer close(ch)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				select {
				case ch <- Sample{Lat: s.Lat, Lng: s.Lng, At: now.UTC()}:
				default:
					// consumer is behind; drop the fix
				}
			}
		}
	}()
	return ch, nil
}
