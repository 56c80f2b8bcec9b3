package location

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Callback receives a background position sample.
type Callback func(ctx context.Context, s Sample)

// Handle is a stable indirection to a frequently-changing callback. The
// long-lived ticker holds the handle and reads the current callback at
// invocation time, so owners can swap the closure without re-registering.
type Handle struct {
	v atomic.Value
}

func NewHandle() *Handle {
	return &Handle{}
}

// Set replaces the callback. Passing nil is a no-op.
func (h *Handle) Set(cb Callback) {
	if cb != nil {
		h.v.Store(cb)
	}
}

// Call invokes the current callback, if any.
func (h *Handle) Call(ctx context.Context, s Sample) {
	if cb, ok := h.v.Load().(Callback); ok {
		cb(ctx, s)
	}
}

// Ticker is the background location producer: while running it obtains a
// position every interval and hands it to the callback handle. At most one
// run loop exists regardless of how many times Start is invoked; Stop when
// not running is a harmless no-op.
type Ticker struct {
	source   Source
	handle   *Handle
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewTicker(source Source, handle *Handle, interval time.Duration, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Ticker{source: source, handle: handle, interval: interval, logger: logger}
}

// Start registers the background producer. Idempotent: a second Start while
// running is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.stop = make(chan struct{})
	t.running = true
	t.wg.Add(1)
	go t.run(t.stop)
	t.logger.Info("background location ticker started", slog.Duration("interval", t.interval))
}

// Stop deregisters the producer and waits for the loop to exit. Stopping
// when not running is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	close(t.stop)
	t.running = false
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info("background location ticker stopped")
}

// Running reports whether the producer is registered.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.running
}

func (t *Ticker) run(stop chan struct{}) {
	defer t.wg.Done()

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			ctx, cancel := context.WithTimeout(context.Background(), t.interval)
			s, err := t.source.Current(ctx)
			if err != nil {
				// degraded to "no position known"; skip the tick
				t.logger.Warn("background position unavailable", slog.Any("err", err))
				cancel()
				continue
			}
			t.handle.Call(ctx, s)
			cancel()
		}
	}
}
