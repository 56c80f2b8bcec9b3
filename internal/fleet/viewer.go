package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// Viewer polls the presence table, the engineer directory and the site
// directory, and keeps the latest joined snapshot in memory. A failed poll
// keeps the previous snapshot (stale-but-available); it never produces an
// error screen. Read-only: the viewer performs no writes.
type Viewer struct {
	presenceRepo repository.PresenceRepo
	directory    repository.DirectoryRepo
	sites        *presence.SiteIndex
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu   sync.RWMutex
	snap Snapshot

	runMu   sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewViewer(presenceRepo repository.PresenceRepo, directory repository.DirectoryRepo, sites *presence.SiteIndex, interval time.Duration, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Viewer{
		presenceRepo: presenceRepo,
		directory:    directory,
		sites:        sites,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
	}
}

// Start launches the poll loop with an immediate first refresh. Idempotent.
func (v *Viewer) Start() {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.running {
		return
	}
	v.stop = make(chan struct{})
	v.running = true
	v.wg.Add(1)
	go v.run(v.stop)
}

// Stop tears the poll loop down; a no-op when not running.
func (v *Viewer) Stop() {
	v.runMu.Lock()
	if !v.running {
		v.runMu.Unlock()
		return
	}
	close(v.stop)
	v.running = false
	v.runMu.Unlock()

	v.wg.Wait()
}

// Snapshot returns the latest successful poll result.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.snap
}

// Refresh performs one poll: fetch everything, join, sort, summarize. On
// error the previous snapshot stays in place.
func (v *Viewer) Refresh(ctx context.Context) error {
	records, err := v.presenceRepo.ListPresence(ctx)
	if err != nil {
		v.logger.Warn("fleet poll failed, keeping stale snapshot", slog.Any("err", err))
		return fmt.Errorf("list presence: %w", err)
	}
	engineers, err := v.directory.ListEngineers(ctx)
	if err != nil {
		v.logger.Warn("directory fetch failed, keeping stale snapshot", slog.Any("err", err))
		return fmt.Errorf("list engineers: %w", err)
	}
	if err := v.sites.Reload(ctx); err != nil {
		v.logger.Warn("site reload failed, keeping stale snapshot", slog.Any("err", err))
		return err
	}

	byUsername := make(map[string]struct{ name, area string }, len(engineers))
	for _, e := range engineers {
		byUsername[e.Username] = struct{ name, area string }{e.Name, e.HomeLocation}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		dir := byUsername[rec.Username]
		name := rec.Name
		if name == "" {
			name = dir.name
		}
		if name == "" {
			name = rec.Username
		}
		rows = append(rows, Row{PresenceRecord: rec, DisplayName: name, Area: dir.area})
	}
	SortRows(rows)

	snap := Snapshot{
		Rows:      rows,
		Summary:   Summarize(rows),
		FetchedAt: v.now().UTC(),
	}

	v.mu.Lock()
	v.snap = snap
	v.mu.Unlock()

	return nil
}

func (v *Viewer) run(stop chan struct{}) {
	defer v.wg.Done()

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), v.interval)
		defer cancel()
		_ = v.Refresh(ctx) // already logged; stale snapshot stays up
	}

	refresh()
	tick := time.NewTicker(v.interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			refresh()
		}
	}
}
