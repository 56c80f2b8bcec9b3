// Package tracker composes the session, the location producers and the
// heartbeat reconciler into the field-unit behavior: every user-visible
// trigger (shift toggle, activity/site/work-order updates, manual heartbeat,
// logout) funnels into a full status reconciliation, while background ticks
// produce location-only reconciliations.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/location"
	"github.com/fieldops/nfotrack/internal/presence"
)

// ErrNotLoggedIn is returned when a trigger fires without an open session.
var ErrNotLoggedIn = errors.New("not logged in")

type Tracker struct {
	session *auth.Session
	rec     *presence.Reconciler
	source  location.Source
	handle  *location.Handle
	ticker  *location.Ticker
	logger  *slog.Logger

	mu          sync.Mutex
	onShift     bool
	activity    string
	siteID      string
	workOrderID string
	lastFix     *location.Sample

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

func New(session *auth.Session, rec *presence.Reconciler, source location.Source, heartbeatInterval time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		session: session,
		rec:     rec,
		source:  source,
		handle:  location.NewHandle(),
		logger:  logger,
	}
	t.ticker = location.NewTicker(source, t.handle, heartbeatInterval, logger)
	t.handle.Set(t.onTick)
	return t
}

// StartWatch opens the foreground position stream. It is active regardless
// of shift state; a source failure (permission denied) surfaces once and the
// stream never starts.
func (t *Tracker) StartWatch(opts location.WatchOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := t.source.Watch(ctx, opts)
	if err != nil {
		cancel()
		return err
	}

	t.mu.Lock()
	t.watchCancel = cancel
	t.mu.Unlock()

	t.watchWG.Add(1)
	go func() {
		defer t.watchWG.Done()
		for s := range ch {
			t.setFix(s)
		}
	}()
	return nil
}

// SetShift toggles active duty. Toggling on starts the background ticker,
// toggling off stops it; both reconcile the full status first. On a failed
// reconciliation the previous shift state is restored and the ticker is left
// alone.
func (t *Tracker) SetShift(ctx context.Context, on bool) error {
	id := t.session.Current()
	if id == nil {
		return ErrNotLoggedIn
	}

	t.mu.Lock()
	prev := t.onShift
	t.onShift = on
	in := t.inputLocked(id.Username, id.Name)
	t.mu.Unlock()

	if _, err := t.rec.ReconcileStatus(ctx, in); err != nil {
		t.mu.Lock()
		t.onShift = prev
		t.mu.Unlock()
		return err
	}

	if on {
		t.ticker.Start()
	} else {
		t.ticker.Stop()
	}
	return nil
}

// SetActivity updates the free-text activity and reconciles.
func (t *Tracker) SetActivity(ctx context.Context, activity string) error {
	return t.update(ctx, func() func() {
		prev := t.activity
		t.activity = activity
		return func() { t.activity = prev }
	})
}

// SetSite updates the selected site and reconciles. An unrecognized site id
// blocks the write and leaves the previous selection in place.
func (t *Tracker) SetSite(ctx context.Context, siteID string) error {
	return t.update(ctx, func() func() {
		prev := t.siteID
		t.siteID = siteID
		return func() { t.siteID = prev }
	})
}

// SetWorkOrder updates the free-text work order reference and reconciles.
func (t *Tracker) SetWorkOrder(ctx context.Context, id string) error {
	return t.update(ctx, func() func() {
		prev := t.workOrderID
		t.workOrderID = id
		return func() { t.workOrderID = prev }
	})
}

// ClearAssignment clears activity, site and work order and reconciles.
func (t *Tracker) ClearAssignment(ctx context.Context) error {
	return t.update(ctx, func() func() {
		pa, ps, pw := t.activity, t.siteID, t.workOrderID
		t.activity, t.siteID, t.workOrderID = "", "", ""
		return func() { t.activity, t.siteID, t.workOrderID = pa, ps, pw }
	})
}

// SendHeartbeat reconciles the current state on demand.
func (t *Tracker) SendHeartbeat(ctx context.Context) error {
	id := t.session.Current()
	if id == nil {
		return ErrNotLoggedIn
	}

	t.mu.Lock()
	in := t.inputLocked(id.Username, id.Name)
	t.mu.Unlock()

	_, err := t.rec.ReconcileStatus(ctx, in)
	return err
}

// Logout stops the producers, writes the forced final presence row and only
// then tears down the session. The final write is best-effort: its error is
// returned but the session is cleared regardless, since there is no
// compensating action to take.
func (t *Tracker) Logout(ctx context.Context) error {
	id := t.session.Current()
	if id == nil {
		return ErrNotLoggedIn
	}

	t.ticker.Stop()
	t.stopWatch()

	t.mu.Lock()
	var lat, lng *float64
	if t.lastFix != nil {
		lat, lng = &t.lastFix.Lat, &t.lastFix.Lng
	}
	t.onShift = false
	t.activity, t.siteID, t.workOrderID = "", "", ""
	t.mu.Unlock()

	err := t.rec.ReconcileLogout(ctx, id.Username, id.Name, lat, lng)
	t.session.Logout()
	return err
}

// OnShift reports the current shift flag.
func (t *Tracker) OnShift() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.onShift
}

// LastFix returns the most recent position sample, if any.
func (t *Tracker) LastFix() *location.Sample {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastFix == nil {
		return nil
	}
	s := *t.lastFix
	return &s
}

func (t *Tracker) update(ctx context.Context, mutate func() func()) error {
	id := t.session.Current()
	if id == nil {
		return ErrNotLoggedIn
	}

	t.mu.Lock()
	revert := mutate()
	in := t.inputLocked(id.Username, id.Name)
	t.mu.Unlock()

	if _, err := t.rec.ReconcileStatus(ctx, in); err != nil {
		t.mu.Lock()
		revert()
		t.mu.Unlock()
		return err
	}
	return nil
}

// onTick handles a background sample: remember the fix and reconcile the
// location. Errors are logged, not surfaced; the next tick tries again.
func (t *Tracker) onTick(ctx context.Context, s location.Sample) {
	t.setFix(s)

	id := t.session.Current()
	if id == nil {
		return
	}
	if err := t.rec.ReconcileLocation(ctx, id.Username, s.Lat, s.Lng); err != nil {
		t.logger.Warn("location tick not recorded", slog.Any("err", err))
	}
}

func (t *Tracker) setFix(s location.Sample) {
	t.mu.Lock()
	t.lastFix = &s
	t.mu.Unlock()
}

func (t *Tracker) stopWatch() {
	t.mu.Lock()
	cancel := t.watchCancel
	t.watchCancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		t.watchWG.Wait()
	}
}

// inputLocked builds the reconciliation input; callers hold t.mu.
func (t *Tracker) inputLocked(username, name string) presence.StatusInput {
	in := presence.StatusInput{
		Username:    username,
		Name:        name,
		OnShift:     t.onShift,
		Activity:    t.activity,
		SiteID:      t.siteID,
		WorkOrderID: t.workOrderID,
	}
	if t.lastFix != nil {
		in.Lat, in.Lng = &t.lastFix.Lat, &t.lastFix.Lng
	}
	return in
}
