package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// Reconciler assembles the row representing an engineer's current state and
// reconciles it into the shared presence table. Validation errors are caught
// before any backend call; backend errors are surfaced without retry.
type Reconciler struct {
	presence repository.PresenceRepo
	sites    *SiteIndex
	logger   *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	lastHeartbeat time.Time
}

func NewReconciler(presenceRepo repository.PresenceRepo, sites *SiteIndex, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		presence: presenceRepo,
		sites:    sites,
		logger:   logger,
		now:      time.Now,
	}
}

// StatusInput is everything a full status reconciliation needs. Lat/Lng are
// nil while no position has been obtained.
type StatusInput struct {
	Username    string
	Name        string
	OnShift     bool
	Activity    string
	SiteID      string
	WorkOrderID string
	Lat         *float64
	Lng         *float64
}

// ReconcileStatus resolves the site, derives the status and upserts the full
// presence row (create-or-replace by username). It returns the written
// record so callers can display the canonical state.
func (r *Reconciler) ReconcileStatus(ctx context.Context, in StatusInput) (*models.PresenceRecord, error) {
	activity := strings.TrimSpace(in.Activity)
	workOrder := strings.TrimSpace(in.WorkOrderID)

	effectiveSite := ""
	if candidate := strings.TrimSpace(in.SiteID); candidate != "" {
		site, ok := r.sites.Resolve(candidate)
		if !ok {
			return nil, fmt.Errorf("%w: %q", models.ErrInvalidSite, candidate)
		}
		effectiveSite = site.SiteID
	}

	status := Derive(in.OnShift, activity, effectiveSite)
	if err := validateBusy(status, activity, effectiveSite); err != nil {
		return nil, err
	}

	ts := r.now().UTC().UnixMilli()
	rec := &models.PresenceRecord{
		Username:         in.Username,
		Name:             in.Name,
		LoggedIn:         true,
		OnShift:          in.OnShift,
		Status:           status,
		Activity:         optional(activity),
		SiteID:           optional(effectiveSite),
		WorkOrderID:      optional(workOrder),
		Lat:              in.Lat,
		Lng:              in.Lng,
		LastPing:         ts,
		LastActiveAt:     ts,
		UpdatedAt:        ts,
		LastActiveSource: models.SourceApp,
	}

	if err := r.presence.UpsertPresence(ctx, rec); err != nil {
		r.logger.Error("status reconciliation failed",
			slog.String("username", in.Username),
			slog.Any("err", err),
		)
		return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	r.markHeartbeat()
	return rec, nil
}

// ReconcileLocation records a location tick. It is a field-level merge: it
// must never clobber shift, status, activity or site fields of an existing
// row.
func (r *Reconciler) ReconcileLocation(ctx context.Context, username string, lat, lng float64) error {
	ts := r.now().UTC().UnixMilli()
	if err := r.presence.MergeLocation(ctx, username, lat, lng, ts); err != nil {
		r.logger.Error("location reconciliation failed",
			slog.String("username", username),
			slog.Any("err", err),
		)
		return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	r.markHeartbeat()
	return nil
}

// ReconcileLogout writes the final presence row before session teardown:
// logged out, off shift, assignment fields cleared, regardless of the
// in-memory state at the time. The last known position is kept if supplied.
func (r *Reconciler) ReconcileLogout(ctx context.Context, username, name string, lat, lng *float64) error {
	ts := r.now().UTC().UnixMilli()
	rec := &models.PresenceRecord{
		Username:         username,
		Name:             name,
		LoggedIn:         false,
		OnShift:          false,
		Status:           models.StatusOffShift,
		Lat:              lat,
		Lng:              lng,
		LastPing:         ts,
		LastActiveAt:     ts,
		UpdatedAt:        ts,
		LastActiveSource: models.SourceApp,
	}
	if err := r.presence.UpsertPresence(ctx, rec); err != nil {
		r.logger.Error("logout reconciliation failed",
			slog.String("username", username),
			slog.Any("err", err),
		)
		return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	r.markHeartbeat()
	return nil
}

// LastHeartbeat reports the time of the last successful reconciliation.
func (r *Reconciler) LastHeartbeat() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastHeartbeat
}

func (r *Reconciler) markHeartbeat() {
	r.mu.Lock()
	r.lastHeartbeat = r.now()
	r.mu.Unlock()
}

// validateBusy enforces the busy invariant: a busy status must be justified
// by an accepted site or a non-empty activity. Derive cannot produce a busy
// status without one of the two, so this guards direct callers rather than
// the normal path.
func validateBusy(status models.Status, activity, siteID string) error {
	if status == models.StatusBusy && activity == "" && siteID == "" {
		return models.ErrSiteRequired
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
