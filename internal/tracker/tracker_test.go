package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/location"
	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/internal/tracker"
	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository/mock"
)

func setupTracker(t *testing.T) (*tracker.Tracker, *mock.Store, *auth.Session) {
	t.Helper()
	store := mock.NewStore()
	store.Sites = []models.SiteRecord{{SiteID: "SITE-042", Area: "Jakarta West", Latitude: -6.2, Longitude: 106.8}}
	store.AddEngineer(models.EngineerIdentity{Username: "budi", Name: "Budi Santoso", Active: true}, "pw")

	idx, err := presence.NewSiteIndex(context.Background(), store, 0)
	if err != nil {
		t.Fatalf("NewSiteIndex: %v", err)
	}
	rec := presence.NewReconciler(store, idx, nil)
	session := auth.NewSession(auth.NewVerifier(store, nil))

	trk := tracker.New(session, rec, location.NewStaticSource(-6.2, 106.8), time.Hour, nil)
	return trk, store, session
}

func login(t *testing.T, session *auth.Session) {
	t.Helper()
	if _, err := session.Login(context.Background(), models.RoleEngineer, "budi", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestTriggersRequireSession(t *testing.T) {
	trk, _, _ := setupTracker(t)
	ctx := context.Background()

	if err := trk.SetShift(ctx, true); !errors.Is(err, tracker.ErrNotLoggedIn) {
		t.Fatalf("SetShift err = %v, want ErrNotLoggedIn", err)
	}
	if err := trk.SendHeartbeat(ctx); !errors.Is(err, tracker.ErrNotLoggedIn) {
		t.Fatalf("SendHeartbeat err = %v, want ErrNotLoggedIn", err)
	}
	if err := trk.Logout(ctx); !errors.Is(err, tracker.ErrNotLoggedIn) {
		t.Fatalf("Logout err = %v, want ErrNotLoggedIn", err)
	}
}

func TestSetShiftReconcilesAndRevertsOnFailure(t *testing.T) {
	trk, store, session := setupTracker(t)
	login(t, session)
	ctx := context.Background()

	if err := trk.SetShift(ctx, true); err != nil {
		t.Fatalf("SetShift: %v", err)
	}
	defer trk.Logout(ctx)

	if !trk.OnShift() {
		t.Fatalf("shift flag not set")
	}
	row := store.Presence["budi"]
	if !row.OnShift || row.Status != models.StatusFree {
		t.Fatalf("presence row = %+v, want on shift and free", row)
	}

	// a failed reconcile restores the previous flag
	store.PresenceErr = errors.New("down")
	if err := trk.SetShift(ctx, false); err == nil {
		t.Fatalf("expected SetShift to fail")
	}
	if !trk.OnShift() {
		t.Fatalf("failed reconcile flipped the shift flag")
	}
	store.PresenceErr = nil
}

func TestAssignmentUpdatesDeriveBusy(t *testing.T) {
	trk, store, session := setupTracker(t)
	login(t, session)
	ctx := context.Background()

	if err := trk.SetShift(ctx, true); err != nil {
		t.Fatalf("SetShift: %v", err)
	}
	defer trk.Logout(ctx)

	if err := trk.SetSite(ctx, "site-042"); err != nil {
		t.Fatalf("SetSite: %v", err)
	}
	row := store.Presence["budi"]
	if row.Status != models.StatusBusy || row.SiteID == nil || *row.SiteID != "SITE-042" {
		t.Fatalf("row after SetSite = %+v", row)
	}

	if err := trk.SetWorkOrder(ctx, "WO-8841"); err != nil {
		t.Fatalf("SetWorkOrder: %v", err)
	}
	row = store.Presence["budi"]
	if row.WorkOrderID == nil || *row.WorkOrderID != "WO-8841" {
		t.Fatalf("work order not recorded: %+v", row)
	}

	if err := trk.ClearAssignment(ctx); err != nil {
		t.Fatalf("ClearAssignment: %v", err)
	}
	row = store.Presence["budi"]
	if row.Status != models.StatusFree || row.SiteID != nil || row.Activity != nil || row.WorkOrderID != nil {
		t.Fatalf("row after clear = %+v", row)
	}
}

func TestSetSiteRejectionKeepsPreviousSelection(t *testing.T) {
	trk, store, session := setupTracker(t)
	login(t, session)
	ctx := context.Background()

	if err := trk.SetShift(ctx, true); err != nil {
		t.Fatalf("SetShift: %v", err)
	}
	defer trk.Logout(ctx)

	if err := trk.SetSite(ctx, "SITE-042"); err != nil {
		t.Fatalf("SetSite: %v", err)
	}
	if err := trk.SetSite(ctx, "SITE-999"); !errors.Is(err, models.ErrInvalidSite) {
		t.Fatalf("err = %v, want ErrInvalidSite", err)
	}

	// the next heartbeat must still carry the accepted site
	if err := trk.SendHeartbeat(ctx); err != nil {
		t.Fatalf("SendHeartbeat: %v", err)
	}
	row := store.Presence["budi"]
	if row.SiteID == nil || *row.SiteID != "SITE-042" {
		t.Fatalf("rejected site replaced the selection: %+v", row)
	}
}

func TestHeartbeatCarriesLastFix(t *testing.T) {
	trk, store, session := setupTracker(t)
	login(t, session)
	ctx := context.Background()

	if err := trk.StartWatch(location.WatchOptions{Interval: time.Hour}); err != nil {
		t.Fatalf("StartWatch: %v", err)
	}

	// the immediate first fix lands asynchronously
	deadline := time.After(2 * time.Second)
	for trk.LastFix() == nil {
		select {
		case <-deadline:
			t.Fatalf("no fix recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := trk.SendHeartbeat(ctx); err != nil {
		t.Fatalf("SendHeartbeat: %v", err)
	}
	row := store.Presence["budi"]
	if row.Lat == nil || *row.Lat != -6.2 {
		t.Fatalf("heartbeat did not carry the fix: %+v", row)
	}

	if err := trk.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
}

func TestLogoutClearsSessionEvenWhenFinalWriteFails(t *testing.T) {
	trk, store, session := setupTracker(t)
	login(t, session)
	ctx := context.Background()

	if err := trk.SetShift(ctx, true); err != nil {
		t.Fatalf("SetShift: %v", err)
	}

	store.PresenceErr = errors.New("down")
	if err := trk.Logout(ctx); !errors.Is(err, models.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if session.Current() != nil {
		t.Fatalf("session survived logout")
	}
}

func TestLogoutWritesForcedFinalRow(t *testing.T) {
	trk, store, session := setupTracker(t)
	login(t, session)
	ctx := context.Background()

	if err := trk.SetShift(ctx, true); err != nil {
		t.Fatalf("SetShift: %v", err)
	}
	if err := trk.SetActivity(ctx, "splicing"); err != nil {
		t.Fatalf("SetActivity: %v", err)
	}

	if err := trk.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	row := store.Presence["budi"]
	if row.LoggedIn || row.OnShift || row.Status != models.StatusOffShift {
		t.Fatalf("final row = %+v", row)
	}
	if row.Activity != nil {
		t.Fatalf("final row kept the activity")
	}
}
