package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fieldops/nfotrack/internal/fleet"
	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// RouteEstimator is satisfied by routing.Client; kept narrow so handler
// tests can stub the collaborator.
type RouteEstimator interface {
	ETA(ctx context.Context, origin, destination models.Coordinates) (*models.RouteEstimate, error)
}

type FleetHandler struct {
	viewer       *fleet.Viewer
	sites        *presence.SiteIndex
	presenceRepo repository.PresenceRepo
	router       RouteEstimator
}

func NewFleetHandler(viewer *fleet.Viewer, sites *presence.SiteIndex, presenceRepo repository.PresenceRepo, router RouteEstimator) *FleetHandler {
	return &FleetHandler{viewer: viewer, sites: sites, presenceRepo: presenceRepo, router: router}
}

type fleetResponse struct {
	Summary   fleet.Summary `json:"summary"`
	Items     []fleet.Row   `json:"items"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// List serves the latest fleet snapshot with client-side filters applied.
// The summary stays computed over the unfiltered set.
func (h *FleetHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snap := h.viewer.Snapshot()
	items := fleet.Filter(snap.Rows, fleet.Query{
		Area:   q.Get("area"),
		Bucket: fleet.Bucket(q.Get("bucket")),
		Search: q.Get("q"),
	})

	writeJSON(w, fleetResponse{
		Summary:   snap.Summary,
		Items:     items,
		FetchedAt: snap.FetchedAt,
	}, http.StatusOK)
}

type etaRequest struct {
	Username string `json:"username"`
	SiteID   string `json:"site_id"`
}

// ETA computes travel distance/duration from an engineer's last known
// position to a destination site. The engineer must have a known position.
func (h *FleetHandler) ETA(w http.ResponseWriter, r *http.Request) {
	var req etaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.SiteID == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}
	if h.router == nil {
		http.Error(w, "Routing not configured", http.StatusNotImplemented)
		return
	}

	rec, err := h.presenceRepo.GetPresence(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Lookup failed", http.StatusBadGateway)
		return
	}
	if rec == nil {
		http.Error(w, "Unknown engineer", http.StatusNotFound)
		return
	}
	if rec.Lat == nil || rec.Lng == nil {
		http.Error(w, "Engineer has no known position", http.StatusConflict)
		return
	}

	site, ok := h.sites.Resolve(req.SiteID)
	if !ok {
		http.Error(w, "Unknown site", http.StatusNotFound)
		return
	}

	est, err := h.router.ETA(r.Context(),
		models.Coordinates{Lat: *rec.Lat, Lng: *rec.Lng},
		models.Coordinates{Lat: site.Latitude, Lng: site.Longitude},
	)
	if err != nil {
		http.Error(w, "Routing failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, est, http.StatusOK)
}
