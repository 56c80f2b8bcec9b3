package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/pkg/models"
)

type PresenceHandler struct {
	reconciler *presence.Reconciler
}

func NewPresenceHandler(rec *presence.Reconciler) *PresenceHandler {
	return &PresenceHandler{reconciler: rec}
}

type heartbeatRequest struct {
	OnShift     bool     `json:"on_shift"`
	Activity    string   `json:"activity"`
	SiteID      string   `json:"site_id"`
	WorkOrderID string   `json:"work_order_id"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// Heartbeat performs a full status reconciliation for the authenticated
// engineer. Validation failures block the write with messages that
// distinguish an unrecognized site from a missing one.
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	username, _ := r.Context().Value(CtxUsername).(string)
	name, _ := r.Context().Value(CtxName).(string)
	if username == "" {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	rec, err := h.reconciler.ReconcileStatus(r.Context(), presence.StatusInput{
		Username:    username,
		Name:        name,
		OnShift:     req.OnShift,
		Activity:    req.Activity,
		SiteID:      req.SiteID,
		WorkOrderID: req.WorkOrderID,
		Lat:         req.Lat,
		Lng:         req.Lng,
	})
	switch {
	case err == nil:
		writeJSON(w, rec, http.StatusOK)
	case errors.Is(err, models.ErrInvalidSite):
		http.Error(w, "Site not recognized; pick one from the site list", http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrSiteRequired):
		http.Error(w, "Select a site or describe the activity", http.StatusUnprocessableEntity)
	default:
		http.Error(w, "Status update failed", http.StatusBadGateway)
	}
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Location records a location-only tick for the authenticated engineer.
func (h *PresenceHandler) Location(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		http.Error(w, "Missing coordinates", http.StatusBadRequest)
		return
	}

	username, _ := r.Context().Value(CtxUsername).(string)
	if username == "" {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	if err := h.reconciler.ReconcileLocation(r.Context(), username, *req.Lat, *req.Lng); err != nil {
		http.Error(w, "Location update failed", http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
