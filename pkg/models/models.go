package models

// Domain models matching the database schema in db/migrations/0001_init.sql

// Role identifies which directory table a credential is checked against.
type Role string

const (
	RoleEngineer Role = "field-engineer"
	RoleManager  Role = "manager"
)

// Status is the derived presence status of an engineer. It is never set
// directly by the user; see presence.Derive.
type Status string

const (
	StatusFree     Status = "free"
	StatusBusy     Status = "busy"
	StatusOffShift Status = "off-shift"
)

// Source distinguishes a full status reconciliation from a pure location tick.
type Source string

const (
	SourceApp Source = "mobile-app"
	SourceGPS Source = "mobile-app-gps"
)

// EngineerIdentity is a row of the engineer directory. Provisioned
// externally; read-only to this system.
type EngineerIdentity struct {
	Username     string `json:"username" db:"username"`
	Name         string `json:"name" db:"name"`
	HomeLocation string `json:"home_location" db:"home_location"`
	Active       bool   `json:"active" db:"active"`
}

// ManagerIdentity is a row of the manager directory.
type ManagerIdentity struct {
	Username string `json:"username" db:"username"`
	Name     string `json:"name" db:"name"`
	Area     string `json:"area" db:"area"`
}

// Identity is the authenticated principal held by a session.
type Identity struct {
	Role     Role   `json:"role"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Area     string `json:"area,omitempty"`
}

// PresenceRecord is the single row per engineer in the shared presence
// table. Upserted by username; never duplicated.
type PresenceRecord struct {
	Username         string   `json:"username" db:"username"`
	Name             string   `json:"name" db:"name"`
	LoggedIn         bool     `json:"logged_in" db:"logged_in"`
	OnShift          bool     `json:"on_shift" db:"on_shift"`
	Status           Status   `json:"status" db:"status"`
	Activity         *string  `json:"activity,omitempty" db:"activity"`
	SiteID           *string  `json:"site_id,omitempty" db:"site_id"`
	WorkOrderID      *string  `json:"work_order_id,omitempty" db:"work_order_id"`
	Lat              *float64 `json:"lat,omitempty" db:"lat"`
	Lng              *float64 `json:"lng,omitempty" db:"lng"`
	LastPing         int64    `json:"last_ping" db:"last_ping"`
	LastActiveAt     int64    `json:"last_active_at" db:"last_active_at"`
	UpdatedAt        int64    `json:"updated_at" db:"updated_at"`
	LastActiveSource Source   `json:"last_active_source" db:"last_active_source"`
}

// SiteRecord is reference data describing a work site.
type SiteRecord struct {
	SiteID       string  `json:"site_id" db:"site_id"`
	City         string  `json:"city" db:"city"`
	Area         string  `json:"area" db:"area"`
	Latitude     float64 `json:"latitude" db:"latitude"`
	Longitude    float64 `json:"longitude" db:"longitude"`
	LocationType string  `json:"location_type" db:"location_type"`
}

// Coordinates is a latitude/longitude pair as exchanged with the routing
// collaborator.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteEstimate is the routing collaborator's answer for a single
// origin/destination pair.
type RouteEstimate struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}
