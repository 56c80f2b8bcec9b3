package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldops/nfotrack/api"
	appdb "github.com/fieldops/nfotrack/db"
	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/config"
	dbpkg "github.com/fieldops/nfotrack/internal/db"
	"github.com/fieldops/nfotrack/internal/fleet"
	"github.com/fieldops/nfotrack/internal/presence"
	sqlite "github.com/fieldops/nfotrack/internal/repository/sqlite"
	"github.com/fieldops/nfotrack/pkg/models"
)

type stubEstimator struct {
	est *models.RouteEstimate
	err error
}

func (s *stubEstimator) ETA(ctx context.Context, origin, destination models.Coordinates) (*models.RouteEstimate, error) {
	return s.est, s.err
}

type testEnv struct {
	srv    *httptest.Server
	viewer *fleet.Viewer
	repo   *sqlite.SQLiteRepo
	router *stubEstimator
}

func setupServer(t *testing.T) (*testEnv, func()) {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	d, err := dbpkg.New(ctx, dbpkg.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := dbpkg.Migrate(ctx, d, appdb.Migrations, appdb.SeedFiles); err != nil {
		d.Close()
		t.Fatalf("migrate: %v", err)
	}

	seed := []string{
		`INSERT INTO engineers (username, password, name, home_location, active) VALUES ('budi', 'fieldpw', 'Budi Santoso', 'Jakarta West', TRUE)`,
		`INSERT INTO managers (username, password, name, area) VALUES ('dewi', 'mgrpw', 'Dewi Lestari', 'Jakarta')`,
	}
	for _, s := range seed {
		if _, err := d.Exec(ctx, s); err != nil {
			d.Close()
			t.Fatalf("seed: %v", err)
		}
	}

	repo := sqlite.New(d, nil)
	sites, err := presence.NewSiteIndex(ctx, repo, 0)
	if err != nil {
		d.Close()
		t.Fatalf("NewSiteIndex: %v", err)
	}

	reconciler := presence.NewReconciler(repo, sites, nil)
	verifier := auth.NewVerifier(repo, nil)
	viewer := fleet.NewViewer(repo, repo, sites, time.Hour, nil)
	router := &stubEstimator{est: &models.RouteEstimate{DistanceKm: 12.4, DurationMin: 28}}

	cfg := &config.Config{JWTSecret: "testsecret", TokenDuration: time.Hour}
	handler := api.SetupRoutes(cfg, "test", "now", api.Deps{
		Verifier:     verifier,
		Reconciler:   reconciler,
		Viewer:       viewer,
		Sites:        sites,
		PresenceRepo: repo,
		Router:       router,
	})

	srv := httptest.NewServer(handler)
	env := &testEnv{srv: srv, viewer: viewer, repo: repo, router: router}
	return env, func() { srv.Close(); d.Close() }
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return res
}

func loginAs(t *testing.T, env *testEnv, role, username, password string) string {
	t.Helper()
	res := postJSON(t, env.srv.URL+"/v1/auth/login", "", map[string]string{
		"role": role, "username": username, "password": password,
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login as %s/%s returned %d", role, username, res.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return body.Token
}

func TestLogin(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	res := postJSON(t, env.srv.URL+"/v1/auth/login", "", map[string]string{
		"role": "field-engineer", "username": "budi", "password": "fieldpw",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", res.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" || body.Name != "Budi Santoso" {
		t.Fatalf("login response = %+v", body)
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	// wrong password and unknown user must be indistinguishable
	for _, creds := range [][2]string{{"budi", "wrong"}, {"ghost", "fieldpw"}} {
		res := postJSON(t, env.srv.URL+"/v1/auth/login", "", map[string]string{
			"role": "field-engineer", "username": creds[0], "password": creds[1],
		})
		res.Body.Close()
		if res.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login %v returned %d, want 401", creds, res.StatusCode)
		}
	}
}

func TestLoginMissingFields(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	res := postJSON(t, env.srv.URL+"/v1/auth/login", "", map[string]string{"username": "budi"})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestHeartbeatWritesPresence(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()
	token := loginAs(t, env, "field-engineer", "budi", "fieldpw")

	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", token, map[string]any{
		"on_shift": true, "site_id": "site-042", "work_order_id": "WO-8841",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("heartbeat returned %d", res.StatusCode)
	}

	var rec models.PresenceRecord
	if err := json.NewDecoder(res.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Status != models.StatusBusy || rec.SiteID == nil || *rec.SiteID != "SITE-042" {
		t.Fatalf("record = %+v, want busy at canonical SITE-042", rec)
	}

	stored, err := env.repo.GetPresence(context.Background(), "budi")
	if err != nil || stored == nil {
		t.Fatalf("GetPresence = (%+v, %v)", stored, err)
	}
	if !stored.LoggedIn || !stored.OnShift {
		t.Fatalf("stored row = %+v", stored)
	}
}

func TestHeartbeatRejectsUnknownSite(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()
	token := loginAs(t, env, "field-engineer", "budi", "fieldpw")

	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", token, map[string]any{
		"on_shift": true, "site_id": "SITE-999",
	})
	res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", res.StatusCode)
	}

	stored, err := env.repo.GetPresence(context.Background(), "budi")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if stored != nil {
		t.Fatalf("rejected heartbeat still wrote a row: %+v", stored)
	}
}

func TestHeartbeatRequiresToken(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", "", map[string]any{"on_shift": true})
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
}

func TestLocationTick(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()
	token := loginAs(t, env, "field-engineer", "budi", "fieldpw")

	res := postJSON(t, env.srv.URL+"/v1/presence/location", token, map[string]float64{
		"lat": -6.21, "lng": 106.85,
	})
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", res.StatusCode)
	}

	stored, err := env.repo.GetPresence(context.Background(), "budi")
	if err != nil || stored == nil {
		t.Fatalf("GetPresence = (%+v, %v)", stored, err)
	}
	if stored.Lat == nil || *stored.Lat != -6.21 || stored.LastActiveSource != models.SourceGPS {
		t.Fatalf("stored row = %+v", stored)
	}
}

func TestLocationMissingCoordinates(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()
	token := loginAs(t, env, "field-engineer", "budi", "fieldpw")

	res := postJSON(t, env.srv.URL+"/v1/presence/location", token, map[string]float64{"lat": -6.21})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestLogoutForcesFinalRow(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()
	token := loginAs(t, env, "field-engineer", "budi", "fieldpw")

	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", token, map[string]any{
		"on_shift": true, "activity": "splicing",
	})
	res.Body.Close()

	res = postJSON(t, env.srv.URL+"/v1/auth/logout", token, struct{}{})
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("logout returned %d", res.StatusCode)
	}

	stored, err := env.repo.GetPresence(context.Background(), "budi")
	if err != nil || stored == nil {
		t.Fatalf("GetPresence = (%+v, %v)", stored, err)
	}
	if stored.LoggedIn || stored.OnShift || stored.Status != models.StatusOffShift || stored.Activity != nil {
		t.Fatalf("final row = %+v", stored)
	}
}

func TestFleetListRequiresManager(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()
	engToken := loginAs(t, env, "field-engineer", "budi", "fieldpw")

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/v1/fleet", nil)
	req.Header.Set("Authorization", "Bearer "+engToken)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.StatusCode)
	}
}

func TestFleetListFiltersAndSummary(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	engToken := loginAs(t, env, "field-engineer", "budi", "fieldpw")
	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", engToken, map[string]any{
		"on_shift": true, "activity": "splicing",
	})
	res.Body.Close()

	if err := env.viewer.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mgrToken := loginAs(t, env, "manager", "dewi", "mgrpw")
	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/v1/fleet?bucket=offline", nil)
	req.Header.Set("Authorization", "Bearer "+mgrToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Summary fleet.Summary `json:"summary"`
		Items   []fleet.Row   `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// the one row is online and busy, so the offline bucket is empty while
	// the summary still counts the full set
	if len(body.Items) != 0 {
		t.Fatalf("items = %+v, want none in offline bucket", body.Items)
	}
	if body.Summary.Total != 1 || body.Summary.Busy != 1 {
		t.Fatalf("summary = %+v", body.Summary)
	}
}

func TestETA(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	engToken := loginAs(t, env, "field-engineer", "budi", "fieldpw")
	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", engToken, map[string]any{
		"on_shift": true, "lat": -6.2, "lng": 106.8,
	})
	res.Body.Close()

	mgrToken := loginAs(t, env, "manager", "dewi", "mgrpw")
	res = postJSON(t, env.srv.URL+"/v1/fleet/eta", mgrToken, map[string]string{
		"username": "budi", "site_id": "SITE-107",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("eta returned %d", res.StatusCode)
	}

	var est models.RouteEstimate
	if err := json.NewDecoder(res.Body).Decode(&est); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if est.DistanceKm != 12.4 || est.DurationMin != 28 {
		t.Fatalf("estimate = %+v", est)
	}
}

func TestETARejections(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	engToken := loginAs(t, env, "field-engineer", "budi", "fieldpw")
	// heartbeat without coordinates: position unknown
	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", engToken, map[string]any{"on_shift": true})
	res.Body.Close()

	mgrToken := loginAs(t, env, "manager", "dewi", "mgrpw")

	cases := []struct {
		name    string
		payload map[string]string
		want    int
	}{
		{"unknown engineer", map[string]string{"username": "ghost", "site_id": "SITE-107"}, http.StatusNotFound},
		{"no known position", map[string]string{"username": "budi", "site_id": "SITE-107"}, http.StatusConflict},
		{"unknown site", map[string]string{"username": "budi", "site_id": "SITE-999"}, http.StatusNotFound},
		{"missing fields", map[string]string{"username": "budi"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := postJSON(t, env.srv.URL+"/v1/fleet/eta", mgrToken, tc.payload)
			res.Body.Close()
			if res.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tc.want)
			}
		})
	}
}

func TestETARoutingFailure(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	engToken := loginAs(t, env, "field-engineer", "budi", "fieldpw")
	res := postJSON(t, env.srv.URL+"/v1/presence/heartbeat", engToken, map[string]any{
		"on_shift": true, "lat": -6.2, "lng": 106.8,
	})
	res.Body.Close()

	env.router.est = nil
	env.router.err = models.ErrRoutingFailure

	mgrToken := loginAs(t, env, "manager", "dewi", "mgrpw")
	res = postJSON(t, env.srv.URL+"/v1/fleet/eta", mgrToken, map[string]string{
		"username": "budi", "site_id": "SITE-107",
	})
	res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.StatusCode)
	}
}

func TestHealthAndVersionAreOpen(t *testing.T) {
	env, cleanup := setupServer(t)
	defer cleanup()

	for _, path := range []string{"/health", "/version"} {
		res, err := http.Get(env.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s returned %d", path, res.StatusCode)
		}
	}
}
