package sqlite

import (
	"context"
	"database/sql"

	"github.com/fieldops/nfotrack/pkg/models"
)

const presenceColumns = `username, name, logged_in, on_shift, status, activity, site_id, work_order_id, lat, lng, last_ping, last_active_at, updated_at, last_active_source`

// UpsertPresence creates or fully replaces the engineer's presence row.
// Every column is overwritten, which is what guarantees a single,
// non-duplicated row per username.
func (r *SQLiteRepo) UpsertPresence(ctx context.Context, rec *models.PresenceRecord) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO presence (`+presenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			name = excluded.name,
			logged_in = excluded.logged_in,
			on_shift = excluded.on_shift,
			status = excluded.status,
			activity = excluded.activity,
			site_id = excluded.site_id,
			work_order_id = excluded.work_order_id,
			lat = excluded.lat,
			lng = excluded.lng,
			last_ping = excluded.last_ping,
			last_active_at = excluded.last_active_at,
			updated_at = excluded.updated_at,
			last_active_source = excluded.last_active_source`,
		rec.Username, rec.Name, rec.LoggedIn, rec.OnShift, string(rec.Status),
		rec.Activity, rec.SiteID, rec.WorkOrderID, rec.Lat, rec.Lng,
		rec.LastPing, rec.LastActiveAt, rec.UpdatedAt, string(rec.LastActiveSource))
	return err
}

// MergeLocation records a location tick without touching shift, status,
// activity or site columns of an existing row. If no row exists yet a
// minimal one is created with the schema defaults.
func (r *SQLiteRepo) MergeLocation(ctx context.Context, username string, lat, lng float64, at int64) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO presence (username, lat, lng, last_ping, last_active_at, updated_at, last_active_source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			lat = excluded.lat,
			lng = excluded.lng,
			last_ping = excluded.last_ping,
			last_active_at = excluded.last_active_at,
			updated_at = excluded.updated_at,
			last_active_source = excluded.last_active_source`,
		username, lat, lng, at, at, at, string(models.SourceGPS))
	return err
}

// GetPresence fetches a single presence row; a miss returns (nil, nil).
func (r *SQLiteRepo) GetPresence(ctx context.Context, username string) (*models.PresenceRecord, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+presenceColumns+` FROM presence WHERE username = ?`, username)
	rec, err := scanPresence(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}
	return rec, nil
}

// ListPresence returns the full presence table for the fleet poll.
func (r *SQLiteRepo) ListPresence(ctx context.Context) ([]models.PresenceRecord, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+presenceColumns+` FROM presence ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PresenceRecord
	for rows.Next() {
		rec, err := scanPresence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPresence(row rowScanner) (*models.PresenceRecord, error) {
	var (
		rec      models.PresenceRecord
		status   string
		source   string
		activity sql.NullString
		siteID   sql.NullString
		workID   sql.NullString
		lat      sql.NullFloat64
		lng      sql.NullFloat64
	)
	if err := row.Scan(&rec.Username, &rec.Name, &rec.LoggedIn, &rec.OnShift, &status,
		&activity, &siteID, &workID, &lat, &lng,
		&rec.LastPing, &rec.LastActiveAt, &rec.UpdatedAt, &source); err != nil {
		return nil, err
	}
	rec.Status = models.Status(status)
	rec.LastActiveSource = models.Source(source)
	if activity.Valid {
		rec.Activity = &activity.String
	}
	if siteID.Valid {
		rec.SiteID = &siteID.String
	}
	if workID.Valid {
		rec.WorkOrderID = &workID.String
	}
	if lat.Valid {
		rec.Lat = &lat.Float64
	}
	if lng.Valid {
		rec.Lng = &lng.Float64
	}
	return &rec, nil
}
