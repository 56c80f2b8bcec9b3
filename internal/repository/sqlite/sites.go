package sqlite

import (
	"context"

	"github.com/fieldops/nfotrack/pkg/models"
)

// ListSites pages through the site directory; callers keep fetching until a
// short page.
func (r *SQLiteRepo) ListSites(ctx context.Context, limit, offset int) ([]models.SiteRecord, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT site_id, city, area, latitude, longitude, location_type FROM sites ORDER BY site_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SiteRecord
	for rows.Next() {
		var s models.SiteRecord
		if err := rows.Scan(&s.SiteID, &s.City, &s.Area, &s.Latitude, &s.Longitude, &s.LocationType); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
