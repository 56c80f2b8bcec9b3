package sqlite

import (
	"context"
	"database/sql"

	"github.com/fieldops/nfotrack/pkg/models"
)

// FindEngineer looks up exactly one active engineer whose username and
// password match. Credentials are compared exactly, case-sensitive, no
// normalization. A miss returns (nil, nil).
func (r *SQLiteRepo) FindEngineer(ctx context.Context, username, password string) (*models.EngineerIdentity, error) {
	row := r.conn.QueryRow(ctx, `SELECT username, name, home_location, active FROM engineers WHERE username = ? AND password = ? LIMIT 1`, username, password)
	var e models.EngineerIdentity
	if err := row.Scan(&e.Username, &e.Name, &e.HomeLocation, &e.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &e, nil
}

// FindManager is the manager-directory counterpart of FindEngineer.
func (r *SQLiteRepo) FindManager(ctx context.Context, username, password string) (*models.ManagerIdentity, error) {
	row := r.conn.QueryRow(ctx, `SELECT username, name, area FROM managers WHERE username = ? AND password = ? LIMIT 1`, username, password)
	var m models.ManagerIdentity
	if err := row.Scan(&m.Username, &m.Name, &m.Area); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &m, nil
}

// ListEngineers returns the full engineer directory for the fleet join.
func (r *SQLiteRepo) ListEngineers(ctx context.Context) ([]models.EngineerIdentity, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT username, name, home_location, active FROM engineers ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EngineerIdentity
	for rows.Next() {
		var e models.EngineerIdentity
		if err := rows.Scan(&e.Username, &e.Name, &e.HomeLocation, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
