package postgres

import (
	"context"
	"database/sql"

	"github.com/fieldops/nfotrack/pkg/models"
)

// FindEngineer matches username AND password exactly; (nil, nil) on a miss.
func (r *PostgresRepo) FindEngineer(ctx context.Context, username, password string) (*models.EngineerIdentity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT username, name, home_location, active FROM engineers WHERE username = $1 AND password = $2 LIMIT 1`, username, password)
	var e models.EngineerIdentity
	if err := row.Scan(&e.Username, &e.Name, &e.HomeLocation, &e.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &e, nil
}

func (r *PostgresRepo) FindManager(ctx context.Context, username, password string) (*models.ManagerIdentity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT username, name, area FROM managers WHERE username = $1 AND password = $2 LIMIT 1`, username, password)
	var m models.ManagerIdentity
	if err := row.Scan(&m.Username, &m.Name, &m.Area); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &m, nil
}

func (r *PostgresRepo) ListEngineers(ctx context.Context) ([]models.EngineerIdentity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT username, name, home_location, active FROM engineers ORDER BY username`)
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
