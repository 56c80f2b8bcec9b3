// Package postgres implements the repository interfaces against the hosted
// postgres backend using lib/pq.
package postgres

import (
	"database/sql"
	"log/slog"

	"github.com/fieldops/nfotrack/pkg/repository"
)

// PostgresRepo implements the repository interfaces on a postgres pool.
type PostgresRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure PostgresRepo implements the public interfaces.
var _ repository.DirectoryRepo = (*PostgresRepo)(nil)
var _ repository.PresenceRepo = (*PostgresRepo)(nil)
var _ repository.SiteRepo = (*PostgresRepo)(nil)
var _ repository.Store = (*PostgresRepo)(nil)

func New(db *sql.DB, logger *slog.Logger) *PostgresRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepo{db: db, logger: logger}
}
