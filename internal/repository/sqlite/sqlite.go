// Package sqlite implements the repository interfaces on the embedded
// sqlite driver. It backs local runs and the integration tests; the hosted
// deployment uses internal/repository/postgres with the same SQL shapes.
package sqlite

import (
	"log/slog"

	"github.com/fieldops/nfotrack/internal/db"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.DirectoryRepo = (*SQLiteRepo)(nil)
var _ repository.PresenceRepo = (*SQLiteRepo)(nil)
var _ repository.SiteRepo = (*SQLiteRepo)(nil)
var _ repository.Store = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}
