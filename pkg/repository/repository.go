// Package repository defines the narrow interfaces this system expects from
// the external table-oriented backend: equality-filtered selects, an
// insert-or-replace upsert keyed by a unique column, and paginated range
// selects. Implementations live under internal/repository.
package repository

import (
	"context"

	"github.com/fieldops/nfotrack/pkg/models"
)

// DirectoryRepo reads the engineer and manager directory tables. Lookups
// match username AND password exactly; a miss is (nil, nil), an error means
// the backend call itself failed.
type DirectoryRepo interface {
	FindEngineer(ctx context.Context, username, password string) (*models.EngineerIdentity, error)
	FindManager(ctx context.Context, username, password string) (*models.ManagerIdentity, error)
	ListEngineers(ctx context.Context) ([]models.EngineerIdentity, error)
}

// PresenceRepo manages the shared presence table, one row per engineer.
//
// UpsertPresence is a full replace by username: every column of an existing
// row is overwritten. MergeLocation is a field-level merge that only touches
// position and timestamp columns, so a location tick can never resurrect or
// clobber shift, status, activity or site fields.
type PresenceRepo interface {
	UpsertPresence(ctx context.Context, rec *models.PresenceRecord) error
	MergeLocation(ctx context.Context, username string, lat, lng float64, at int64) error
	GetPresence(ctx context.Context, username string) (*models.PresenceRecord, error)
	ListPresence(ctx context.Context) ([]models.PresenceRecord, error)
}

// SiteRepo reads the site directory. ListSites is a paginated range select;
// callers page through until a short page.
type SiteRepo interface {
	ListSites(ctx context.Context, limit, offset int) ([]models.SiteRecord, error)
}

// Store bundles every table this system touches. Both the sqlite and the
// postgres implementations satisfy it.
type Store interface {
	DirectoryRepo
	PresenceRepo
	SiteRepo
}
