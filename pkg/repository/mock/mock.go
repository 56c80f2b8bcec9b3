// Package mock provides in-memory repository fakes shared by tests across
// packages. Every method is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

var _ repository.Store = (*Store)(nil)

// Store is an in-memory implementation of repository.Store with injectable
// error hooks per table.
type Store struct {
	mu sync.Mutex

	Engineers []models.EngineerIdentity
	Managers  []models.ManagerIdentity
	Sites     []models.SiteRecord
	Presence  map[string]models.PresenceRecord
	Passwords map[string]string

	DirectoryErr error
	PresenceErr  error
	SitesErr     error

	UpsertCalls int
	MergeCalls  int
}

func NewStore() *Store {
	return &Store{
		Presence:  make(map[string]models.PresenceRecord),
		Passwords: make(map[string]string),
	}
}

// AddEngineer registers an engineer with a credential.
func (s *Store) AddEngineer(e models.EngineerIdentity, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Engineers = append(s.Engineers, e)
	s.Passwords[e.Username] = password
}

// AddManager registers a manager with a credential.
func (s *Store) AddManager(m models.ManagerIdentity, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Managers = append(s.Managers, m)
	s.Passwords[m.Username] = password
}

func (s *Store) FindEngineer(ctx context.Context, username, password string) (*models.EngineerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DirectoryErr != nil {
		return nil, s.DirectoryErr
	}
	for _, e := range s.Engineers {
		if e.Username == username && s.Passwords[username] == password {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) FindManager(ctx context.Context, username, password string) (*models.ManagerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DirectoryErr != nil {
		return nil, s.DirectoryErr
	}
	for _, m := range s.Managers {
		if m.Username == username && s.Passwords[username] == password {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListEngineers(ctx context.Context) ([]models.EngineerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DirectoryErr != nil {
		return nil, s.DirectoryErr
	}
	out := make([]models.EngineerIdentity, len(s.Engineers))
	copy(out, s.Engineers)
	return out, nil
}

func (s *Store) UpsertPresence(ctx context.Context, rec *models.PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PresenceErr != nil {
		return s.PresenceErr
	}
	s.UpsertCalls++
	s.Presence[rec.Username] = *rec
	return nil
}

func (s *Store) MergeLocation(ctx context.Context, username string, lat, lng float64, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PresenceErr != nil {
		return s.PresenceErr
	}
	s.MergeCalls++
	rec, ok := s.Presence[username]
	if !ok {
		rec = models.PresenceRecord{Username: username}
	}
	rec.Lat, rec.Lng = &lat, &lng
	rec.LastPing, rec.LastActiveAt, rec.UpdatedAt = at, at, at
	rec.LastActiveSource = models.SourceGPS
	s.Presence[username] = rec
	return nil
}

func (s *Store) GetPresence(ctx context.Context, username string) (*models.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PresenceErr != nil {
		return nil, s.PresenceErr
	}
	rec, ok := s.Presence[username]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *Store) ListPresence(ctx context.Context) ([]models.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PresenceErr != nil {
		return nil, s.PresenceErr
	}
	out := make([]models.PresenceRecord, 0, len(s.Presence))
	for _, rec := range s.Presence {
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) ListSites(ctx context.Context, limit, offset int) ([]models.SiteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SitesErr != nil {
		return nil, s.SitesErr
	}
	if offset >= len(s.Sites) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.Sites) {
		end = len(s.Sites)
	}
	out := make([]models.SiteRecord, end-offset)
	copy(out, s.Sites[offset:end])
	return out, nil
}
