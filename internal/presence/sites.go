package presence

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// defaultPageSize is the page size used when loading the site directory.
const defaultPageSize = 200

// SiteIndex is the valid-site set: a case-insensitive, trimmed index over
// site ids, used for membership testing and canonical-casing recovery. It is
// rebuilt whenever the site directory is (re)loaded.
type SiteIndex struct {
	repo     repository.SiteRepo
	pageSize int

	mu    sync.RWMutex
	byKey map[string]models.SiteRecord
}

// NewSiteIndex builds the index and performs the initial load.
func NewSiteIndex(ctx context.Context, repo repository.SiteRepo, pageSize int) (*SiteIndex, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	idx := &SiteIndex{
		repo:     repo,
		pageSize: pageSize,
		byKey:    make(map[string]models.SiteRecord),
	}
	if err := idx.Reload(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

// Reload fetches the full site directory page by page and swaps in a fresh
// index. On error the previous index stays in place.
func (l *SiteIndex) Reload(ctx context.Context) error {
	fresh := make(map[string]models.SiteRecord)
	for offset := 0; ; offset += l.pageSize {
		page, err := l.repo.ListSites(ctx, l.pageSize, offset)
		if err != nil {
			return fmt.Errorf("load sites: %w", err)
		}
		for _, s := range page {
			fresh[normalizeSiteID(s.SiteID)] = s
		}
		if len(page) < l.pageSize {
			break
		}
	}

	l.mu.Lock()
	l.byKey = fresh
	l.mu.Unlock()

	return nil
}

// Resolve accepts a candidate site id when its trimmed, lower-cased form is
// a member of the set. The returned record carries the canonical casing from
// the site directory, not the caller's typed casing.
func (l *SiteIndex) Resolve(candidate string) (models.SiteRecord, bool) {
	key := normalizeSiteID(candidate)
	if key == "" {
		return models.SiteRecord{}, false
	}

	l.mu.RLock()
	s, ok := l.byKey[key]
	l.mu.RUnlock()

	return s, ok
}

// Len reports how many sites the index currently holds.
func (l *SiteIndex) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.byKey)
}

func normalizeSiteID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
