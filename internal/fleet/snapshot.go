// Package fleet builds the manager-facing view of the presence table:
// periodic refetch, directory join, client-side filtering and sorting, and
// aggregate counters over the unfiltered set.
package fleet

import (
	"sort"
	"strings"
	"time"

	"github.com/fieldops/nfotrack/pkg/models"
)

// Row is a presence record joined with the directory: a display name with
// fallbacks and the engineer's home-location tag.
type Row struct {
	models.PresenceRecord
	DisplayName string `json:"display_name"`
	Area        string `json:"area"`
}

// Summary carries the aggregate counters. They are computed over the full
// record set, not the filtered view, so tiles stay stable as filters change.
type Summary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Free    int `json:"free"`
	Busy    int `json:"busy"`
}

// Snapshot is one poll's worth of joined, sorted rows plus the pre-filter
// summary.
type Snapshot struct {
	Rows      []Row     `json:"rows"`
	Summary   Summary   `json:"summary"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Bucket is a status filter.
type Bucket string

const (
	BucketAll     Bucket = "all"
	BucketOnline  Bucket = "online"
	BucketOffline Bucket = "offline"
	BucketFree    Bucket = "free"
	BucketBusy    Bucket = "busy"
)

// AreaAll disables area filtering.
const AreaAll = "All"

// Query is the client-side filter: area membership, then status bucket, then
// free-text search, applied in that order.
type Query struct {
	Area   string
	Bucket Bucket
	Search string
}

// Filter applies the query to the rows. The input slice is not modified.
func Filter(rows []Row, q Query) []Row {
	out := make([]Row, 0, len(rows))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, r := range rows {
		if q.Area != "" && q.Area != AreaAll && r.Area != q.Area {
			continue
		}
		if !inBucket(r, q.Bucket) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(r.Username), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func inBucket(r Row, b Bucket) bool {
	switch b {
	case "", BucketAll:
		return true
	case BucketOnline:
		return r.LoggedIn
	case BucketOffline:
		return !r.LoggedIn
	case BucketFree:
		return r.LoggedIn && r.OnShift && r.Status == models.StatusFree
	case BucketBusy:
		return r.LoggedIn && r.OnShift && r.Status == models.StatusBusy
	default:
		return false
	}
}

// SortRows orders rows by status rank ascending (busy, free, off-shift,
// anything else), ties broken by most recent last_ping first.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := statusRank(rows[i].Status), statusRank(rows[j].Status)
		if ri != rj {
			return ri < rj
		}
		return rows[i].LastPing > rows[j].LastPing
	})
}

func statusRank(s models.Status) int {
	switch s {
	case models.StatusBusy:
		return 0
	case models.StatusFree:
		return 1
	case models.StatusOffShift:
		return 2
	default:
		return 3
	}
}

// Summarize computes the aggregate counters over the given rows.
func Summarize(rows []Row) Summary {
	var s Summary
	s.Total = len(rows)
	for _, r := range rows {
		if r.LoggedIn {
			s.Online++
		} else {
			s.Offline++
		}
		if r.LoggedIn && r.OnShift {
			switch r.Status {
			case models.StatusFree:
				s.Free++
			case models.StatusBusy:
				s.Busy++
			}
		}
	}
	return s
}
