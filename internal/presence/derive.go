// Package presence holds the status derivation and heartbeat reconciliation
// core: the one piece of recurring logic every trigger in the system funnels
// through.
package presence

import (
	"strings"

	"github.com/fieldops/nfotrack/pkg/models"
)

// Derive maps the engineer's inputs to a presence status.
//
//	off-shift iff not on shift
//	busy      iff on shift and (activity or site non-empty)
//	free      otherwise
//
// Pure; callers resolve the site id against the valid-site set first.
func Derive(onShift bool, activity, siteID string) models.Status {
	if !onShift {
		return models.StatusOffShift
	}
	if strings.TrimSpace(activity) != "" || strings.TrimSpace(siteID) != "" {
		return models.StatusBusy
	}
	return models.StatusFree
}
