package models

import "errors"

// Error taxonomy shared across components. Validation errors are detected
// before any backend call; backend and routing errors wrap the underlying
// cause so logs keep the detail while handlers map them to uniform
// user-facing messages.
var (
	// ErrInvalidCredentials means no directory row matched the supplied
	// role, username and password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrBackendUnavailable means the backend query or upsert itself
	// failed (network or service error), as opposed to "no match".
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrInvalidSite means a non-empty site id was not found in the
	// valid-site set. The reconciliation is blocked; nothing is written.
	ErrInvalidSite = errors.New("site not recognized")

	// ErrSiteRequired means the derived status would be busy but neither
	// a site nor an activity justified it.
	ErrSiteRequired = errors.New("site or activity required")

	// ErrLocationUnavailable means permission was denied or the platform
	// failed to produce a position. Degrades to "no position known".
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrRoutingFailure means the ETA call failed or returned a body that
	// does not match the expected shape.
	ErrRoutingFailure = errors.New("routing failure")
)
