package catalog

import "errors"

var (
	// ErrNotFound is returned when no read model row exists for an asset.
	ErrNotFound = errors.New("listed property not found")
	// ErrRefreshFailed wraps any failure to rebuild a tenant's read model.
	// The previous snapshot stays in place when it is returned.
	ErrRefreshFailed = errors.New("catalog refresh failed")
	// ErrRefreshTimeout is returned when a rebuild outlives its deadline.
	ErrRefreshTimeout = errors.New("catalog refresh timed out")
)
