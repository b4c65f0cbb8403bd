package repository

import "errors"

// Sentinel kinds for store errors. Query and write failures from backing
// storage are wrapped with ErrStoreUnavailable so callers can map them to
// a retry-later response.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidRecord    = errors.New("invalid score record")
)
