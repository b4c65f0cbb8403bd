package ranking

import "errors"

// Sentinel kinds for ranking errors. These allow errors.Is from callers.
var (
	ErrInvalidScope      = errors.New("invalid scope")
	ErrInvalidWindow     = errors.New("invalid window")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrNotRanked         = errors.New("user not ranked")
)
