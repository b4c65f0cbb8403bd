package srs

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrInvalidRating = errors.New("invalid rating")
)
