package leveling

import "errors"

// Sentinel kinds for leveling errors.
var (
	ErrInvalidCurve  = errors.New("invalid level curve")
	ErrInvalidAmount = errors.New("invalid xp amount")
)
