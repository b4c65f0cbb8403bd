package badges

import "errors"

// Sentinel kinds for badge errors.
var (
	ErrInvalidDefinition = errors.New("invalid badge definition")
)
