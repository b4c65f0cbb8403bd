package config

import (
	"errors"
)

// Sentinel kinds for configuration errors. Validation failures wrap
// ErrInvalidConfig; source loading failures wrap ErrLoadConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
