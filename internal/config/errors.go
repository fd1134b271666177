package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// invalid wraps a validation message under ErrInvalidConfig.
func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidConfig)
}

// wrapLoad wraps a koanf/file/env provider error under ErrLoadConfig.
func wrapLoad(err error) error {
	return fmt.Errorf("%w: %w", ErrLoadConfig, err)
}
