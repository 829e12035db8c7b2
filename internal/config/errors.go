package config

import "errors"

var (
	// ErrUnsupportedFormat is returned for config files that are neither YAML
	// nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	// ErrInvalidConfig wraps validation failures of the merged configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)
