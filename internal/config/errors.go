package config

import (
	"errors"
	"fmt"
)

// Configuration errors. They are wrapped in a *ConfigError that names the
// offending field, so callers can use errors.Is for the cause and errors.As
// for the field.
var (
	// ErrNoDirectory is returned when no output directory is configured.
	ErrNoDirectory = errors.New("output directory is not specified")

	// ErrDirectoryExists is returned when the output directory is already
	// present on disk. websnap never writes into an existing directory.
	ErrDirectoryExists = errors.New("output directory already exists")

	// ErrDirectoryCreate is returned when the output directory cannot be created.
	ErrDirectoryCreate = errors.New("cannot create output directory")

	// ErrNoURLs is returned when no seed URL is configured.
	ErrNoURLs = errors.New("no URLs specified")

	// ErrInvalidURL is returned when a seed is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the request timeout is negative.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be non-negative")

	// ErrInvalidSource is returned for a source rule without a selector or attribute.
	ErrInvalidSource = errors.New("invalid source rule: selector and attribute are required")

	// ErrInvalidSeed is returned when a seed entry in a config file has an
	// unsupported shape.
	ErrInvalidSeed = errors.New("invalid seed: expected a URL string or a {url, filename} mapping")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

// ConfigError reports an invalid or unusable configuration value.
// It is never retried.
type ConfigError struct {
	// Field is the configuration key the error refers to, e.g. "directory".
	Field string

	// Err is the underlying cause, usually one of the sentinel errors above.
	Err error
}

// NewConfigError wraps err for field.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
