package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *Error. A transport error means no HTTP
	// response was received at all (connection refused, DNS failure,
	// timeout, ...). A response with an error status is not an error.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrTorNotRunning is returned when a client is requested from an
	// embedded Tor daemon that has not been started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)

// Error is a failed request for URL.
type Error struct {
	URL string
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) true for every *Error.
func (e *Error) Is(target error) bool {
	return target == ErrTransport
}
