package fetch

import "errors"

// Fetch errors.
var (
	// ErrBadStatus is returned when the server answers with a non-2xx status.
	ErrBadStatus = errors.New("unexpected HTTP status")

	// ErrTooManyRedirects is returned when a request is redirected more than MaxRedirects times.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrNoContentType is returned when a response lacks a usable Content-Type.
	ErrNoContentType = errors.New("missing or malformed content type")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
