package discovery

import "errors"

var (
	// ErrInvalidURL is returned when a seed URL cannot be used for discovery.
	ErrInvalidURL = errors.New("invalid site URL")

	// ErrInvalidPattern is returned for a malformed blacklist glob.
	ErrInvalidPattern = errors.New("invalid blacklist pattern")
)
