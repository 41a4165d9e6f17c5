package decode

import "errors"

// Decode errors. Truncated input surfaces as io.ErrUnexpectedEOF or io.EOF
// wrapped by the decoder that hit it.
var (
	// ErrBadHeader is returned when a fixed header or signature does not match.
	ErrBadHeader = errors.New("bad header")

	// ErrInvalidJPEG is returned when the JPEG marker stream is malformed.
	ErrInvalidJPEG = errors.New("invalid jpeg")

	// ErrInvalidSVG is returned when the stream ends before the root <svg> element.
	ErrInvalidSVG = errors.New("invalid svg")

	// ErrUnknownFormat is returned when Decode is called with a format it has no decoder for.
	ErrUnknownFormat = errors.New("unknown image format")
)
