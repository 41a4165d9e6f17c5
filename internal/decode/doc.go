// Package decode recovers image dimensions from PNG, JPEG, GIF, ICO and SVG
// streams without decoding pixel data.
//
// Every decoder reads from the first byte of the file and stops as soon as
// the size is known, so callers can hand it a live HTTP body. Callers that
// need to look at the magic number first should peek (for example with
// bufio.Reader.Peek) rather than consume it.
package decode
