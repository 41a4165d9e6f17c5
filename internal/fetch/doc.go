// Package fetch is the HTTP layer used by every discovery component.
//
// A Client wraps an *http.Client configured with a browser User-Agent, a
// redirect cap, an optional SOCKS5 proxy and optional site headers/cookie
// that are injected into every request. Get streams the response body and
// fails on any non-2xx status, so callers only ever see usable bodies.
package fetch
