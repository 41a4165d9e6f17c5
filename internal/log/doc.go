// Package log provides slog loggers that mask sensitive values.
//
// Discovery sends user-configured headers and cookies with every request,
// and icon URLs may carry tokens in their query. The SecureHandler masks:
//   - attributes whose key names a credential (cookie, authorization, token...)
//   - string values that look like credentials (bearer tokens, JWTs, API keys)
//   - header maps, header by header
//   - URL passwords and credential-like query parameters
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetch", "url", u.String(), "headers", headers)
package log
