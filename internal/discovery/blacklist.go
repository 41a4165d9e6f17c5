package discovery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// NewGlobBlacklist returns a blacklist predicate built from doublestar
// patterns. A pattern containing a slash is matched against host+path, as in
// "*.doubleclick.net/**"; any other pattern is matched against the host
// alone. URLs without a host, such as data URIs, are never blacklisted.
func NewGlobBlacklist(patterns []string) (func(*url.URL) bool, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	patterns = append([]string(nil), patterns...)

	return func(u *url.URL) bool {
		if u == nil || u.Host == "" {
			return false
		}
		host := strings.ToLower(u.Hostname())
		path := u.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		for _, p := range patterns {
			target := host
			if strings.Contains(p, "/") {
				target = host + path
			}
			if ok, _ := doublestar.Match(strings.ToLower(p), target); ok { //nolint:errcheck // patterns validated above
				return true
			}
		}
		return false
	}, nil
}
