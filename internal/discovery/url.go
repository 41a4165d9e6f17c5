package discovery

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL parses a seed URL. A URL without a scheme is assumed to be
// https; schemes other than http and https are rejected.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: unsupported scheme %q", ErrInvalidURL, raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidURL, raw)
	}
	return u, nil
}

// pushURL appends segment to the path of base, treating base as a directory
// whether or not it ends in a slash.
func pushURL(base *url.URL, segment string) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + segment
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return &u
}

// rootURL resolves /name against base.
func rootURL(base *url.URL, name string) *url.URL {
	return base.ResolveReference(&url.URL{Path: "/" + name})
}

func uniqueURLs(urls ...*url.URL) []*url.URL {
	seen := make(map[string]struct{}, len(urls))
	out := make([]*url.URL, 0, len(urls))
	for _, u := range urls {
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}

// manifestURLs returns the default manifest locations for site, most
// specific first.
func manifestURLs(site *url.URL) []*url.URL {
	return uniqueURLs(
		pushURL(site, "manifest.json"),
		pushURL(site, "manifest.webmanifest"),
		rootURL(site, "manifest.json"),
		rootURL(site, "manifest.webmanifest"),
	)
}

// faviconURLs returns the default favicon locations for site. SVG is tried
// before ICO.
func faviconURLs(site *url.URL) []*url.URL {
	return uniqueURLs(
		pushURL(site, "favicon.svg"),
		rootURL(site, "favicon.svg"),
		pushURL(site, "favicon.ico"),
		rootURL(site, "favicon.ico"),
	)
}
