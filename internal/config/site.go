package config

import (
	"maps"
	"strings"
)

// SiteConfig holds the request settings for one site.
type SiteConfig struct {
	// Cookie is sent with every request for the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Blacklist holds doublestar patterns of URLs that are never used as a
	// page or logo, such as "*.doubleclick.net/**".
	Blacklist []string `yaml:"blacklist,omitempty"`
}

// File represents the structure of the .siteicons configuration file.
type File struct {
	// Sites maps host names, such as "example.com", to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merging the
// site-specific entry over the defaults. Site headers override default
// headers of the same name; site blacklist patterns are added to the
// default ones. Host lookup ignores case and a leading "www.".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{
		Cookie:    cf.Defaults.Cookie,
		Headers:   maps.Clone(cf.Defaults.Headers),
		Blacklist: append([]string(nil), cf.Defaults.Blacklist...),
	}

	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	result.Blacklist = append(result.Blacklist, siteConfig.Blacklist...)

	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	if sc, ok := cf.Sites[host]; ok {
		return sc, true
	}
	bare := strings.TrimPrefix(host, "www.")
	for name, sc := range cf.Sites {
		if strings.TrimPrefix(strings.ToLower(name), "www.") == bare {
			return sc, true
		}
	}
	return SiteConfig{}, false
}
