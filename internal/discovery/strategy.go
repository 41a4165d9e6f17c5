package discovery

import "github.com/nao1215/siteicons/internal/model"

// Strategy is one of the independent ways of finding a site's icons.
type Strategy int

const (
	// StrategyDefaultManifest probes the default manifest locations.
	StrategyDefaultManifest Strategy = iota + 1
	// StrategyHeadTags scans the icon links in the page head.
	StrategyHeadTags
	// StrategyDefaultFavicon probes the default favicon locations.
	StrategyDefaultFavicon
	// StrategySiteLogo looks for the site logo in the page body.
	StrategySiteLogo
)

// Strategies lists every strategy in launch order.
var Strategies = []Strategy{
	StrategyHeadTags,
	StrategySiteLogo,
	StrategyDefaultManifest,
	StrategyDefaultFavicon,
}

func (s Strategy) String() string {
	switch s {
	case StrategyDefaultManifest:
		return "default_manifest"
	case StrategyHeadTags:
		return "head_tags"
	case StrategyDefaultFavicon:
		return "default_favicon"
	case StrategySiteLogo:
		return "site_logo"
	default:
		return "unknown"
	}
}

// outcome is what one strategy produced.
type outcome struct {
	strategy Strategy
	icons    []model.Icon
}

func (o outcome) found() bool {
	return len(o.icons) > 0
}

// race tracks completed strategies and decides when a fast discovery has
// seen enough.
type race struct {
	headDone     bool
	faviconFound bool
	bestMatch    bool
}

// record notes a completed strategy and reports whether a best match has
// been found so far. The site logo never counts as a best match.
func (r *race) record(o outcome) bool {
	switch o.strategy {
	case StrategyDefaultManifest:
		if o.found() {
			r.bestMatch = true
		}
	case StrategyHeadTags:
		if o.found() || r.faviconFound {
			r.bestMatch = true
		}
		r.headDone = true
	case StrategyDefaultFavicon:
		if o.found() {
			if r.headDone {
				r.bestMatch = true
			}
			r.faviconFound = true
		}
	case StrategySiteLogo:
	}
	return r.bestMatch
}
