package model

import (
	"fmt"
	"strings"
)

// IconKind is the semantic role an icon plays for its site.
//
// When the same icon is discovered more than once under different kinds, the
// kind with the higher Priority wins. The priorities are spelled out below
// rather than derived from declaration order.
type IconKind int

const (
	// KindAppIcon is an icon declared for installed web apps: manifest
	// icons and apple-touch-icon links.
	KindAppIcon IconKind = 1
	// KindSiteFavicon is a regular favicon.
	KindSiteFavicon IconKind = 2
	// KindSiteLogo is the logo image found in the page body.
	KindSiteLogo IconKind = 3
)

// Priority returns the kind-upgrade priority. Higher wins.
func (k IconKind) Priority() int {
	return int(k)
}

// MaxKind returns whichever of a and b has the higher priority.
func MaxKind(a, b IconKind) IconKind {
	if b.Priority() > a.Priority() {
		return b
	}
	return a
}

// String returns the snake_case name of the kind.
func (k IconKind) String() string {
	switch k {
	case KindAppIcon:
		return "app_icon"
	case KindSiteFavicon:
		return "site_favicon"
	case KindSiteLogo:
		return "site_logo"
	default:
		return "unknown"
	}
}

// ParseIconKind converts a snake_case name back to an IconKind.
func ParseIconKind(name string) (IconKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "app_icon":
		return KindAppIcon, nil
	case "site_favicon":
		return KindSiteFavicon, nil
	case "site_logo":
		return KindSiteLogo, nil
	default:
		return 0, fmt.Errorf("unknown icon kind %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k IconKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *IconKind) UnmarshalText(text []byte) error {
	kind, err := ParseIconKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
