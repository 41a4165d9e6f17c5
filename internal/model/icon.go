package model

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// Icon is a discovered icon: where it lives, which headers fetch it, what it
// is for and what was decoded from it.
type Icon struct {
	URL     *url.URL
	Headers map[string]string
	Kind    IconKind
	Info    IconInfo
}

// NewIcon builds an Icon. A nil headers map is stored as an empty map.
func NewIcon(u *url.URL, headers map[string]string, kind IconKind, info IconInfo) Icon {
	if headers == nil {
		headers = map[string]string{}
	}
	return Icon{URL: u, Headers: headers, Kind: kind, Info: info}
}

// URLString returns the icon URL, or "" when it is nil.
func (i Icon) URLString() string {
	if i.URL == nil {
		return ""
	}
	return i.URL.String()
}

// Key identifies the resource an icon was fetched from: its URL plus the
// request headers. Kind and info are not part of the key.
func (i Icon) Key() string {
	var b strings.Builder
	b.WriteString(i.URLString())
	for _, name := range slices.Sorted(maps.Keys(i.Headers)) {
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(i.Headers[name])
	}
	return b.String()
}

// Equal reports whether every field of both icons matches.
func (i Icon) Equal(o Icon) bool {
	return i.URLString() == o.URLString() &&
		maps.Equal(i.Headers, o.Headers) &&
		i.Kind == o.Kind &&
		i.Info.Equal(o.Info)
}

// Compare orders icons by preference of their info. Remaining ties are
// broken by URL, kind and headers so the order is total.
func (i Icon) Compare(o Icon) int {
	if c := i.Info.Compare(o.Info); c != 0 {
		return c
	}
	if c := cmp.Compare(i.URLString(), o.URLString()); c != 0 {
		return c
	}
	if c := cmp.Compare(i.Kind.Priority(), o.Kind.Priority()); c != 0 {
		return c
	}
	if c := cmp.Compare(i.Key(), o.Key()); c != 0 {
		return c
	}
	// Same key and kind but different info that compares equal, e.g. two
	// ICO sets sharing a largest size.
	return cmp.Compare(i.Info.String(), o.Info.String())
}

// String renders "<url> <kind> <info>".
func (i Icon) String() string {
	return fmt.Sprintf("%s %s %s", i.URLString(), i.Kind, i.Info)
}

// iconJSON is the wire form of an Icon.
type iconJSON struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Kind    IconKind          `json:"kind"`
	Type    string            `json:"type"`
	Size    *IconSize         `json:"size,omitempty"`
	Sizes   *IconSizes        `json:"sizes,omitempty"`
}

// MarshalJSON renders the icon with a "size" for single-size formats and
// "sizes" for ICO.
func (i Icon) MarshalJSON() ([]byte, error) {
	out := iconJSON{
		URL:     i.URLString(),
		Headers: i.Headers,
		Kind:    i.Kind,
		Type:    i.Info.Format().String(),
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	if i.Info.Format() == FormatICO {
		sizes := i.Info.sizes
		out.Sizes = &sizes
	} else if size, ok := i.Info.Size(); ok {
		out.Size = &size
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the form produced by MarshalJSON.
func (i *Icon) UnmarshalJSON(data []byte) error {
	var in iconJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	u, err := url.Parse(in.URL)
	if err != nil {
		return fmt.Errorf("invalid icon url: %w", err)
	}
	format, err := ParseFormat(in.Type)
	if err != nil {
		return err
	}

	var info IconInfo
	switch {
	case format == FormatICO:
		if in.Sizes == nil {
			return fmt.Errorf("ico icon %s: %w", in.URL, ErrNoSizes)
		}
		info = ICOInfo(*in.Sizes)
	case in.Size != nil:
		info = NewRasterInfo(format, *in.Size)
	case format == FormatSVG:
		info = UnsizedSVGInfo()
	default:
		return fmt.Errorf("%s icon %s: %w", format, in.URL, ErrNoSizes)
	}

	*i = NewIcon(u, in.Headers, in.Kind, info)
	return nil
}
