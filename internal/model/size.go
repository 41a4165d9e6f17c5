package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrNoSizes is returned when a size list would end up empty.
var ErrNoSizes = errors.New("icon sizes must contain at least one size")

// IconSize is the pixel size of a single image.
type IconSize struct {
	Width  uint32
	Height uint32
}

// NewIconSize returns an IconSize with the given dimensions.
func NewIconSize(width, height uint32) IconSize {
	return IconSize{Width: width, Height: height}
}

// MaxRect returns max(width, height), the scalar used to compare resolutions.
func (s IconSize) MaxRect() uint32 {
	return max(s.Width, s.Height)
}

// Compare orders sizes largest first: it returns a negative number when s
// has a larger MaxRect than o.
func (s IconSize) Compare(o IconSize) int {
	return cmp.Compare(o.MaxRect(), s.MaxRect())
}

// String returns the size in "WxH" form.
func (s IconSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// MarshalText implements encoding.TextMarshaler.
func (s IconSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IconSize) UnmarshalText(text []byte) error {
	size, err := ParseIconSize(string(text))
	if err != nil {
		return err
	}
	*s = size
	return nil
}

// ParseIconSize parses a "WxH" token. Both dimensions must be positive integers.
func ParseIconSize(token string) (IconSize, error) {
	w, h, ok := strings.Cut(strings.ToLower(token), "x")
	if !ok {
		return IconSize{}, fmt.Errorf("invalid icon size %q: expected WxH", token)
	}

	width, err := strconv.ParseUint(w, 10, 32)
	if err != nil || width == 0 {
		return IconSize{}, fmt.Errorf("invalid icon width in %q", token)
	}
	height, err := strconv.ParseUint(h, 10, 32)
	if err != nil || height == 0 {
		return IconSize{}, fmt.Errorf("invalid icon height in %q", token)
	}

	return NewIconSize(uint32(width), uint32(height)), nil
}

// IconSizes is a non-empty, duplicate-free list of sizes kept sorted
// largest first. The zero value is empty and only useful as a target for
// UnmarshalText; use NewIconSizes, SizesFromSlice or ParseIconSizes.
type IconSizes struct {
	sizes []IconSize
}

// NewIconSizes builds a size list from at least one size.
func NewIconSizes(first IconSize, rest ...IconSize) IconSizes {
	s := IconSizes{sizes: []IconSize{first}}
	for _, size := range rest {
		s.Add(size)
	}
	return s
}

// SizesFromSlice builds a size list, failing with ErrNoSizes when sizes is empty.
func SizesFromSlice(sizes []IconSize) (IconSizes, error) {
	if len(sizes) == 0 {
		return IconSizes{}, ErrNoSizes
	}
	return NewIconSizes(sizes[0], sizes[1:]...), nil
}

// ParseIconSizes parses a sizes hint such as "16x16 32x32". Tokens that are
// not WxH are dropped; at least one valid token is required.
func ParseIconSizes(hint string) (IconSizes, error) {
	var sizes []IconSize
	for _, token := range strings.Fields(hint) {
		size, err := ParseIconSize(token)
		if err != nil {
			continue
		}
		sizes = append(sizes, size)
	}
	return SizesFromSlice(sizes)
}

// Add inserts size at its sorted position. Adding a size that is already
// present leaves the list unchanged. Sizes with an equal MaxRect but a
// different shape are kept, after the existing ones.
func (s *IconSizes) Add(size IconSize) {
	pos, found := slices.BinarySearchFunc(s.sizes, size, IconSize.Compare)
	if found {
		for pos < len(s.sizes) && s.sizes[pos].Compare(size) == 0 {
			if s.sizes[pos] == size {
				return
			}
			pos++
		}
	}
	s.sizes = slices.Insert(slices.Clone(s.sizes), pos, size)
}

// Largest returns the first (largest) size.
func (s IconSizes) Largest() IconSize {
	if len(s.sizes) == 0 {
		return IconSize{}
	}
	return s.sizes[0]
}

// Len returns the number of sizes.
func (s IconSizes) Len() int {
	return len(s.sizes)
}

// All returns a copy of the sizes, largest first.
func (s IconSizes) All() []IconSize {
	return slices.Clone(s.sizes)
}

// Compare orders two lists by their largest size.
func (s IconSizes) Compare(o IconSizes) int {
	return s.Largest().Compare(o.Largest())
}

// Equal reports whether both lists hold the same sizes in the same order.
func (s IconSizes) Equal(o IconSizes) bool {
	return slices.Equal(s.sizes, o.sizes)
}

// String joins the sizes with spaces, e.g. "48x48 32x32 16x16".
func (s IconSizes) String() string {
	parts := make([]string, len(s.sizes))
	for i, size := range s.sizes {
		parts[i] = size.String()
	}
	return strings.Join(parts, " ")
}

// MarshalText implements encoding.TextMarshaler.
func (s IconSizes) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IconSizes) UnmarshalText(text []byte) error {
	sizes, err := ParseIconSizes(string(text))
	if err != nil {
		return err
	}
	*s = sizes
	return nil
}
