package model

import (
	"cmp"
	"fmt"
	"strings"
)

// Format identifies the image container an icon was decoded from.
type Format int

const (
	// FormatPNG is a Portable Network Graphics image.
	FormatPNG Format = iota
	// FormatJPEG is a JPEG/JFIF image.
	FormatJPEG
	// FormatGIF is a GIF87a/GIF89a image.
	FormatGIF
	// FormatICO is a Windows icon container holding one or more images.
	FormatICO
	// FormatSVG is a scalable vector graphic.
	FormatSVG
)

// Formats lists every known format.
var Formats = []Format{FormatPNG, FormatJPEG, FormatGIF, FormatICO, FormatSVG}

// String returns the short lowercase name used in textual output.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatGIF:
		return "gif"
	case FormatICO:
		return "ico"
	case FormatSVG:
		return "svg"
	default:
		return "unknown"
	}
}

// MimeType returns the canonical MIME type of the format.
func (f Format) MimeType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatICO:
		return "image/x-icon"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat returns the format with the given short name.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if f.String() == strings.ToLower(name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown image format %q", name)
}

// rasterRank breaks ties between raster images of equal resolution.
// Lower ranks are preferred.
func (f Format) rasterRank() int {
	switch f {
	case FormatPNG:
		return 0
	case FormatGIF:
		return 1
	case FormatJPEG:
		return 2
	case FormatICO:
		return 3
	default:
		return 4
	}
}

// IconInfo describes the decoded format and dimensions of an icon.
//
// Raster formats other than ICO always carry exactly one size. ICO carries
// every size in its directory. SVG carries at most one size; an SVG
// without width/height or viewBox is "unsized".
type IconInfo struct {
	format Format
	sizes  IconSizes
}

// PNGInfo returns the info for a PNG image of the given size.
func PNGInfo(size IconSize) IconInfo {
	return IconInfo{format: FormatPNG, sizes: NewIconSizes(size)}
}

// JPEGInfo returns the info for a JPEG image of the given size.
func JPEGInfo(size IconSize) IconInfo {
	return IconInfo{format: FormatJPEG, sizes: NewIconSizes(size)}
}

// GIFInfo returns the info for a GIF image of the given size.
func GIFInfo(size IconSize) IconInfo {
	return IconInfo{format: FormatGIF, sizes: NewIconSizes(size)}
}

// ICOInfo returns the info for an ICO container holding sizes.
func ICOInfo(sizes IconSizes) IconInfo {
	return IconInfo{format: FormatICO, sizes: sizes}
}

// SVGInfo returns the info for an SVG image with a known size.
func SVGInfo(size IconSize) IconInfo {
	return IconInfo{format: FormatSVG, sizes: NewIconSizes(size)}
}

// UnsizedSVGInfo returns the info for an SVG image without a known size.
func UnsizedSVGInfo() IconInfo {
	return IconInfo{format: FormatSVG}
}

// NewRasterInfo returns the single-size info for a PNG, JPEG or GIF.
func NewRasterInfo(format Format, size IconSize) IconInfo {
	return IconInfo{format: format, sizes: NewIconSizes(size)}
}

// Format returns the image format.
func (i IconInfo) Format() Format {
	return i.format
}

// Size returns the largest known size. ok is false for an unsized SVG.
func (i IconInfo) Size() (size IconSize, ok bool) {
	if i.sizes.Len() == 0 {
		return IconSize{}, false
	}
	return i.sizes.Largest(), true
}

// Sizes returns every known size, largest first. It is empty for an unsized SVG.
func (i IconInfo) Sizes() []IconSize {
	return i.sizes.All()
}

// MimeType returns the MIME type of the underlying format.
func (i IconInfo) MimeType() string {
	return i.format.MimeType()
}

// Equal reports whether both infos have the same format and sizes.
func (i IconInfo) Equal(o IconInfo) bool {
	return i.format == o.format && i.sizes.Equal(o.sizes)
}

// Compare orders infos most preferred first. SVG ranks above every raster
// format and a sized SVG ranks above an unsized one. Raster images are
// ordered by resolution, then PNG, GIF, JPEG, ICO.
func (i IconInfo) Compare(o IconInfo) int {
	iSVG, oSVG := i.format == FormatSVG, o.format == FormatSVG
	switch {
	case iSVG && !oSVG:
		return -1
	case !iSVG && oSVG:
		return 1
	case iSVG && oSVG:
		iSized, oSized := i.sizes.Len() > 0, o.sizes.Len() > 0
		switch {
		case iSized && !oSized:
			return -1
		case !iSized && oSized:
			return 1
		case !iSized && !oSized:
			return 0
		}
		return i.sizes.Compare(o.sizes)
	}

	if c := i.sizes.Compare(o.sizes); c != 0 {
		return c
	}
	return cmp.Compare(i.format.rasterRank(), o.format.rasterRank())
}

// String renders the info as "png 32x32", "ico 48x48 16x16", "svg" or "svg 24x24".
func (i IconInfo) String() string {
	if i.sizes.Len() == 0 {
		return i.format.String()
	}
	return i.format.String() + " " + i.sizes.String()
}
