package crawler

import (
	"regexp"
	"strings"
)

const svgNamespace = "http://www.w3.org/2000/svg"

var (
	svgOpenTag        = regexp.MustCompile(`<svg`)
	svgFillNone       = regexp.MustCompile(`\s*fill='?none'?`)
	svgBetweenTags    = regexp.MustCompile(`>\s+<`)
	svgWhitespaceRuns = regexp.MustCompile(`\s{2,}`)
)

// svgUnsafe lists the printable ASCII bytes that must be escaped in an SVG
// data URI. Control bytes and non-ASCII bytes are always escaped.
const svgUnsafe = "\r\n%#()<>?[\\]^`{|}"

// EncodeSVG turns inline <svg> markup into a compact data URI.
//
// The markup gets an xmlns if it has none, double quotes become single
// quotes, a fill='none' on the root element is dropped and whitespace
// between tags is collapsed before percent-encoding.
func EncodeSVG(markup string) string {
	svg := markup
	if !strings.Contains(svg, svgNamespace) {
		loc := svgOpenTag.FindStringIndex(svg)
		if loc != nil {
			svg = svg[:loc[1]] + " xmlns='" + svgNamespace + "'" + svg[loc[1]:]
		}
	}

	svg = strings.ReplaceAll(svg, `"`, "'")

	if end := strings.IndexByte(svg, '>'); end >= 0 {
		root := svg[:end]
		if loc := svgFillNone.FindStringIndex(root); loc != nil {
			svg = root[:loc[0]] + root[loc[1]:] + svg[end:]
		}
	}

	svg = svgBetweenTags.ReplaceAllString(svg, "><")
	svg = svgWhitespaceRuns.ReplaceAllString(svg, " ")

	return "data:image/svg+xml," + percentEncodeSVG(svg)
}

func percentEncodeSVG(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := range len(s) {
		c := s[i]
		if c < 0x20 || c >= 0x7F || strings.IndexByte(svgUnsafe, c) >= 0 {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
