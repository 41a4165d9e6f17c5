package decode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/siteicons/internal/model"
)

// viewBoxPattern captures the width and height of "min-x min-y width height".
var viewBoxPattern = regexp.MustCompile(`^\s*-?[\d.]+[\s,]+-?[\d.]+[\s,]+([\d.]+)[\s,]+([\d.]+)`)

// SVG reads the size of the root <svg> element. ok is false when the element
// has neither numeric width/height nor a usable viewBox.
//
// The tokenizer stops at the root element, so the rest of the document is
// never read.
func SVG(r io.Reader) (size model.IconSize, ok bool, err error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return model.IconSize{}, false, ErrInvalidSVG
			}
			return model.IconSize{}, false, fmt.Errorf("read svg: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			token := z.Token()
			if token.Data != "svg" {
				continue
			}
			size, ok := svgRootSize(token)
			return size, ok, nil
		default:
		}
	}
}

func svgRootSize(token html.Token) (model.IconSize, bool) {
	attrs := make(map[string]string, len(token.Attr))
	for _, attr := range token.Attr {
		attrs[strings.ToLower(attr.Key)] = attr.Val
	}

	width, wok := parseSVGLength(attrs["width"])
	height, hok := parseSVGLength(attrs["height"])
	if wok && hok {
		return model.NewIconSize(width, height), true
	}

	viewBox, ok := attrs["viewbox"]
	if !ok {
		return model.IconSize{}, false
	}
	m := viewBoxPattern.FindStringSubmatch(viewBox)
	if m == nil {
		return model.IconSize{}, false
	}
	width, wok = parseSVGLength(m[1])
	height, hok = parseSVGLength(m[2])
	if !wok || !hok {
		return model.IconSize{}, false
	}
	return model.NewIconSize(width, height), true
}

// parseSVGLength parses a plain number and rounds it. Values with units such
// as "100%" or "2em" are rejected.
func parseSVGLength(v string) (uint32, bool) {
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxUint32 {
		return 0, false
	}
	return uint32(math.Round(f)), true
}
