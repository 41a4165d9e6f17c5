package crawler

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/siteicons/internal/model"
)

// logoSelector lists every element that may be the site logo. Matches come
// back in document order.
var logoSelector = strings.Join([]string{
	"a[href='/'] img, a[href='/'] svg",
	"header img, header svg",
	"img[src*=logo]",
	"img[alt*=logo], svg[alt*=logo]",
	"*[class*=logo] img, *[class*=logo] svg",
	"*[id*=logo] img, *[id*=logo] svg",
	"img[class*=logo], svg[class*=logo]",
	"img[id*=logo], svg[id*=logo]",
}, ", ")

var (
	// logoWord matches "logo" but not "logos".
	logoWord = regexp.MustCompile(`logo([^s]|$)`)
	// navigation matches containers whose images are not the logo.
	navigation = regexp.MustCompile(`menu|search`)
)

// Logo weights.
const (
	weightInHeader    = 2
	weightFirst       = 1
	weightLinksHome   = 5
	weightLogoClassID = 3
	weightLogoAlt     = 2
	weightLogoSrc     = 1
	weightSiteNameAlt = 10
)

// HTML names used when scoring candidates.
const (
	elementNameImg     = "img"
	elementNameSVG     = "svg"
	attributeHref      = "href"
	attributeAlt       = "alt"
	attributeSrc       = "src"
	attributeClassName = "class"
	attributeID        = "id"
)

// LogoFinder picks the most likely logo image from a full page.
type LogoFinder struct {
	icons IconLoader
	opts  options
}

// NewLogoFinder returns a LogoFinder that loads the chosen logo with icons.
func NewLogoFinder(icons IconLoader, opts ...Option) *LogoFinder {
	return &LogoFinder{icons: icons, opts: newOptions(opts)}
}

// candidate is a scored logo element.
type candidate struct {
	url    *url.URL
	tag    string
	weight int
}

// Find parses body completely, scores every candidate and loads the winner
// as a site logo.
func (f *LogoFinder) Find(ctx context.Context, pageURL *url.URL, body io.Reader) (model.Icon, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return model.Icon{}, fmt.Errorf("parse page: %w", err)
	}

	chosen, ok := pickLogo(f.candidates(pageURL, doc))
	if !ok {
		return model.Icon{}, ErrNoSiteLogo
	}
	return f.icons.Load(ctx, chosen.url, model.KindSiteLogo, "")
}

// candidates scores every element matched by logoSelector, dropping those
// inside navigation, without a usable URL, or blacklisted.
func (f *LogoFinder) candidates(pageURL *url.URL, doc *goquery.Document) []candidate {
	siteName := siteNameSegments(pageURL)

	var found []candidate
	doc.Find(logoSelector).Each(func(i int, el *goquery.Selection) {
		ancestors := el.Parents()
		if anyAttrMatches(ancestors, attributeClassName, navigation.MatchString) ||
			anyAttrMatches(ancestors, attributeID, navigation.MatchString) {
			return
		}
		self := ancestors.AddSelection(el)

		weight := 0
		if ancestors.Filter("header").Length() > 0 {
			weight += weightInHeader
		}
		if i == 0 {
			weight += weightFirst
		}
		if anyAttrMatches(self, attributeHref, func(v string) bool { return v == "/" }) {
			weight += weightLinksHome
		}
		if anyAttrMatches(self, attributeClassName, logoWord.MatchString) ||
			anyAttrMatches(self, attributeID, logoWord.MatchString) {
			weight += weightLogoClassID
		}
		if anyAttrMatches(self, attributeAlt, logoWord.MatchString) {
			weight += weightLogoAlt
		}
		if anyAttrMatches(self, attributeSrc, logoWord.MatchString) {
			weight += weightLogoSrc
		}
		if len(siteName) > 0 && anyAttrMatches(self, attributeAlt, func(alt string) bool {
			return slices.ContainsFunc(siteName, func(segment string) bool {
				return strings.Contains(alt, segment)
			})
		}) {
			weight += weightSiteNameAlt
		}

		tag := goquery.NodeName(el)
		target, ok := f.resolve(pageURL, el, tag)
		if !ok {
			return
		}
		if f.opts.blacklist(target) {
			f.opts.logger.Debug("logo candidate blacklisted", "url", target.String())
			return
		}

		found = append(found, candidate{url: target, tag: tag, weight: weight})
	})
	return found
}

// resolve returns the loadable URL for a candidate: a data URI for inline
// SVG, otherwise the resolved src.
func (f *LogoFinder) resolve(pageURL *url.URL, el *goquery.Selection, tag string) (*url.URL, bool) {
	if tag == elementNameSVG {
		markup, err := goquery.OuterHtml(el)
		if err != nil {
			return nil, false
		}
		u, err := url.Parse(EncodeSVG(markup))
		if err != nil {
			f.opts.logger.Debug("inline svg not encodable", "error", err)
			return nil, false
		}
		return u, true
	}

	src, ok := el.Attr(attributeSrc)
	if !ok || strings.TrimSpace(src) == "" {
		return nil, false
	}
	u, err := pageURL.Parse(strings.TrimSpace(src))
	if err != nil {
		return nil, false
	}
	return u, true
}

// pickLogo sorts by weight and prefers an <img> among the top-weighted
// candidates, falling back to the first candidate.
func pickLogo(found []candidate) (candidate, bool) {
	if len(found) == 0 {
		return candidate{}, false
	}
	slices.SortStableFunc(found, func(a, b candidate) int {
		return b.weight - a.weight
	})

	top := found[0].weight
	for _, c := range found {
		if c.weight != top {
			break
		}
		if c.tag == elementNameImg {
			return c, true
		}
	}
	return found[0], true
}

// anyAttrMatches reports whether any element in sel has attr with a
// lowercased value accepted by match.
func anyAttrMatches(sel *goquery.Selection, attr string, match func(string) bool) bool {
	matched := false
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(attr); ok && match(strings.ToLower(v)) {
			matched = true
			return false
		}
		return true
	})
	return matched
}

// siteNameSegments returns the hyphen-separated parts of the registered
// domain name without its public suffix, e.g. ["my", "shop"] for
// www.my-shop.co.uk. IP hosts have no site name.
func siteNameSegments(pageURL *url.URL) []string {
	host := strings.ToLower(pageURL.Hostname())
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}
	registered, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return nil
	}
	suffix, _ := publicsuffix.PublicSuffix(registered)
	name := strings.TrimSuffix(registered, "."+suffix)

	var segments []string
	for _, segment := range strings.Split(name, "-") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
