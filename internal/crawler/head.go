package crawler

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/siteicons/internal/model"
)

// HeadScanner extracts icon and manifest links from the <head> of a page
// while the page is still downloading.
type HeadScanner struct {
	icons     IconLoader
	manifests ManifestLoader
	opts      options
}

// NewHeadScanner returns a scanner that loads icons with icons and
// manifests with manifests.
func NewHeadScanner(icons IconLoader, manifests ManifestLoader, opts ...Option) *HeadScanner {
	return &HeadScanner{icons: icons, manifests: manifests, opts: newOptions(opts)}
}

// future is the eventual result of one launched load.
type future struct {
	done  chan struct{}
	icons []model.Icon
}

func (f *future) wait() []model.Icon {
	<-f.done
	return f.icons
}

// Scan tokenizes body until </head>, <body> or end of stream.
//
// Every icon or manifest link starts loading in its own goroutine the
// moment its tag is seen, so those fetches overlap with the rest of the
// download. Once the head has ended, Scan waits for every launched load and
// returns their icons in document order. Failed loads contribute nothing.
func (s *HeadScanner) Scan(ctx context.Context, pageURL *url.URL, body io.Reader) []model.Icon {
	var futures []*future
	z := html.NewTokenizer(body)

scan:
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				s.opts.logger.Debug("head scan stopped", "url", pageURL.String(), "error", err)
			}
			break scan
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Head {
				break scan
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Body:
				break scan
			case atom.Link:
				if hasAttr {
					futures = append(futures, s.launch(ctx, pageURL, linkAttrs(z))...)
				}
			}
		default:
		}
	}

	var icons []model.Icon
	for _, f := range futures {
		icons = append(icons, f.wait()...)
	}
	return icons
}

// linkAttrs collects the attributes of the current tag with lowercased keys.
func linkAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			return attrs
		}
	}
}

// launch starts the loads a single <link> asks for.
func (s *HeadScanner) launch(ctx context.Context, pageURL *url.URL, attrs map[string]string) []*future {
	rel := strings.ToLower(attrs["rel"])
	href := strings.TrimSpace(attrs["href"])
	if rel == "" || href == "" {
		return nil
	}

	target, err := pageURL.Parse(href)
	if err != nil {
		s.opts.logger.Debug("unresolvable link href", "href", href, "error", err)
		return nil
	}

	var futures []*future
	for _, token := range strings.Fields(rel) {
		switch token {
		case "manifest":
			futures = append(futures, s.goManifest(ctx, target))
		case "icon", "apple-touch-icon", "apple-touch-icon-precomposed":
			kind := model.KindSiteFavicon
			if strings.Contains(rel, "apple-touch-icon") {
				kind = model.KindAppIcon
			}
			futures = append(futures, s.goIcon(ctx, target, kind, attrs["sizes"]))
		}
	}
	return futures
}

func (s *HeadScanner) goIcon(ctx context.Context, u *url.URL, kind model.IconKind, sizes string) *future {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		icon, err := s.icons.Load(ctx, u, kind, sizes)
		if err != nil {
			s.opts.logger.Debug("icon load failed", "url", u.String(), "kind", kind.String(), "error", err)
			return
		}
		f.icons = []model.Icon{icon}
	}()
	return f
}

func (s *HeadScanner) goManifest(ctx context.Context, u *url.URL) *future {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		icons, err := s.manifests.Load(ctx, u)
		if err != nil {
			s.opts.logger.Debug("manifest load failed", "url", u.String(), "error", err)
			return
		}
		f.icons = icons
	}()
	return f
}
