// Package manifest loads the icons declared by a web app manifest.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteicons/internal/fetch"
	"github.com/nao1215/siteicons/internal/model"
)

// defaultConcurrency bounds parallel icon loads per manifest.
const defaultConcurrency = 8

// Getter is the fetch capability the loader needs.
type Getter interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*fetch.Response, error)
}

// IconLoader loads a single declared icon.
type IconLoader interface {
	Load(ctx context.Context, u *url.URL, kind model.IconKind, sizes string) (model.Icon, error)
}

// document is the part of a web app manifest we read.
type document struct {
	Icons []struct {
		Src   string `json:"src"`
		Sizes string `json:"sizes"`
	} `json:"icons"`
}

// Loader fetches manifests and loads their icons as app icons.
type Loader struct {
	client      Getter
	icons       IconLoader
	cache       Cache
	concurrency int
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache shares cache between loaders. Without it each Loader has its own.
func WithCache(cache Cache) Option {
	return func(l *Loader) {
		if cache != nil {
			l.cache = cache
		}
	}
}

// WithConcurrency bounds parallel icon loads per manifest.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Loader.
func New(client Getter, icons IconLoader, opts ...Option) *Loader {
	l := &Loader{
		client:      client,
		icons:       icons,
		cache:       NewMemoCache(),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the icons declared by the manifest at u, in declaration
// order. Icons that fail to load are left out. Concurrent and repeated calls
// for the same URL share one fetch.
func (l *Loader) Load(ctx context.Context, u *url.URL) ([]model.Icon, error) {
	return l.cache.Do(ctx, u.String(), func(ctx context.Context) ([]model.Icon, error) {
		return l.load(ctx, u)
	})
}

func (l *Loader) load(ctx context.Context, u *url.URL) ([]model.Icon, error) {
	resp, err := l.client.Get(ctx, u.String(), map[string]string{
		"Accept": "application/manifest+json, application/json;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", u, err)
	}

	loaded := make([]*model.Icon, len(doc.Icons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, declared := range doc.Icons {
		src := strings.TrimSpace(declared.Src)
		if src == "" {
			continue
		}
		target, err := u.Parse(src)
		if err != nil {
			l.logger.Debug("unresolvable manifest icon", "manifest", u.String(), "src", src, "error", err)
			continue
		}

		g.Go(func() error {
			icon, err := l.icons.Load(gctx, target, model.KindAppIcon, declared.Sizes)
			if err != nil {
				l.logger.Debug("manifest icon load failed", "url", target.String(), "error", err)
				return nil
			}
			loaded[i] = &icon
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	icons := make([]model.Icon, 0, len(loaded))
	for _, icon := range loaded {
		if icon != nil {
			icons = append(icons, *icon)
		}
	}

	l.logger.Debug("manifest loaded", "url", u.String(), "declared", len(doc.Icons), "icons", len(icons))
	return icons, nil
}
