package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/nao1215/siteicons/internal/model"
)

// ErrNoSiteLogo is returned when no element on the page qualifies as a logo.
var ErrNoSiteLogo = errors.New("no site logo found")

// IconLoader loads a single icon.
type IconLoader interface {
	Load(ctx context.Context, u *url.URL, kind model.IconKind, sizes string) (model.Icon, error)
}

// ManifestLoader loads every icon declared by a web app manifest.
type ManifestLoader interface {
	Load(ctx context.Context, u *url.URL) ([]model.Icon, error)
}

// options are shared by HeadScanner and LogoFinder.
type options struct {
	logger    *slog.Logger
	blacklist func(*url.URL) bool
}

// Option configures a HeadScanner or LogoFinder.
type Option func(*options)

// WithLogger sets the logger used for absorbed per-candidate failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBlacklist drops logo candidates whose URL is blacklisted.
func WithBlacklist(isBlacklisted func(*url.URL) bool) Option {
	return func(o *options) {
		o.blacklist = isBlacklisted
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:    slog.Default(),
		blacklist: func(*url.URL) bool { return false },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.blacklist == nil {
		o.blacklist = func(*url.URL) bool { return false }
	}
	return o
}
