package discovery

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteicons/internal/broadcast"
	"github.com/nao1215/siteicons/internal/crawler"
	"github.com/nao1215/siteicons/internal/loader"
	"github.com/nao1215/siteicons/internal/manifest"
	"github.com/nao1215/siteicons/internal/model"
)

// SiteIcons discovers the icons of websites through one fetch client.
type SiteIcons struct {
	client    loader.Getter
	icons     *loader.Loader
	manifests *manifest.Loader
	head      *crawler.HeadScanner
	logo      *crawler.LogoFinder
	blacklist func(*url.URL) bool
	logger    *slog.Logger
}

type settings struct {
	blacklist func(*url.URL) bool
	cache     manifest.Cache
	logger    *slog.Logger
}

// Option configures SiteIcons.
type Option func(*settings)

// WithBlacklist skips pages and logo candidates whose URL isBlacklisted
// reports true for.
func WithBlacklist(isBlacklisted func(*url.URL) bool) Option {
	return func(s *settings) {
		s.blacklist = isBlacklisted
	}
}

// WithManifestCache shares a manifest cache, typically between the SiteIcons
// of every site processed by one run.
func WithManifestCache(cache manifest.Cache) Option {
	return func(s *settings) {
		s.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a SiteIcons fetching through client.
func New(client loader.Getter, opts ...Option) *SiteIcons {
	cfg := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blacklist == nil {
		cfg.blacklist = func(*url.URL) bool { return false }
	}
	if cfg.cache == nil {
		cfg.cache = manifest.NewMemoCache()
	}

	icons := loader.New(client, loader.WithLogger(cfg.logger))
	manifests := manifest.New(client, icons,
		manifest.WithCache(cfg.cache),
		manifest.WithLogger(cfg.logger),
	)

	return &SiteIcons{
		client:    client,
		icons:     icons,
		manifests: manifests,
		head:      crawler.NewHeadScanner(icons, manifests, crawler.WithLogger(cfg.logger)),
		logo: crawler.NewLogoFinder(icons,
			crawler.WithLogger(cfg.logger),
			crawler.WithBlacklist(cfg.blacklist),
		),
		blacklist: cfg.blacklist,
		logger:    cfg.logger,
	}
}

// IsBlacklisted reports whether u is excluded from discovery.
func (s *SiteIcons) IsBlacklisted(u *url.URL) bool {
	return s.blacklist(u)
}

// AddIcon loads the icon at u and adds it to set. If set already holds u
// under a lower priority kind, the kind is upgraded.
func (s *SiteIcons) AddIcon(ctx context.Context, set *model.IconSet, u *url.URL, kind model.IconKind, sizes string) error {
	icon, err := s.icons.Load(ctx, u, kind, sizes)
	if err != nil {
		return err
	}
	set.Add(icon)
	return nil
}

// Discover runs LoadWebsite and records the outcome in a report. The error
// is also recorded in the report.
func (s *SiteIcons) Discover(ctx context.Context, rawURL string, fast bool) (*model.DiscoveryReport, error) {
	report := model.NewDiscoveryReport(rawURL)
	report.Fast = fast
	if site, err := NormalizeURL(rawURL); err == nil {
		report.Site = site.String()
	}

	start := time.Now()
	icons, err := s.LoadWebsite(ctx, rawURL, fast)
	report.Duration = time.Since(start)
	if err != nil {
		report.Error = err.Error()
	}
	if icons != nil {
		report.Icons = icons
	}
	return report, err
}

// LoadWebsite returns the icons of the site at rawURL, most preferred first.
//
// Only a malformed seed URL is an error. A site that cannot be reached, or
// whose candidates all fail, yields an empty result. When fast is true the
// search stops as soon as a manifest or the page head has answered.
func (s *SiteIcons) LoadWebsite(ctx context.Context, rawURL string, fast bool) ([]model.Icon, error) {
	site, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	page := sync.OnceValue(func() *htmlSource {
		return s.openPage(ctx, site)
	})

	results := make(chan outcome, len(Strategies))
	for _, strategy := range Strategies {
		go func() {
			icons := s.run(ctx, strategy, site, page)
			s.logger.Debug("strategy completed", "site", site.String(), "strategy", strategy.String(), "icons", len(icons))
			results <- outcome{strategy: strategy, icons: icons}
		}()
	}

	set := model.NewIconSet()
	var r race
	for range len(Strategies) {
		var o outcome
		select {
		case o = <-results:
		case <-ctx.Done():
			return set.Entries(), ctx.Err()
		}

		set.Add(o.icons...)
		if r.record(o) && fast {
			s.logger.Debug("best match found", "site", site.String(), "strategy", o.strategy.String())
			break
		}
	}
	return set.Entries(), nil
}

func (s *SiteIcons) run(ctx context.Context, strategy Strategy, site *url.URL, page func() *htmlSource) []model.Icon {
	switch strategy {
	case StrategyHeadTags:
		p := page()
		if p == nil {
			return nil
		}
		return s.head.Scan(ctx, p.url, p.head.Reader(ctx))

	case StrategySiteLogo:
		p := page()
		if p == nil {
			return nil
		}
		select {
		case <-p.body.Done():
		case <-ctx.Done():
			return nil
		}
		if err := p.body.Err(); err != nil {
			s.logger.Debug("page body incomplete", "url", p.url.String(), "error", err)
			return nil
		}
		icon, err := s.logo.Find(ctx, p.url, p.logo.Reader(ctx))
		if err != nil {
			s.logger.Debug("site logo not found", "url", p.url.String(), "error", err)
			return nil
		}
		return []model.Icon{icon}

	case StrategyDefaultManifest:
		icons, _ := firstSuccess(ctx, manifestURLs(site), func(ctx context.Context, u *url.URL) ([]model.Icon, bool) {
			icons, err := s.manifests.Load(ctx, u)
			if err != nil {
				s.logger.Debug("default manifest failed", "url", u.String(), "error", err)
				return nil, false
			}
			return icons, len(icons) > 0
		})
		return icons

	case StrategyDefaultFavicon:
		icon, ok := firstSuccess(ctx, faviconURLs(site), func(ctx context.Context, u *url.URL) (model.Icon, bool) {
			icon, err := s.icons.Load(ctx, u, model.KindSiteFavicon, "")
			if err != nil {
				s.logger.Debug("default favicon failed", "url", u.String(), "error", err)
				return model.Icon{}, false
			}
			return icon, true
		})
		if !ok {
			return nil
		}
		return []model.Icon{icon}
	}
	return nil
}

// firstSuccess probes every candidate concurrently and returns the result of
// the first one, in list order, that succeeded.
func firstSuccess[T any](ctx context.Context, candidates []*url.URL, probe func(context.Context, *url.URL) (T, bool)) (T, bool) {
	type result struct {
		value T
		ok    bool
	}
	results := make([]result, len(candidates))

	var g errgroup.Group
	for i, u := range candidates {
		g.Go(func() error {
			value, ok := probe(ctx, u)
			results[i] = result{value: value, ok: ok}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probes never return errors

	for _, r := range results {
		if r.ok {
			return r.value, true
		}
	}
	var zero T
	return zero, false
}

// htmlSource is the fetched page, shared by the head and logo strategies.
type htmlSource struct {
	// url is the final page URL after redirects.
	url  *url.URL
	body *broadcast.Broadcaster
	head *broadcast.Subscriber
	logo *broadcast.Subscriber
}

// openPage fetches the page and starts publishing its body. It returns nil
// when the page cannot be fetched or redirects to a blacklisted URL.
func (s *SiteIcons) openPage(ctx context.Context, site *url.URL) *htmlSource {
	resp, err := s.client.Get(ctx, site.String(), map[string]string{"Accept": "text/html"})
	if err != nil {
		s.logger.Debug("page unavailable", "url", site.String(), "error", err)
		return nil
	}
	if s.IsBlacklisted(resp.URL) {
		resp.Body.Close()
		s.logger.Debug("page blacklisted", "url", resp.URL.String())
		return nil
	}

	b := broadcast.New()
	src := &htmlSource{
		url:  resp.URL,
		body: b,
		head: b.Subscribe(),
		logo: b.Subscribe(),
	}
	go func() {
		defer resp.Body.Close()
		if err := b.Publish(ctx, resp.Body); err != nil {
			s.logger.Debug("page body read failed", "url", resp.URL.String(), "error", err)
		}
	}()
	return src
}
