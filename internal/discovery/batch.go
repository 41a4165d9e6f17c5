package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteicons/internal/model"
)

// Factory returns the SiteIcons used for one seed URL. It is called once per
// seed, so per-site settings such as headers can differ.
type Factory func(site string) (*SiteIcons, error)

// BatchProcessor discovers the icons of many sites concurrently.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	fast        bool
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger used for batch-level logging.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites processed at once.
// Default is 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithFast enables the best-match short-circuit for every site.
func WithFast(fast bool) BatchOption {
	return func(b *BatchProcessor) {
		b.fast = fast
	}
}

// NewBatchProcessor returns a BatchProcessor building a SiteIcons per seed
// with factory.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch discovers the icons of every site. Reports are returned in
// input order, one per site, even for sites that failed. The error joins the
// per-site failures, or is the context error when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []string) ([]*model.DiscoveryReport, error) {
	bp.logger.Debug("starting batch", "sites", len(sites), "concurrency", bp.concurrency)
	start := time.Now()

	reports := make([]*model.DiscoveryReport, len(sites))
	errs := make([]error, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			si, err := bp.factory(site)
			if err != nil {
				report := model.NewDiscoveryReport(site)
				report.Fast = bp.fast
				report.Error = err.Error()
				reports[i] = report
				errs[i] = fmt.Errorf("%s: %w", site, err)
				return nil
			}

			report, err := si.Discover(gctx, site, bp.fast)
			reports[i] = report
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", site, err)
			}

			bp.logger.Debug("site completed",
				"site", report.Site,
				"index", i+1,
				"total", len(sites),
				"icons", len(report.Icons),
				"duration", report.Duration,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return compact(reports), err
	}
	if err := ctx.Err(); err != nil {
		return compact(reports), err
	}

	bp.logger.Debug("batch completed", "sites", len(sites), "duration", time.Since(start))
	return reports, errors.Join(errs...)
}

// compact drops the slots of sites that never started.
func compact(reports []*model.DiscoveryReport) []*model.DiscoveryReport {
	out := make([]*model.DiscoveryReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
