package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/siteicons/internal/config"
	"github.com/nao1215/siteicons/internal/database"
	"github.com/nao1215/siteicons/internal/discovery"
	"github.com/nao1215/siteicons/internal/fetch"
	"github.com/nao1215/siteicons/internal/log"
	"github.com/nao1215/siteicons/internal/manifest"
	"github.com/nao1215/siteicons/internal/model"
	"github.com/nao1215/siteicons/internal/report"
)

// addDiscoverFlags registers the flags of the discovery run.
func addDiscoverFlags(cmd *cobra.Command) {
	// Discovery behavior flags
	cmd.Flags().BoolP("fast", "f", false,
		"Stop at the first authoritative answer instead of running every strategy")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of sites discovered at once")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address for every request (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of bytes read from any response")
	cmd.Flags().Bool("debug", false,
		"Print the errors of skipped candidates (same as --verbose)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .siteicons in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the output to the specified file path (creates directories if needed)")
	cmd.Flags().Bool("save", false,
		"Store every discovery in the history database")
}

// runDiscoverCmd executes the discovery of the sites given as arguments.
func runDiscoverCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDiscover(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag reports whether --verbose or --debug is set.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose") //nolint:errcheck // flag is always registered on root
	}
	debug, _ := cmd.Flags().GetBool("debug") //nolint:errcheck // absent on subcommands
	return verbose || debug
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Fast, err = flags.GetBool("fast"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicitly named config file must exist; otherwise a missing file
	// means no site settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Targets = args
	return cfg, nil
}

// setupLogger creates a logger that masks credentials. verbose selects
// Debug level, otherwise Warn.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// runDiscover discovers every target and writes the reports to stdout or
// the report file. The returned error joins the failures of unusable seed
// URLs; the reports of the other sites are still written.
func runDiscover(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting discovery",
		"targets", cfg.Targets,
		"fast", cfg.Fast,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	bp := discovery.NewBatchProcessor(
		newFactory(cfg, newManifestCaches(), logger),
		discovery.WithConcurrency(cfg.Concurrency),
		discovery.WithFast(cfg.Fast),
		discovery.WithBatchLogger(logger),
	)

	reports, discoverErr := bp.ProcessBatch(ctx, cfg.Targets)

	if err := outputReport(cfg, reports, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	for _, r := range reports {
		if err := saveReport(context.WithoutCancel(ctx), db, r, logger); err != nil {
			logger.Error("failed to save discovery", "site", r.Site, "error", err)
		}
	}

	return discoverErr
}

// manifestCaches hands out one manifest cache per distinct cookie and header
// set, so a manifest fetched with one site's credentials is never served to
// a site configured with other ones.
type manifestCaches struct {
	mu     sync.Mutex
	caches map[string]*manifest.MemoCache
}

func newManifestCaches() *manifestCaches {
	return &manifestCaches{caches: make(map[string]*manifest.MemoCache)}
}

// forSite returns the cache shared by every site sending the same cookie
// and headers as siteConfig.
func (m *manifestCaches) forSite(siteConfig config.SiteConfig) *manifest.MemoCache {
	key := credentialsKey(siteConfig)

	m.mu.Lock()
	defer m.mu.Unlock()
	cache, ok := m.caches[key]
	if !ok {
		cache = manifest.NewMemoCache()
		m.caches[key] = cache
	}
	return cache
}

// credentialsKey identifies the cookie and headers of siteConfig. Header
// names are compared case-insensitively.
func credentialsKey(siteConfig config.SiteConfig) string {
	headers := make(map[string]string, len(siteConfig.Headers))
	for name, value := range siteConfig.Headers {
		headers[strings.ToLower(name)] = value
	}

	var b strings.Builder
	b.WriteString(siteConfig.Cookie)
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		b.WriteString("\n" + name + ": " + headers[name])
	}
	return b.String()
}

// newFactory returns a discovery.Factory giving every site its own HTTP
// client, carrying the cookie, headers and blacklist configured for the
// site's host. Sites with the same cookie and headers share a manifest cache.
func newFactory(cfg *config.Config, caches *manifestCaches, logger *slog.Logger) discovery.Factory {
	return func(site string) (*discovery.SiteIcons, error) {
		seed, err := discovery.NormalizeURL(site)
		if err != nil {
			return nil, err
		}
		siteConfig := cfg.SiteConfigFor(seed.Hostname())

		client, err := fetch.NewClient(
			fetch.WithTimeout(cfg.Timeout),
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithProxy(cfg.ProxyAddress),
			fetch.WithHeaders(siteConfig.Headers),
			fetch.WithCookie(siteConfig.Cookie),
			fetch.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}

		opts := []discovery.Option{
			discovery.WithManifestCache(caches.forSite(siteConfig)),
			discovery.WithLogger(logger),
		}
		if len(siteConfig.Blacklist) > 0 {
			isBlacklisted, err := discovery.NewGlobBlacklist(siteConfig.Blacklist)
			if err != nil {
				return nil, err
			}
			opts = append(opts, discovery.WithBlacklist(isBlacklisted))
		}
		return discovery.New(client, opts...), nil
	}
}

// outputReport writes the reports in the requested format.
func outputReport(cfg *config.Config, reports []*model.DiscoveryReport, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may hold URLs carrying site credentials.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	_, err := writer.Write(reports...)
	return err
}

// saveReport stores the report in the history database.
// If db is nil, this function is a no-op.
func saveReport(ctx context.Context, db *database.HistoryDB, r *model.DiscoveryReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveDiscovery(ctx, r)
	if err != nil {
		return err
	}

	logger.Info("discovery saved to database", "site", r.Site, "id", id)
	return nil
}
