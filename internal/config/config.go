package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/siteicons/internal/fetch"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = fetch.DefaultTimeout

	// DefaultConcurrency is the number of sites discovered at once.
	DefaultConcurrency = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "siteicons"

	// DefaultUserAgent mimics a desktop browser; some sites serve no icons
	// to unknown clients.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the bytes read from any response.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize
)

// Config holds all configuration options for siteicons.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Concurrency is the number of sites discovered at once.
	Concurrency int

	// Fast stops each discovery at the first authoritative answer.
	Fast bool

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the file is searched for in the usual places.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// Targets is the list of site URLs to discover.
	Targets []string

	// SaveToDB stores every discovery in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/siteicons on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
		UserAgent:   DefaultUserAgent,
		Concurrency: DefaultConcurrency,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for siteicons.
// On Linux: ~/.local/share/siteicons
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for siteicons.
// On Linux: ~/.config/siteicons
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// SiteConfigFor returns the merged site configuration for host, or the zero
// SiteConfig when no file was loaded.
func (c *Config) SiteConfigFor(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}
