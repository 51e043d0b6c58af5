package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/ytscan/internal/search"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ytscan"

	// DefaultTimeout is the timeout of a single page request.
	DefaultTimeout = 10 * time.Second

	// DefaultDepth is how many videos of a channel are analyzed.
	DefaultDepth = 20

	// DefaultListDepth is the depth used for targets read from a list file
	// when --depth is not given explicitly.
	DefaultListDepth = 10

	// DefaultBatchSize is the number of targets scanned concurrently.
	// YouTube throttles bursts, so targets are scanned one at a time.
	DefaultBatchSize = 1

	// DefaultPauseEvery and DefaultPause pace watch page fetches within a
	// channel scan: after every DefaultPauseEvery videos the scan sleeps.
	DefaultPauseEvery = 5
	DefaultPause      = 1 * time.Second

	// DefaultTargetDelay is the minimum spacing between target starts of a batch.
	DefaultTargetDelay = 2 * time.Second

	// DefaultMaxBodySize limits how much of a page is read. Watch pages
	// with a large ytInitialData run to a few megabytes.
	DefaultMaxBodySize = 8 * 1024 * 1024 // 8MB
)

// Report output formats accepted by --format.
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// formatAliases maps accepted spellings to the canonical format name.
var formatAliases = map[string]string{
	"text":     FormatText,
	"txt":      FormatText,
	"csv":      FormatCSV,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"json":     FormatJSON,
}

// DefaultLanguages are the preferred page languages. Russian first keeps
// count suffixes in the form the default unit table knows.
var DefaultLanguages = []string{"ru-RU", "en-US"}

// Config holds all options of a scan run. It is filled from CLI flags and
// the configuration file and passed down explicitly.
type Config struct {
	// Targets are the channel and video URLs to scan, not yet normalized.
	Targets []string

	// Depth is the maximum number of channel videos to analyze.
	// Zero analyzes every video listed on the videos tab.
	Depth int

	// Timeout is the timeout of each HTTP request.
	Timeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of targets scanned concurrently.
	BatchSize int

	// ConfigFilePath is an explicit configuration file path. When empty,
	// the file is looked up as described by FindConfigFile.
	ConfigFilePath string

	// SiteConfigs is the loaded configuration file, nil when there is none.
	SiteConfigs *File

	// Format is the report file format (text, csv, markdown, json).
	// Empty means console output only.
	Format string

	// ReportFile is the report path. When Format is set and ReportFile is
	// empty a timestamped name is generated in the current directory.
	ReportFile string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// RequestsPerSecond switches pacing to a token bucket limiter when
	// positive. Otherwise PauseEvery and Pause are used.
	RequestsPerSecond float64

	// PauseEvery and Pause pace watch page fetches within a channel scan.
	PauseEvery int
	Pause      time.Duration

	// TargetDelay is the minimum spacing between target starts of a batch.
	TargetDelay time.Duration

	// UserAgent overrides the browser User-Agent when set.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Languages are BCP 47 tags sent in Accept-Language, most preferred first.
	Languages []string

	// Policy is the falsy value policy of the search engine
	// ("skip-falsy" or "stop-on-present").
	Policy string

	// DBDir is the directory of the scan history database.
	DBDir string

	// SaveToDB stores scan reports in the history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Depth:       DefaultDepth,
		Timeout:     DefaultTimeout,
		BatchSize:   DefaultBatchSize,
		PauseEvery:  DefaultPauseEvery,
		Pause:       DefaultPause,
		TargetDelay: DefaultTargetDelay,
		MaxBodySize: DefaultMaxBodySize,
		Languages:   slices.Clone(DefaultLanguages),
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for ytscan, where the history
// database lives.
// On Linux: ~/.local/share/ytscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ytscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// NormalizeFormat returns the canonical name of a report format, or ""
// with false when the format is unknown. An empty format is valid.
func NormalizeFormat(format string) (string, bool) {
	if format == "" {
		return "", true
	}
	canonical, ok := formatAliases[strings.ToLower(strings.TrimSpace(format))]
	return canonical, ok
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if _, ok := NormalizeFormat(c.Format); !ok {
		return ErrInvalidFormat
	}
	if c.RequestsPerSecond < 0 || c.PauseEvery < 0 || c.Pause < 0 || c.TargetDelay < 0 {
		return ErrInvalidPacing
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if _, err := ParseLanguages(c.Languages); err != nil {
		return err
	}
	if _, err := search.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.SiteConfigs != nil {
		if err := c.SiteConfigs.Validate(); err != nil {
			return err
		}
	}
	return nil
}
