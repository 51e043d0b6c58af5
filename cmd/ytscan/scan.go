package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/ytscan/internal/config"
	"github.com/nao1215/ytscan/internal/database"
	"github.com/nao1215/ytscan/internal/extract"
	ytlog "github.com/nao1215/ytscan/internal/log"
	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/pipeline"
	"github.com/nao1215/ytscan/internal/report"
	"github.com/nao1215/ytscan/internal/search"
	"github.com/nao1215/ytscan/internal/stats"
	"github.com/nao1215/ytscan/internal/youtube"
)

// errAllFailed is returned when no target of a run could be scanned.
var errAllFailed = errors.New("no target could be scanned")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan YouTube channels and videos",
		Long: `Scan fetches YouTube pages and extracts statistics from their ytInitialData.

For a channel it reports the name, subscribers and description, then opens
the latest videos one by one and sums their views, likes and comments.
For a video it reports the video statistics and the channel it belongs to.

URLs without a scheme are accepted (youtube.com/@name). Channel URLs may use
/@handle, /channel/ID, /c/name, /user/name or a bare /name.

Examples:
  # Scan a channel, analyzing its 20 latest videos
  ytscan scan youtube.com/@example

  # Analyze 50 videos and save a CSV report
  ytscan scan -d 50 -f csv https://www.youtube.com/@example

  # Scan a single video
  ytscan scan "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

  # Scan every URL listed in a file (10 videos per channel)
  ytscan scan --list urls.txt

  # Write a Markdown report to a chosen path
  ytscan scan -f markdown -o report.md youtube.com/@example

  # Go through a SOCKS5 proxy and limit requests to 0.5 per second
  ytscan scan --proxy 127.0.0.1:9050 --rps 0.5 youtube.com/@example`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("list", "l", "",
		"File with one URL per line (lines starting with # are ignored)")
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		fmt.Sprintf("Number of channel videos to analyze, 0 for all; --list uses %d unless set", config.DefaultListDepth))
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets scanned concurrently")
	cmd.Flags().StringP("format", "f", "",
		"Save a report file: text, csv, markdown or json")
	cmd.Flags().StringP("output", "o", "",
		"Report file path, or directory when several targets are scanned")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ytscan in current or home directory)")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Float64("rps", 0,
		"Maximum watch page requests per second (default: pause 1s after every 5 videos)")
	cmd.Flags().Duration("target-delay", config.DefaultTargetDelay,
		"Minimum spacing between the starts of two targets")
	cmd.Flags().StringSlice("lang", config.DefaultLanguages,
		"Preferred page languages, most preferred first")
	cmd.Flags().String("policy", "",
		"Lookup policy for empty values: skip-falsy or stop-on-present")
	cmd.Flags().String("user-agent", "",
		"Override the browser User-Agent")
	cmd.Flags().Bool("no-db", false,
		"Do not store the scan in the history database")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := ytlog.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the command flags, the target list and
// the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Depth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
		return nil, err
	}
	if cfg.TargetDelay, err = flags.GetDuration("target-delay"); err != nil {
		return nil, err
	}
	if cfg.Languages, err = flags.GetStringSlice("lang"); err != nil {
		return nil, err
	}
	if cfg.Policy, err = flags.GetString("policy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}

	format, err := flags.GetString("format")
	if err != nil {
		return nil, err
	}
	cfg.Format = format
	if canonical, ok := config.NormalizeFormat(format); ok {
		cfg.Format = canonical
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Targets = slices.Clone(args)
	listPath, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath != "" {
		listed, err := readTargetList(listPath)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, listed...)
		if !flags.Changed("depth") {
			cfg.Depth = config.DefaultListDepth
		}
	}

	// An explicit --config must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(cf, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// readTargetList reads one URL per line. Blank lines and lines starting
// with # are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return targets, nil
}

// runScan scans every target of cfg and prints the results to out.
func runScan(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	targets := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if u := youtube.NormalizeURL(t); u != "" {
			targets = append(targets, u)
		}
	}
	if len(targets) == 0 {
		return config.ErrNoTarget
	}

	languages, err := config.ParseLanguages(cfg.Languages)
	if err != nil {
		return err
	}
	policy, err := search.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}

	clientOpts := []youtube.ClientOption{
		youtube.WithTimeout(cfg.Timeout),
		youtube.WithLanguages(languages...),
		youtube.WithProxy(cfg.ProxyAddress),
		youtube.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, youtube.WithUserAgent(cfg.UserAgent))
	}
	if cfg.MaxBodySize > 0 {
		clientOpts = append(clientOpts, youtube.WithMaxBodySize(cfg.MaxBodySize))
	}
	client, err := youtube.NewClient(clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	var (
		units      stats.UnitTable
		vocabulary = extract.DefaultVocabulary
	)
	if cf := cfg.SiteConfigs; cf != nil {
		units = stats.UnitTable(cf.Units)
		vocabulary = extendVocabulary(vocabulary, cf.Vocabulary)
	}
	normalizer := stats.NewNormalizer(units)
	extractor := extract.New(
		extract.WithEngine(search.New(search.WithPolicy(policy))),
		extract.WithVocabulary(vocabulary),
		extract.WithNormalizer(normalizer),
	)

	var db *database.ScanDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	logger.Info("starting scan",
		"targets", len(targets),
		"depth", cfg.Depth,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	run := &scanRun{
		cfg:        cfg,
		db:         db,
		normalizer: normalizer,
		out:        out,
		logger:     logger,
		now:        time.Now,
	}
	factory := newPipelineFactory(cfg, client, extractor, normalizer, db, logger)
	return run.scanTargets(ctx, targets, factory)
}

// extendVocabulary appends the configured words to base.
func extendVocabulary(base extract.Vocabulary, extra config.VocabularyConfig) extract.Vocabulary {
	return extract.Vocabulary{
		Video:      append(slices.Clone(base.Video), extra.Video...),
		Subscriber: append(slices.Clone(base.Subscriber), extra.Subscriber...),
		Comment:    append(slices.Clone(base.Comment), extra.Comment...),
	}
}

// videoPacer returns the pacing of watch page fetches. One pacer is shared
// by all targets so a rate limit holds across a batch.
func videoPacer(cfg *config.Config) pipeline.Pacer {
	if cfg.RequestsPerSecond > 0 {
		return pipeline.RateLimit(cfg.RequestsPerSecond, 1)
	}
	return pipeline.EveryN(cfg.PauseEvery, cfg.Pause)
}

// targetPacer spaces target starts by delay. The limiter is shared by the
// batch workers, so the spacing holds at any concurrency.
func targetPacer(delay time.Duration) pipeline.Pacer {
	if delay <= 0 {
		return pipeline.NoPacing()
	}
	return pipeline.RateLimit(1/delay.Seconds(), 1)
}

// newPipelineFactory returns the factory building the pipeline of each
// target with its site settings applied.
func newPipelineFactory(
	cfg *config.Config,
	client *youtube.Client,
	extractor *extract.Extractor,
	normalizer stats.Normalizer,
	db *database.ScanDB,
	logger *slog.Logger,
) pipeline.Factory {
	var recorder pipeline.PageRecorder
	if db != nil {
		recorder = db
	}
	pacer := videoPacer(cfg)

	return func(target string) (*pipeline.Pipeline, *model.ScanReport, error) {
		var site config.SiteConfig
		if cfg.SiteConfigs != nil {
			site = cfg.SiteConfigs.GetSiteConfig(target)
		}
		depth := cfg.Depth
		if site.Depth != 0 {
			depth = site.Depth
		}
		deps := pipeline.Deps{
			Fetcher:    client.ForSite(site.Cookie, site.Headers),
			Recorder:   recorder,
			Extractor:  extractor,
			Normalizer: normalizer,
			Pacer:      pacer,
			Depth:      depth,
			Logger:     logger,
		}
		return pipeline.ForTarget(target, deps, pipeline.WithContinueOnError(true))
	}
}

// scanRun prints, saves and stores the reports of one scan command.
type scanRun struct {
	cfg        *config.Config
	db         *database.ScanDB
	normalizer stats.Normalizer
	out        io.Writer
	logger     *slog.Logger
	now        func() time.Time
}

// scanTargets scans targets through factory, handling each report as soon
// as its scan ends.
func (r *scanRun) scanTargets(ctx context.Context, targets []string, factory pipeline.Factory) error {
	multi := len(targets) > 1
	if multi {
		fmt.Fprintf(r.out, "Scanning %d targets (concurrency: %d)...\n", len(targets), r.cfg.BatchSize)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(r.cfg.BatchSize),
		pipeline.WithBatchLogger(r.logger),
		pipeline.WithTargetPacer(targetPacer(r.cfg.TargetDelay)),
	)
	console := report.NewSimpleWriter(r.out)
	start := r.now()

	var (
		mu     sync.Mutex
		failed int
	)
	err := bp.ProcessBatchWithCallback(ctx, targets, func(rep *model.ScanReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if multi {
			fmt.Fprintf(r.out, "\n[%d/%d] %s\n", index+1, len(targets), rep.Target)
		}
		if _, err := console.Write(rep); err != nil {
			r.logger.Error("failed to print report", "target", rep.Target, "error", err)
		}
		if !rep.Success {
			failed++
		}

		path, err := r.saveReportFile(rep, multi)
		if err != nil {
			r.logger.Error("failed to save report file", "target", rep.Target, "error", err)
			fmt.Fprintf(r.out, "Failed to save report: %v\n", err)
		} else if path != "" {
			fmt.Fprintf(r.out, "Report saved to %s\n", path)
		}

		if err := saveScanReport(context.WithoutCancel(ctx), r.db, rep, r.logger); err != nil {
			r.logger.Error("failed to save scan report", "target", rep.Target, "error", err)
		}
	})

	fmt.Fprintf(r.out, "\nScan completed in %s\n", r.now().Sub(start).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed == len(targets) {
		return errAllFailed
	}
	return nil
}

// saveReportFile writes rep in the configured format and returns the file
// path, or "" when no format is configured or rep has no scan type.
func (r *scanRun) saveReportFile(rep *model.ScanReport, multi bool) (string, error) {
	if r.cfg.Format == "" || rep.Type == "" {
		return "", nil
	}

	now := r.now()
	ext := reportExtension(r.cfg.Format)
	path := r.cfg.ReportFile
	switch {
	case path == "":
		path = uniquePath(report.FileName(rep, ext, now))
	case multi:
		path = uniquePath(filepath.Join(path, report.FileName(rep, ext, now)))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	opts := []report.Option{
		report.WithClock(func() time.Time { return now }),
		report.WithNormalizer(r.normalizer),
	}
	if _, err := newFileWriter(r.cfg.Format, f, opts...).Write(rep); err != nil {
		return "", err
	}
	return path, nil
}

// reportExtension returns the file extension of a canonical format name.
func reportExtension(format string) string {
	switch format {
	case config.FormatCSV:
		return report.ExtCSV
	case config.FormatMarkdown:
		return report.ExtMarkdown
	case config.FormatJSON:
		return report.ExtJSON
	default:
		return report.ExtText
	}
}

// newFileWriter returns the writer of a canonical format name.
func newFileWriter(format string, w io.Writer, opts ...report.Option) report.Writer {
	switch format {
	case config.FormatCSV:
		return report.NewCSVWriter(w, opts...)
	case config.FormatMarkdown:
		return report.NewMarkdownWriter(w, opts...)
	case config.FormatJSON:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	default:
		return report.NewTextWriter(w, opts...)
	}
}

// uniquePath returns path, or path with a counter before its extension
// when a file of that name exists. Targets scanned within the same second
// get the same timestamped name.
func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// saveScanReport stores report in db. A nil db is a no-op.
func saveScanReport(ctx context.Context, db *database.ScanDB, report *model.ScanReport, logger *slog.Logger) error {
	if db == nil || report.Type == "" {
		return nil
	}
	id, err := db.SaveScanReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}
	logger.Info("scan report saved to database", "target", report.Target, "id", id)
	return nil
}
