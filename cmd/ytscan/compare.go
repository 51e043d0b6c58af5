package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/ytscan/internal/config"
	"github.com/nao1215/ytscan/internal/database"
	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/stats"
	"github.com/nao1215/ytscan/internal/youtube"
)

// Trend directions of a comparison.
const (
	trendGrowing   = "growing"
	trendDeclining = "declining"
	trendUnchanged = "unchanged"
)

// maxVideoChanges limits the per video changes shown in text and Markdown.
const maxVideoChanges = 10

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare scan results with earlier scans",
		Long: `Compare shows how a channel or video changed between two stored scans.

It reads the scan history database and reports:
- the change of subscribers, views, likes and comments
- videos that appeared or disappeared from the analyzed list
- the videos whose view counts changed the most

The latest scan is compared with the one before it unless --with-scan-id or
--since selects another scan. Use 'ytscan scan' to record scans.

Examples:
  # Compare the latest two scans of a channel
  ytscan compare youtube.com/@example

  # List the scan history of a channel
  ytscan compare --list youtube.com/@example

  # Compare with a specific scan by ID
  ytscan compare --with-scan-id 5 youtube.com/@example

  # Compare with the first scan since a date
  ytscan compare --since 2025-01-01 youtube.com/@example

  # Output the comparison as JSON
  ytscan compare --json youtube.com/@example

  # List every scanned target
  ytscan compare --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List the scan history of the target")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List every target in the database")
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("with-scan-id", "since")

	return cmd
}

// compareOptions selects the scans to compare and the output format.
type compareOptions struct {
	withScanID int64
	since      string
	json       bool
	markdown   bool
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	listTargets, err := flags.GetBool("list-targets")
	if err != nil {
		return err
	}

	// Validate before opening the database.
	var target string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("a channel or video URL is required (use --list-targets to see scanned targets)")
		}
		target = youtube.NormalizeURL(args[0])
		if t := youtube.Classify(target); t != youtube.URLTypeVideo && !t.IsChannel() {
			return fmt.Errorf("%w: %s", youtube.ErrUnsupportedURL, args[0])
		}
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No scan history yet. Use 'ytscan scan <url>' to record a scan.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listTargets {
		return listScannedTargets(ctx, out, db)
	}

	listHistory, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, out, db, target)
	}

	var opts compareOptions
	if opts.withScanID, err = flags.GetInt64("with-scan-id"); err != nil {
		return err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	return runComparison(ctx, out, db, target, opts)
}

// listScannedTargets lists every target with stored scans.
func listScannedTargets(ctx context.Context, out io.Writer, db *database.ScanDB) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No scanned targets found in the database.")
		fmt.Fprintln(out, "\nUse 'ytscan scan <url>' to scan a channel or video.")
		return nil
	}

	fmt.Fprintf(out, "Scanned targets (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(out, "  • %s\n", t)
	}
	fmt.Fprintln(out, "\nUse 'ytscan compare --list <url>' to see the scan history of a target.")
	return nil
}

// listScanHistory lists the stored scans of target.
func listScanHistory(ctx context.Context, out io.Writer, db *database.ScanDB, target string) error {
	history, err := db.GetScanHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", target)
		fmt.Fprintln(out, "\nUse 'ytscan scan' to scan this target.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", target, len(history))
	fmt.Fprintf(out, "  %-6s  %-19s  %-6s  %s\n", "ID", "Date", "Status", "Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, meta := range history {
		status := "ok"
		if !meta.Success {
			status = "failed"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-6s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			status,
			formatSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'ytscan compare <url>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'ytscan compare --with-scan-id <id> <url>' to compare with a specific scan.")
	return nil
}

// formatSummary formats a stats summary for the history list.
func formatSummary(s database.StatsSummary) string {
	parts := []string{
		"videos " + strconv.Itoa(s.Videos),
		"views " + humanize.Comma(int64(s.Views)),
	}
	if s.HasSubscriber {
		parts = append(parts, "subscribers "+humanize.Comma(int64(s.Subscribers)))
	}
	return strings.Join(parts, ", ")
}

// runComparison compares the latest scan of target with the scan selected
// by opts and writes the result to out.
func runComparison(ctx context.Context, out io.Writer, db *database.ScanDB, target string, opts compareOptions) error {
	reports, err := db.GetScanHistory(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", target)
	}
	if len(reports) < 2 && opts.withScanID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	current := reports[0]
	var previous *model.ScanReport

	switch {
	case opts.withScanID > 0:
		previous, err = db.GetScanReportByID(ctx, opts.withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", opts.withScanID, err)
		}
		if previous == nil {
			return fmt.Errorf("scan with ID %d not found", opts.withScanID)
		}
		if previous.Target != target {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", opts.withScanID, previous.Target, target)
		}
	case opts.since != "":
		since, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// History is newest first; take the oldest scan at or after since.
		for _, r := range slices.Backward(reports) {
			if !r.DateScanned.Before(since) {
				previous = r
				break
			}
		}
		if previous == nil {
			return fmt.Errorf("no scans found since %s", opts.since)
		}
		if previous == current {
			return fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", opts.since)
		}
	default:
		previous = reports[1]
	}

	result := compareReports(previous, current)
	switch {
	case opts.json:
		return outputComparisonJSON(out, result)
	case opts.markdown:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// ComparisonResult is the difference between two scans of one target.
type ComparisonResult struct {
	// Target is the scanned URL.
	Target string `json:"target"`

	// Type is the scan type of the current scan.
	Type model.ScanType `json:"type"`

	// Name is the channel or video name of the current scan.
	Name string `json:"name"`

	// PreviousScan and CurrentScan describe the compared scans.
	PreviousScan ScanMetadata `json:"previous_scan"`
	CurrentScan  ScanMetadata `json:"current_scan"`

	// Changes are the deltas of the aggregated counts.
	Changes []StatChange `json:"changes"`

	// NewVideos are analyzed in the current scan but not in the previous one.
	NewVideos []VideoRef `json:"new_videos,omitempty"`

	// RemovedVideos were analyzed in the previous scan but not in the current one.
	RemovedVideos []VideoRef `json:"removed_videos,omitempty"`

	// VideoChanges are the view deltas of videos in both scans, largest first.
	VideoChanges []VideoChange `json:"video_changes,omitempty"`

	// Trend is "growing", "declining" or "unchanged".
	Trend string `json:"trend"`
}

// ScanMetadata describes one compared scan.
type ScanMetadata struct {
	DateScanned time.Time             `json:"date_scanned"`
	Success     bool                  `json:"success"`
	Summary     database.StatsSummary `json:"summary"`
}

// StatChange is the change of one aggregated count.
type StatChange struct {
	Metric   string  `json:"metric"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
}

// VideoRef identifies a video in a comparison.
type VideoRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// VideoChange is the view change of one video.
type VideoChange struct {
	VideoRef
	PreviousViews float64 `json:"previous_views"`
	CurrentViews  float64 `json:"current_views"`
	Delta         float64 `json:"delta"`
}

// compareReports computes the difference between two scans.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	prev := database.Summarize(previous)
	curr := database.Summarize(current)

	result := &ComparisonResult{
		Target:       current.Target,
		Type:         current.Type,
		Name:         current.DisplayName(),
		PreviousScan: ScanMetadata{DateScanned: previous.DateScanned, Success: previous.Success, Summary: prev},
		CurrentScan:  ScanMetadata{DateScanned: current.DateScanned, Success: current.Success, Summary: curr},
	}

	if prev.HasSubscriber || curr.HasSubscriber {
		result.Changes = append(result.Changes, statChange("Subscribers", prev.Subscribers, curr.Subscribers))
	}
	if prev.VideoCount > 0 || curr.VideoCount > 0 {
		result.Changes = append(result.Changes, statChange("Channel videos", float64(prev.VideoCount), float64(curr.VideoCount)))
	}
	result.Changes = append(result.Changes,
		statChange("Videos analyzed", float64(prev.Videos), float64(curr.Videos)),
		statChange("Views", prev.Views, curr.Views),
		statChange("Likes", prev.Likes, curr.Likes),
		statChange("Comments", prev.Comments, curr.Comments),
	)

	prevVideos := videosOf(previous)
	currVideos := videosOf(current)
	var normalizer stats.Normalizer

	for _, v := range currVideos {
		old, ok := findVideo(prevVideos, v.ID)
		if !ok {
			result.NewVideos = append(result.NewVideos, videoRef(v))
			continue
		}
		before, okBefore := normalizer.ParseField(old.Views)
		after, okAfter := normalizer.ParseField(v.Views)
		if okBefore && okAfter && before != after {
			result.VideoChanges = append(result.VideoChanges, VideoChange{
				VideoRef:      videoRef(v),
				PreviousViews: before,
				CurrentViews:  after,
				Delta:         after - before,
			})
		}
	}
	for _, v := range prevVideos {
		if _, ok := findVideo(currVideos, v.ID); !ok {
			result.RemovedVideos = append(result.RemovedVideos, videoRef(v))
		}
	}
	slices.SortStableFunc(result.VideoChanges, func(a, b VideoChange) int {
		return cmp.Compare(b.Delta, a.Delta)
	})

	result.Trend = calculateTrend(prev, curr)
	return result
}

func statChange(metric string, previous, current float64) StatChange {
	return StatChange{Metric: metric, Previous: previous, Current: current, Delta: current - previous}
}

// videosOf returns the videos a report describes.
func videosOf(r *model.ScanReport) []model.VideoRecord {
	switch {
	case r.Channel != nil:
		return r.Channel.Videos
	case r.Video != nil:
		return []model.VideoRecord{*r.Video}
	default:
		return nil
	}
}

func findVideo(videos []model.VideoRecord, id string) (model.VideoRecord, bool) {
	i := slices.IndexFunc(videos, func(v model.VideoRecord) bool { return v.ID == id })
	if i < 0 {
		return model.VideoRecord{}, false
	}
	return videos[i], true
}

func videoRef(v model.VideoRecord) VideoRef {
	return VideoRef{ID: v.ID, Title: model.Value(v.Title)}
}

// calculateTrend judges a channel by its subscribers when both scans have
// them, and by its views otherwise.
func calculateTrend(previous, current database.StatsSummary) string {
	before, after := previous.Views, current.Views
	if previous.HasSubscriber && current.HasSubscriber {
		before, after = previous.Subscribers, current.Subscribers
	}
	switch {
	case after > before:
		return trendGrowing
	case after < before:
		return trendDeclining
	default:
		return trendUnchanged
	}
}

func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1f("Scan Comparison: %s", result.Name)
	md.PlainText("")
	md.PlainTextf("**Target:** %s  ", result.Target)
	md.PlainTextf("**Trend:** %s", formatTrend(result.Trend))
	md.PlainText("")

	rows := [][]string{{
		"Date",
		result.PreviousScan.DateScanned.Format("2006-01-02 15:04"),
		result.CurrentScan.DateScanned.Format("2006-01-02 15:04"),
		"-",
	}}
	for _, c := range result.Changes {
		rows = append(rows, []string{c.Metric, formatCount(c.Previous), formatCount(c.Current), formatDelta(c.Delta)})
	}
	md.Table(markdown.TableSet{
		Header:    []string{"Metric", "Previous", "Current", "Change"},
		Alignment: []markdown.TableAlignment{markdown.AlignLeft, markdown.AlignRight, markdown.AlignRight, markdown.AlignRight},
		Rows:      rows,
	})
	md.PlainText("")

	if len(result.VideoChanges) > 0 {
		md.H2("Most Viewed Since Previous Scan")
		md.PlainText("")
		var vrows [][]string
		for _, v := range head(result.VideoChanges, maxVideoChanges) {
			vrows = append(vrows, []string{
				markdown.Link(videoTitle(v.VideoRef), youtube.WatchURL(v.ID)),
				formatCount(v.CurrentViews),
				formatDelta(v.Delta),
			})
		}
		md.Table(markdown.TableSet{
			Header:    []string{"Video", "Views", "Change"},
			Alignment: []markdown.TableAlignment{markdown.AlignLeft, markdown.AlignRight, markdown.AlignRight},
			Rows:      vrows,
		})
		md.PlainText("")
	}

	if len(result.NewVideos) > 0 {
		md.H2f("New Videos (%d)", len(result.NewVideos))
		md.PlainText("")
		md.BulletList(videoLinks(result.NewVideos)...)
		md.PlainText("")
	}
	if len(result.RemovedVideos) > 0 {
		md.H2f("No Longer Analyzed (%d)", len(result.RemovedVideos))
		md.PlainText("")
		md.BulletList(videoLinks(result.RemovedVideos)...)
		md.PlainText("")
	}

	return md.Build()
}

func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan Comparison: %s\n", result.Name)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Target: %s\n", result.Target)
	fmt.Fprintf(&sb, "\nTrend: %s\n", formatTrend(result.Trend))

	fmt.Fprintf(&sb, "\nPrevious scan: %s\n", result.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current scan:  %s\n", result.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"))

	sb.WriteString("\nStatistics:\n")
	fmt.Fprintf(&sb, "  %-16s  %14s  %14s  %12s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 62) + "\n")
	for _, c := range result.Changes {
		fmt.Fprintf(&sb, "  %-16s  %14s  %14s  %12s\n",
			c.Metric, formatCount(c.Previous), formatCount(c.Current), formatDelta(c.Delta))
	}

	if len(result.VideoChanges) > 0 {
		sb.WriteString("\nMost viewed since previous scan:\n")
		for _, v := range head(result.VideoChanges, maxVideoChanges) {
			fmt.Fprintf(&sb, "  %12s  %s\n", formatDelta(v.Delta), videoTitle(v.VideoRef))
		}
	}
	if len(result.NewVideos) > 0 {
		fmt.Fprintf(&sb, "\nNew Videos (%d):\n", len(result.NewVideos))
		for _, v := range result.NewVideos {
			fmt.Fprintf(&sb, "  [+] %s\n", videoTitle(v))
		}
	}
	if len(result.RemovedVideos) > 0 {
		fmt.Fprintf(&sb, "\nNo Longer Analyzed (%d):\n", len(result.RemovedVideos))
		for _, v := range result.RemovedVideos {
			fmt.Fprintf(&sb, "  [-] %s\n", videoTitle(v))
		}
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// formatTrend formats the trend direction for display.
func formatTrend(trend string) string {
	switch trend {
	case trendGrowing:
		return "GROWING"
	case trendDeclining:
		return "DECLINING"
	default:
		return "UNCHANGED"
	}
}

// formatCount formats a count with thousands separators.
func formatCount(f float64) string {
	return humanize.Comma(int64(f))
}

// formatDelta formats a delta with its sign.
func formatDelta(delta float64) string {
	if delta > 0 {
		return "+" + formatCount(delta)
	}
	return formatCount(delta)
}

func videoTitle(v VideoRef) string {
	if v.Title == "" {
		return v.ID
	}
	return v.Title
}

func videoLinks(videos []VideoRef) []string {
	links := make([]string, len(videos))
	for i, v := range videos {
		links[i] = markdown.Link(videoTitle(v), youtube.WatchURL(v.ID))
	}
	return links
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
