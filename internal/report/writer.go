package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/stats"
)

// Writer writes a scan report to its destination.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.ScanReport) (int, error)
}

// MultiWriter writes a report to several Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every writer. It stops at the first error.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Option configures the file writers.
type Option func(*baseWriter)

// WithClock sets the clock used for the "Generated" stamp.
func WithClock(now func() time.Time) Option {
	return func(b *baseWriter) {
		if now != nil {
			b.now = now
		}
	}
}

// WithNormalizer sets the normalizer used to read counts, e.g. for the
// view share chart of the Markdown report.
func WithNormalizer(n stats.Normalizer) Option {
	return func(b *baseWriter) {
		b.normalizer = n
	}
}

// baseWriter holds what all writers share.
type baseWriter struct {
	output     io.Writer
	now        func() time.Time
	normalizer stats.Normalizer
}

func newBaseWriter(output io.Writer, opts ...Option) baseWriter {
	b := baseWriter{output: output, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// generated returns the generation stamp.
func (b baseWriter) generated() string {
	return b.now().Format("2006-01-02 15:04:05")
}

// Extensions of the file formats.
const (
	ExtText     = "txt"
	ExtCSV      = "csv"
	ExtMarkdown = "md"
	ExtJSON     = "json"
)

// FileName returns the name a report file is saved under, e.g.
// youtube_channel_scan_20240131_150405.csv.
func FileName(report *model.ScanReport, ext string, now time.Time) string {
	kind := "channel"
	if report.Type == model.ScanTypeVideo {
		kind = "video"
	}
	return fmt.Sprintf("youtube_%s_scan_%s.%s", kind, now.Format("20060102_150405"), ext)
}

// formatTotal prints an aggregated count with thousands separators.
func formatTotal(f float64) string {
	return humanize.Comma(int64(f))
}

// orDefault returns *p, or def when p is nil.
func orDefault(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// cells measures terminal columns independently of the locale.
var cells = &runewidth.Condition{}

// truncate shortens s to maxWidth terminal columns, ending it with "...".
func truncate(s string, maxWidth int) string {
	return cells.Truncate(s, maxWidth, "...")
}

// wrap breaks s into lines of at most width columns at spaces. Words
// longer than width get a line of their own.
func wrap(s string, width int) []string {
	var (
		lines []string
		line  strings.Builder
		used  int
	)
	for _, word := range strings.Fields(s) {
		w := cells.StringWidth(word)
		if used > 0 && used+1+w > width {
			lines = append(lines, line.String())
			line.Reset()
			used = 0
		}
		if used > 0 {
			line.WriteByte(' ')
			used++
		}
		line.WriteString(word)
		used += w
	}
	if used > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// videoCount is the number of videos a channel advertises, or the number
// found when the header carried none.
func videoCount(c *model.ChannelRecord) int {
	if c.VideoCount != nil {
		return *c.VideoCount
	}
	return len(c.Videos)
}
