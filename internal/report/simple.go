package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/ytscan/internal/model"
)

// Console layout limits.
const (
	DefaultVideoLimit   = 5
	consoleRuleWidth    = 70
	descriptionMaxWidth = 200
	descriptionWrap     = 65
	titleMaxWidth       = 40
)

// SimpleWriter prints the console summary of a scan: the entity, its
// totals and the first few videos.
type SimpleWriter struct {
	baseWriter

	// videoLimit is how many videos of a channel are listed. <= 0 lists all.
	videoLimit int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVideoLimit sets how many videos of a channel are listed.
func WithVideoLimit(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.videoLimit = n
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		videoLimit: DefaultVideoLimit,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints the summary. A failed scan prints its error only.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	if !report.Success {
		fmt.Fprintf(&sb, "Scan failed: %s\n", report.Target)
		if report.ErrorMessage != "" {
			fmt.Fprintf(&sb, "   Error: %s\n", report.ErrorMessage)
		}
		return io.WriteString(w.output, sb.String())
	}

	rule := strings.Repeat("═", consoleRuleWidth)
	sb.WriteString("\n" + rule + "\n")
	switch report.Type {
	case model.ScanTypeChannel:
		sb.WriteString("CHANNEL SCAN RESULTS\n")
		sb.WriteString(rule + "\n")
		w.writeChannel(&sb, report)
	case model.ScanTypeVideo:
		sb.WriteString("VIDEO SCAN RESULTS\n")
		sb.WriteString(rule + "\n")
		w.writeVideo(&sb, report)
	}
	if report.TimedOut {
		sb.WriteString("\nWARNING: the scan timed out, results are partial\n")
	} else if report.ErrorMessage != "" {
		fmt.Fprintf(&sb, "\nWARNING: %s\n", report.ErrorMessage)
	}
	sb.WriteString(rule + "\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeChannel(sb *strings.Builder, report *model.ScanReport) {
	c := report.Channel

	fmt.Fprintf(sb, "\nChannel:     %s\n", orDefault(c.Name, "Unknown"))
	fmt.Fprintf(sb, "URL:         %s\n", c.URL)
	fmt.Fprintf(sb, "Subscribers: %s\n", orDefault(c.Subscribers, "no data"))
	fmt.Fprintf(sb, "Videos:      %d\n", videoCount(c))

	if desc := model.Value(c.Description); desc != "" {
		sb.WriteString("\nDescription:\n")
		for _, line := range wrap(truncate(desc, descriptionMaxWidth), descriptionWrap) {
			fmt.Fprintf(sb, "   %s\n", line)
		}
	}

	if s := report.Stats; s != nil {
		sb.WriteString("\nTotals:\n")
		fmt.Fprintf(sb, "   Videos analyzed: %d\n", s.TotalVideos)
		fmt.Fprintf(sb, "   Views:           %s\n", formatTotal(s.TotalViews))
		fmt.Fprintf(sb, "   Likes:           %s\n", formatTotal(s.TotalLikes))
		fmt.Fprintf(sb, "   Comments:        %s\n", formatTotal(s.TotalComments))
	}

	videos := c.Videos
	if w.videoLimit > 0 && len(videos) > w.videoLimit {
		videos = videos[:w.videoLimit]
	}
	if len(videos) == 0 {
		return
	}
	sb.WriteString("\nLatest videos:\n")
	for i, v := range videos {
		fmt.Fprintf(sb, "\n   %d. %s\n", i+1, truncate(orDefault(v.Title, "Untitled"), titleMaxWidth))
		fmt.Fprintf(sb, "      %s\n", v.URL)
		writeField(sb, "      Published: ", v.Published)
		writeField(sb, "      Views:     ", v.Views)
		writeField(sb, "      Likes:     ", v.Likes)
		writeField(sb, "      Comments:  ", v.Comments)
		writeField(sb, "      Duration:  ", v.Duration)
	}
}

func (w *SimpleWriter) writeVideo(sb *strings.Builder, report *model.ScanReport) {
	v := report.Video

	fmt.Fprintf(sb, "\nVideo: %s\n", orDefault(v.Title, "Untitled"))
	fmt.Fprintf(sb, "URL:   %s\n", v.URL)

	if o := report.Owner; o != nil {
		sb.WriteString("\nChannel:\n")
		fmt.Fprintf(sb, "   Name:        %s\n", orDefault(o.Name, "Unknown"))
		writeField(sb, "   Subscribers: ", o.Subscribers)
		writeField(sb, "   ID:          ", o.ID)
	}

	sb.WriteString("\nStatistics:\n")
	writeField(sb, "   Views:     ", v.Views)
	writeField(sb, "   Likes:     ", v.Likes)
	writeField(sb, "   Comments:  ", v.Comments)
	writeField(sb, "   Published: ", v.Published)
	writeField(sb, "   Duration:  ", v.Duration)
}

// writeField writes label and *value on one line when value is present.
func writeField(sb *strings.Builder, label string, value *string) {
	if value != nil {
		sb.WriteString(label + *value + "\n")
	}
}
