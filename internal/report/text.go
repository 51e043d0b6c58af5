package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/ytscan/internal/model"
)

// TextWriter writes the full plain text report: every video with every
// field that was found.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...Option) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output, opts...)}
}

// Write outputs the report.
func (w *TextWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	rule := strings.Repeat("=", consoleRuleWidth)
	sb.WriteString(rule + "\n")
	sb.WriteString("YOUTUBE SCAN RESULTS\n")
	fmt.Fprintf(&sb, "Generated: %s\n", w.generated())
	sb.WriteString(rule + "\n\n")

	switch {
	case report.Channel != nil:
		w.writeChannel(&sb, report)
	case report.Video != nil:
		w.writeVideo(&sb, report)
	default:
		fmt.Fprintf(&sb, "TARGET: %s\n", report.Target)
		fmt.Fprintf(&sb, "ERROR: %s\n", report.ErrorMessage)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeChannel(sb *strings.Builder, report *model.ScanReport) {
	c := report.Channel

	fmt.Fprintf(sb, "CHANNEL: %s\n", orDefault(c.Name, "Unknown"))
	fmt.Fprintf(sb, "URL: %s\n", c.URL)
	fmt.Fprintf(sb, "Subscribers: %s\n", orDefault(c.Subscribers, "N/A"))
	fmt.Fprintf(sb, "Total Videos: %d\n\n", len(c.Videos))

	if c.Description != nil {
		fmt.Fprintf(sb, "DESCRIPTION:\n%s\n\n", *c.Description)
	}

	if s := report.Stats; s != nil {
		sb.WriteString("TOTAL STATISTICS:\n")
		fmt.Fprintf(sb, "- Videos analyzed: %d\n", s.TotalVideos)
		fmt.Fprintf(sb, "- Total views: %s\n", formatTotal(s.TotalViews))
		fmt.Fprintf(sb, "- Total likes: %s\n", formatTotal(s.TotalLikes))
		fmt.Fprintf(sb, "- Total comments: %s\n\n", formatTotal(s.TotalComments))
	}

	if len(c.Videos) == 0 {
		return
	}
	sb.WriteString("VIDEOS DETAILS:\n")
	sb.WriteString(strings.Repeat("-", 50) + "\n")
	for i, v := range c.Videos {
		fmt.Fprintf(sb, "\n%d. %s\n", i+1, orDefault(v.Title, "No title"))
		fmt.Fprintf(sb, "   URL: %s\n", v.URL)
		writeField(sb, "   Published: ", v.Published)
		writeField(sb, "   Views: ", v.Views)
		writeField(sb, "   Likes: ", v.Likes)
		writeField(sb, "   Comments: ", v.Comments)
		writeField(sb, "   Duration: ", v.Duration)
	}
}

func (w *TextWriter) writeVideo(sb *strings.Builder, report *model.ScanReport) {
	v := report.Video

	fmt.Fprintf(sb, "VIDEO: %s\n", orDefault(v.Title, "Unknown"))
	fmt.Fprintf(sb, "URL: %s\n\n", v.URL)

	if o := report.Owner; o != nil {
		sb.WriteString("CHANNEL INFO:\n")
		fmt.Fprintf(sb, "- Name: %s\n", orDefault(o.Name, "Unknown"))
		writeField(sb, "- Subscribers: ", o.Subscribers)
		if o.URL != "" {
			fmt.Fprintf(sb, "- URL: %s\n", o.URL)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("VIDEO STATISTICS:\n")
	writeField(sb, "- Views: ", v.Views)
	writeField(sb, "- Likes: ", v.Likes)
	writeField(sb, "- Comments: ", v.Comments)
	writeField(sb, "- Published: ", v.Published)
	writeField(sb, "- Duration: ", v.Duration)
}
