package report

import (
	"cmp"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/ytscan/internal/model"
)

// pieSlices is the number of videos shown in the view share chart. The
// remaining videos are summed into one slice.
const pieSlices = 8

// MarkdownWriter writes the report as Markdown with a mermaid chart of
// the view share per video.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...Option) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output, opts...)}
}

// Write outputs the report.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("YouTube Scan Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", cell(report.Target)},
			{"Type", string(report.Type)},
			{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Generated", w.generated()},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	switch {
	case report.Channel != nil:
		w.writeChannel(md, report)
	case report.Video != nil:
		w.writeVideo(md, report)
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by %s*", markdown.Link("ytscan", "https://github.com/nao1215/ytscan"))

	return len(md.String()), md.Build()
}

func statusText(report *model.ScanReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Timed Out (partial results)"
	case !report.Success:
		return "❌ Failed - " + cell(report.ErrorMessage)
	case report.ErrorMessage != "":
		return "⚠️ Partial - " + cell(report.ErrorMessage)
	default:
		return "✅ Complete"
	}
}

func (w *MarkdownWriter) writeChannel(md *markdown.Markdown, report *model.ScanReport) {
	c := report.Channel

	md.H2("Channel")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Name", cell(orDefault(c.Name, "Unknown"))},
			{"URL", cell(c.URL)},
			{"ID", cell(orDefault(c.ID, "-"))},
			{"Subscribers", cell(orDefault(c.Subscribers, "-"))},
			{"Videos", strconv.Itoa(videoCount(c))},
		},
	})
	md.PlainText("")
	if c.Description != nil {
		md.Details("Description", *c.Description)
		md.PlainText("")
	}

	if s := report.Stats; s != nil {
		md.H2("Totals")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header:    []string{"Videos analyzed", "Views", "Likes", "Comments"},
			Alignment: []markdown.TableAlignment{markdown.AlignRight, markdown.AlignRight, markdown.AlignRight, markdown.AlignRight},
			Rows: [][]string{{
				strconv.Itoa(s.TotalVideos),
				formatTotal(s.TotalViews),
				formatTotal(s.TotalLikes),
				formatTotal(s.TotalComments),
			}},
		})
		md.PlainText("")
	}

	if len(c.Videos) == 0 {
		md.Note("No videos were found on the channel.")
		md.PlainText("")
		return
	}

	md.H2("Videos")
	md.PlainText("")
	rows := make([][]string, len(c.Videos))
	for i, v := range c.Videos {
		rows[i] = videoMarkdownRow(i+1, v)
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Published", "Views", "Likes", "Comments", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeViewShare(md, c.Videos)
}

// writeViewShare charts the view count of the most viewed videos.
func (w *MarkdownWriter) writeViewShare(md *markdown.Markdown, videos []model.VideoRecord) {
	type slice struct {
		label string
		views float64
	}
	var parts []slice
	for _, v := range videos {
		if n, ok := w.normalizer.ParseField(v.Views); ok && n > 0 {
			parts = append(parts, slice{label: chartLabel(orDefault(v.Title, v.ID)), views: n})
		}
	}
	if len(parts) < 2 {
		return
	}
	slices.SortStableFunc(parts, func(a, b slice) int {
		return cmp.Compare(b.views, a.views)
	})

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("View Share"),
		piechart.WithShowData(true),
	)
	var other float64
	for i, s := range parts {
		if i >= pieSlices {
			other += s.views
			continue
		}
		chart.LabelAndIntValue(s.label, uint64(s.views))
	}
	if other > 0 {
		chart.LabelAndIntValue("Other videos", uint64(other))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeVideo(md *markdown.Markdown, report *model.ScanReport) {
	v := report.Video

	md.H2("Video")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Published", "Views", "Likes", "Comments", "Duration"},
		Rows:   [][]string{videoMarkdownRow(1, *v)},
	})
	md.PlainText("")

	if o := report.Owner; o != nil {
		md.H2("Channel")
		md.PlainText("")
		md.BulletList(
			"Name: "+cell(orDefault(o.Name, "Unknown")),
			"Subscribers: "+cell(orDefault(o.Subscribers, "-")),
			"URL: "+cell(o.URL),
		)
		md.PlainText("")
	}
}

func videoMarkdownRow(n int, v model.VideoRecord) []string {
	return []string{
		strconv.Itoa(n),
		markdown.Link(cell(orDefault(v.Title, v.ID)), v.URL),
		cell(orDefault(v.Published, "-")),
		cell(orDefault(v.Views, "-")),
		cell(orDefault(v.Likes, "-")),
		cell(orDefault(v.Comments, "-")),
		cell(orDefault(v.Duration, "-")),
	}
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// chartLabel makes s safe as a quoted mermaid label.
func chartLabel(s string) string {
	return truncate(strings.ReplaceAll(s, `"`, "'"), titleMaxWidth)
}
