package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nao1215/ytscan/internal/model"
)

// videoColumns is the header of the video table.
var videoColumns = []string{"#", "Title", "URL", "Published", "Views", "Likes", "Comments", "Duration"}

// CSVWriter writes a report as CSV: a title block, the channel (or video
// owner) row and the video table. Absent values are empty cells.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...Option) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output, opts...)}
}

// Write outputs the report.
func (w *CSVWriter) Write(report *model.ScanReport) (int, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	var rows [][]string
	switch {
	case report.Channel != nil:
		rows = w.channelRows(report)
	case report.Video != nil:
		rows = w.videoRows(report)
	default:
		rows = [][]string{
			{"YOUTUBE SCAN RESULTS"},
			{"Generated: " + w.generated()},
			{"Target", "Error"},
			{report.Target, report.ErrorMessage},
		}
	}

	if err := cw.WriteAll(rows); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

func (w *CSVWriter) channelRows(report *model.ScanReport) [][]string {
	c := report.Channel
	rows := [][]string{
		{"YOUTUBE CHANNEL SCAN RESULTS"},
		{"Generated: " + w.generated()},
		{},
		{"CHANNEL INFORMATION"},
		{"Name", "URL", "Subscribers", "Total Videos"},
		{model.Value(c.Name), c.URL, model.Value(c.Subscribers), strconv.Itoa(len(c.Videos))},
		{},
	}
	if len(c.Videos) == 0 {
		return rows
	}
	rows = append(rows, []string{"VIDEOS DETAILS"}, videoColumns)
	for i, v := range c.Videos {
		rows = append(rows, videoRow(i+1, v))
	}
	return rows
}

func (w *CSVWriter) videoRows(report *model.ScanReport) [][]string {
	rows := [][]string{
		{"YOUTUBE VIDEO SCAN RESULTS"},
		{"Generated: " + w.generated()},
		{},
	}
	if o := report.Owner; o != nil {
		rows = append(rows,
			[]string{"CHANNEL INFORMATION"},
			[]string{"Name", "URL", "Subscribers", "ID"},
			[]string{model.Value(o.Name), o.URL, model.Value(o.Subscribers), model.Value(o.ID)},
			[]string{},
		)
	}
	return append(rows, []string{"VIDEO DETAILS"}, videoColumns, videoRow(1, *report.Video))
}

func videoRow(n int, v model.VideoRecord) []string {
	return []string{
		strconv.Itoa(n),
		model.Value(v.Title),
		v.URL,
		model.Value(v.Published),
		model.Value(v.Views),
		model.Value(v.Likes),
		model.Value(v.Comments),
		model.Value(v.Duration),
	}
}
