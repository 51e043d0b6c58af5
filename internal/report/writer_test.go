package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ytscan/internal/model"
)

var fixedNow = time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr(s string) *string { return &s }

// createChannelReport creates a channel report with sample data.
func createChannelReport() *model.ScanReport {
	r := model.NewScanReport("https://www.youtube.com/@test", model.ScanTypeChannel)
	r.Success = true
	r.Channel = &model.ChannelRecord{
		URL:         "https://www.youtube.com/@test",
		Name:        ptr("Test Channel"),
		Description: ptr(strings.Repeat("word ", 60)),
		Subscribers: ptr("1,2 тыс. подписчиков"),
	}
	for i, title := range []string{"First", "Second | with pipe", strings.Repeat("Long title ", 6), "Fourth", "Fifth", "Sixth"} {
		v := model.NewVideoRecord(string(rune('a' + i)))
		v.Title = ptr(title)
		v.Views = ptr("1 000 просмотров")
		if i == 0 {
			v.Likes = ptr("12")
			v.Comments = ptr("5")
			v.Duration = ptr("1:00")
		}
		r.Channel.Videos = append(r.Channel.Videos, v)
	}
	r.Stats = &model.AggregateStats{TotalVideos: 6, TotalViews: 6000, TotalLikes: 12, TotalComments: 5}
	return r
}

// createVideoReport creates a video report with sample data.
func createVideoReport() *model.ScanReport {
	r := model.NewScanReport("https://www.youtube.com/watch?v=abc", model.ScanTypeVideo)
	r.Success = true
	v := model.NewVideoRecord("abc")
	v.Title = ptr("The Video")
	v.Views = ptr("1 234 просмотра")
	v.Likes = ptr("99")
	r.Video = &v
	r.Owner = &model.ChannelRecord{URL: "https://www.youtube.com/@owner", Name: ptr("Owner"), ID: ptr("UCowner")}
	return r
}

// TestSimpleWriter tests the console summary.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("channel summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()

		for _, want := range []string{
			"CHANNEL SCAN RESULTS",
			"Channel:     Test Channel",
			"Subscribers: 1,2 тыс. подписчиков",
			"Videos:      6",
			"Views:           6,000",
			"   1. First",
			"      Likes:     12",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
		if strings.Contains(out, "Sixth") {
			t.Error("expected only the first 5 videos")
		}
		if !strings.Contains(out, "   3. "+strings.Repeat("Long title ", 4)[:37]+"...") {
			t.Errorf("expected the long title truncated to 40 columns\n%s", out)
		}
	})

	t.Run("description is truncated and wrapped", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var desc []string
		inDesc := false
		for _, line := range strings.Split(buf.String(), "\n") {
			switch {
			case line == "Description:":
				inDesc = true
			case inDesc && line == "":
				inDesc = false
			case inDesc:
				desc = append(desc, strings.TrimPrefix(line, "   "))
			}
		}
		if len(desc) == 0 {
			t.Fatal("expected a description")
		}
		for _, line := range desc {
			if len(line) > 65 {
				t.Errorf("line longer than 65 columns: %q", line)
			}
		}
		joined := strings.Join(desc, " ")
		if len(joined) != 200 || !strings.HasSuffix(joined, "...") {
			t.Errorf("expected 200 characters ending in ..., got %d: %q", len(joined), joined)
		}
	})

	t.Run("video limit option", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVideoLimit(0)).Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "6. Sixth") {
			t.Error("expected all videos to be listed")
		}
	})

	t.Run("video summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createVideoReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"VIDEO SCAN RESULTS", "Video: The Video", "Name:        Owner", "Likes:     99"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
		if strings.Contains(out, "Comments:") {
			t.Error("absent fields must not be printed")
		}
	})

	t.Run("failed scan", func(t *testing.T) {
		t.Parallel()

		r := model.NewScanReport("https://www.youtube.com/@gone", model.ScanTypeChannel)
		r.SetError(errors.New("no initial data"))

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "Scan failed: https://www.youtube.com/@gone\n   Error: no initial data\n"
		if buf.String() != want {
			t.Errorf("got %q", buf.String())
		}
	})
}

// TestTextWriter tests the full text report.
func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("channel", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithClock(clock)).Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"YOUTUBE SCAN RESULTS\nGenerated: 2024-01-31 15:04:05\n",
			"CHANNEL: Test Channel\n",
			"Total Videos: 6\n",
			"- Total views: 6,000\n",
			"VIDEOS DETAILS:\n",
			"\n6. Sixth\n   URL: https://youtube.com/watch?v=f\n   Views: 1 000 просмотров\n",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("video", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithClock(clock)).Write(createVideoReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"VIDEO: The Video\n", "CHANNEL INFO:\n- Name: Owner\n", "- Likes: 99\n"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})
}

// TestCSVWriter tests the CSV layout.
func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("channel", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewCSVWriter(&buf, WithClock(clock)).Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		r := csv.NewReader(&buf)
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if records[0][0] != "YOUTUBE CHANNEL SCAN RESULTS" || records[1][0] != "Generated: 2024-01-31 15:04:05" {
			t.Errorf("got title rows %v", records[:2])
		}
		// Blank separator rows are skipped by the reader.
		if got := records[4]; len(got) != 4 || got[0] != "Test Channel" || got[3] != "6" {
			t.Errorf("got channel row %v", got)
		}
		if got := records[6]; strings.Join(got, ",") != strings.Join(videoColumns, ",") {
			t.Errorf("got video header %v", got)
		}
		first := records[7]
		if first[0] != "1" || first[1] != "First" || first[5] != "12" || first[7] != "1:00" {
			t.Errorf("got first video row %v", first)
		}
		if second := records[8]; second[1] != "Second | with pipe" || second[5] != "" {
			t.Errorf("got second video row %v", second)
		}
		if len(records) != 7+6 {
			t.Errorf("expected 13 records, got %d", len(records))
		}
	})

	t.Run("video", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewCSVWriter(&buf, WithClock(clock)).Write(createVideoReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Owner,https://www.youtube.com/@owner,,UCowner\n") {
			t.Errorf("expected the owner row\n%s", out)
		}
		if !strings.Contains(out, "1,The Video,https://youtube.com/watch?v=abc,,1 234 просмотра,99,,\n") {
			t.Errorf("expected the video row\n%s", out)
		}
	})
}

// TestMarkdownWriter tests the Markdown report.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("channel with chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithClock(clock)).Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"# YouTube Scan Report",
			"## Channel",
			"| Name | Test Channel |",
			"## Totals",
			"6,000",
			`Second \| with pipe`,
			"[First](https://youtube.com/watch?v=a)",
			"```mermaid",
			"View Share",
			`"First" : 1000`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("video without chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createVideoReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "## Video") || !strings.Contains(out, "Name: Owner") {
			t.Errorf("unexpected output\n%s", out)
		}
		if strings.Contains(out, "mermaid") {
			t.Error("expected no chart for a single video")
		}
	})
}

// TestJSONWriter tests JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("plain report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createVideoReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got model.ScanReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Video == nil || got.Video.ID != "abc" || got.Video.Comments != nil {
			t.Errorf("got %+v", got.Video)
		}
		if !strings.Contains(buf.String(), "\n  \"target\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("wrapped report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(createChannelReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "1.2.3" || got.Report == nil || len(got.Report.Channel.Videos) != 6 {
			t.Errorf("got %+v", got)
		}
	})
}

// errWriter fails every write.
type errWriter struct{}

func (errWriter) Write(*model.ScanReport) (int, error) { return 0, errors.New("disk full") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	n, err := NewMultiWriter(NewJSONWriter(&a), NewJSONWriter(&b)).Write(createVideoReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() || a.String() != b.String() {
		t.Errorf("got n=%d, outputs %d and %d bytes", n, a.Len(), b.Len())
	}

	var c bytes.Buffer
	_, err = NewMultiWriter(errWriter{}, NewJSONWriter(&c)).Write(createVideoReport())
	if err == nil || c.Len() != 0 {
		t.Errorf("expected to stop at the first error, got %v", err)
	}
}

// TestFileName tests report file names.
func TestFileName(t *testing.T) {
	t.Parallel()

	if got := FileName(createChannelReport(), ExtCSV, fixedNow); got != "youtube_channel_scan_20240131_150405.csv" {
		t.Errorf("got %q", got)
	}
	if got := FileName(createVideoReport(), ExtText, fixedNow); got != "youtube_video_scan_20240131_150405.txt" {
		t.Errorf("got %q", got)
	}
}

// TestWrap tests word wrapping.
func TestWrap(t *testing.T) {
	t.Parallel()

	got := wrap("aaa bbb ccc dddddddddd e", 7)
	want := []string{"aaa bbb", "ccc", "dddddddddd", "e"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %q, expected %q", got, want)
	}
	if wrap("   ", 10) != nil {
		t.Error("expected no lines for blank input")
	}
}
