package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/tree"
	"github.com/nao1215/ytscan/internal/youtube"
)

const (
	channelURL = "https://www.youtube.com/@test"
	videosURL  = "https://www.youtube.com/@test/videos"
)

var f = tree.F

// fakeFetcher serves prepared documents. A URL mapped to nil has a page but
// no initial data; an unknown URL answers 404.
type fakeFetcher struct {
	docs   map[string]*tree.Node
	titles map[string]string

	mu    sync.Mutex
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		docs:   make(map[string]*tree.Node),
		titles: make(map[string]string),
		calls:  make(map[string]int),
	}
}

func (ff *fakeFetcher) FetchPage(ctx context.Context, url string) (*youtube.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ff.mu.Lock()
	ff.calls[url]++
	ff.mu.Unlock()

	page := &model.Page{URL: url, StatusCode: 200, Title: ff.titles[url], Raw: []byte(url)}
	data, ok := ff.docs[url]
	switch {
	case !ok:
		page.StatusCode = 404
		return &youtube.Document{Page: page}, fmt.Errorf("%w: 404", youtube.ErrHTTPStatus)
	case data == nil:
		return &youtube.Document{Page: page}, fmt.Errorf("%s: %w", url, youtube.ErrNoInitialData)
	default:
		return &youtube.Document{Page: page, Data: data}, nil
	}
}

func (ff *fakeFetcher) callCount(url string) int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.calls[url]
}

// fakeRecorder collects recorded page URLs.
type fakeRecorder struct {
	mu   sync.Mutex
	urls []string
}

func (r *fakeRecorder) UpsertPage(_ context.Context, _ string, page *model.Page) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, page.URL)
	return true, nil
}

// countingPacer records the item numbers it was called with.
type countingPacer struct {
	mu    sync.Mutex
	calls []int
}

func (p *countingPacer) Wait(ctx context.Context, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, n)
	return ctx.Err()
}

func runs(s string) *tree.Node {
	return tree.Object(f("runs", tree.Array(tree.Object(f("text", tree.String(s))))))
}

func simple(s string) *tree.Node {
	return tree.Object(f("simpleText", tree.String(s)))
}

func channelDoc() *tree.Node {
	return tree.Object(
		f("metadata", tree.Object(f("channelMetadataRenderer", tree.Object(
			f("title", tree.String("Test Channel")),
			f("description", tree.String("About the channel")),
			f("externalId", tree.String("UC123")),
		)))),
		f("header", tree.Object(f("c4TabbedHeaderRenderer", tree.Object(
			f("subscriberCountText", simple("1,2 тыс. подписчиков")),
		)))),
	)
}

func videoItem(id, title, views string) *tree.Node {
	return tree.Object(f("videoRenderer", tree.Object(
		f("videoId", tree.String(id)),
		f("title", runs(title)),
		f("viewCountText", simple(views)),
		f("lengthText", simple("1:00")),
	)))
}

func videosDoc(items ...*tree.Node) *tree.Node {
	return tree.Object(f("contents", tree.Array(items...)))
}

func watchDoc(id, title, views, likes string) *tree.Node {
	return tree.Object(
		f("currentVideoEndpoint", tree.Object(f("watchEndpoint", tree.Object(f("videoId", tree.String(id)))))),
		f("contents", tree.Array(
			tree.Object(f("videoPrimaryInfoRenderer", tree.Object(
				f("title", runs(title)),
				f("viewCount", tree.Object(f("videoViewCountRenderer", tree.Object(f("viewCount", simple(views)))))),
				f("dateText", simple("1 янв. 2024 г.")),
				f("videoActions", tree.Object(f("menuRenderer", tree.Object(f("topLevelButtons", tree.Array(
					tree.Object(f("segmentedLikeDislikeButtonRenderer", tree.Object(f("likeButton", tree.Object(
						f("toggleButtonRenderer", tree.Object(f("defaultText", simple(likes)))),
					))))),
				)))))),
			))),
			tree.Object(f("videoSecondaryInfoRenderer", tree.Object(
				f("owner", tree.Object(f("videoOwnerRenderer", tree.Object(
					f("title", runs("Owner")),
					f("subscriberCountText", simple("10 тыс. подписчиков")),
					f("navigationEndpoint", tree.Object(f("browseEndpoint", tree.Object(
						f("browseId", tree.String("UCowner")),
						f("canonicalBaseUrl", tree.String("/@owner")),
					)))),
				)))),
			))),
			tree.Object(f("commentsEntryPointHeaderRenderer", tree.Object(
				f("headerText", simple("5 комментариев")),
			))),
		)),
	)
}

// TestChannelPipeline tests a full channel scan against fake pages.
func TestChannelPipeline(t *testing.T) {
	t.Parallel()

	t.Run("channel info, videos, details and totals", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFetcher()
		ff.docs[channelURL] = channelDoc()
		ff.titles[channelURL] = "Test Channel - YouTube"
		ff.docs[videosURL] = videosDoc(
			videoItem("v1", "First", "1 тыс. просмотров"),
			videoItem("v2", "Second", "200 просмотров"),
			videoItem("v1", "First again", "1 тыс. просмотров"),
		)
		ff.docs[youtube.WatchURL("v1")] = watchDoc("v1", "First", "1 234 просмотра", "12")
		pacer := &countingPacer{}
		recorder := &fakeRecorder{}

		p := ChannelPipeline(Deps{Fetcher: ff, Recorder: recorder, Pacer: pacer})
		report := model.NewScanReport(channelURL, model.ScanTypeChannel)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !report.Success || report.Channel == nil {
			t.Fatalf("expected a channel, got %+v", report)
		}
		if model.Value(report.Channel.Name) != "Test Channel" || model.Value(report.Channel.ID) != "UC123" {
			t.Errorf("got channel %+v", report.Channel)
		}
		if report.PageTitle != "Test Channel - YouTube" {
			t.Errorf("got page title %q", report.PageTitle)
		}

		videos := report.Channel.Videos
		if len(videos) != 2 {
			t.Fatalf("expected 2 unique videos, got %d", len(videos))
		}
		if model.Value(videos[0].Views) != "1 234 просмотра" {
			t.Errorf("expected watch page views to win, got %q", model.Value(videos[0].Views))
		}
		if model.Value(videos[0].Likes) != "12" || model.Value(videos[0].Comments) != "5" {
			t.Errorf("got likes %q comments %q", model.Value(videos[0].Likes), model.Value(videos[0].Comments))
		}
		if model.Value(videos[0].Duration) != "1:00" || videos[0].URL != model.WatchURLPrefix+"v1" {
			t.Errorf("expected list values to be kept, got %+v", videos[0])
		}
		if model.Value(videos[1].Views) != "200 просмотров" || videos[1].Likes != nil {
			t.Errorf("expected v2 to keep its list values, got %+v", videos[1])
		}

		if report.Stats == nil || report.Stats.TotalVideos != 2 || report.Stats.TotalViews != 1434 {
			t.Errorf("got stats %+v", report.Stats)
		}
		if report.Stats.TotalLikes != 12 || report.Stats.TotalComments != 5 {
			t.Errorf("got stats %+v", report.Stats)
		}

		if len(pacer.calls) != 1 || pacer.calls[0] != 1 {
			t.Errorf("expected one pacer wait between two videos, got %v", pacer.calls)
		}
		if len(recorder.urls) != 4 {
			t.Errorf("expected 4 recorded pages, got %v", recorder.urls)
		}
		want := []string{"channel_info", "channel_videos", "video_details", "aggregate"}
		if fmt.Sprint(report.PerformedSteps) != fmt.Sprint(want) {
			t.Errorf("got steps %v", report.PerformedSteps)
		}
	})

	t.Run("depth limits the video list", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFetcher()
		ff.docs[channelURL] = channelDoc()
		ff.docs[videosURL] = videosDoc(
			videoItem("v1", "First", "1"),
			videoItem("v2", "Second", "2"),
			videoItem("v3", "Third", "3"),
		)

		p := ChannelPipeline(Deps{Fetcher: ff, Depth: 2})
		report := model.NewScanReport(channelURL, model.ScanTypeChannel)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Channel.Videos) != 2 {
			t.Errorf("expected 2 videos, got %d", len(report.Channel.Videos))
		}
		if ff.callCount(youtube.WatchURL("v3")) != 0 {
			t.Error("expected the third watch page not to be fetched")
		}
	})

	t.Run("videos fall back to the channel page", func(t *testing.T) {
		t.Parallel()

		doc := channelDoc()
		ff := newFakeFetcher()
		ff.docs[channelURL] = tree.Object(
			f("metadata", doc.Get("metadata")),
			f("contents", tree.Array(videoItem("v1", "Only", "7"))),
		)

		p := ChannelPipeline(Deps{Fetcher: ff})
		report := model.NewScanReport(channelURL, model.ScanTypeChannel)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Channel.Videos) != 1 || report.Channel.Videos[0].ID != "v1" {
			t.Errorf("got videos %+v", report.Channel.Videos)
		}
		if ff.callCount(channelURL) != 1 {
			t.Errorf("expected the channel page to be fetched once, got %d", ff.callCount(channelURL))
		}
	})

	t.Run("name falls back to the page title", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFetcher()
		ff.docs[channelURL] = tree.Object(f("unrelated", tree.Bool(true)))
		ff.titles[channelURL] = "Someone - YouTube"

		p := ChannelPipeline(Deps{Fetcher: ff})
		report := model.NewScanReport(channelURL, model.ScanTypeChannel)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if model.Value(report.Channel.Name) != "Someone" || report.Channel.URL != channelURL {
			t.Errorf("got channel %+v", report.Channel)
		}
		if report.Stats == nil || report.Stats.TotalVideos != 0 {
			t.Errorf("got stats %+v", report.Stats)
		}
	})

	t.Run("page without initial data fails the scan", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFetcher()
		ff.docs[channelURL] = nil
		ff.titles[channelURL] = "Before you continue to YouTube"

		p := ChannelPipeline(Deps{Fetcher: ff})
		report := model.NewScanReport(channelURL, model.ScanTypeChannel)
		err := p.Execute(context.Background(), report)
		if !errors.Is(err, youtube.ErrNoInitialData) {
			t.Errorf("expected ErrNoInitialData, got %v", err)
		}
		if report.Success || report.Channel != nil {
			t.Errorf("expected no channel, got %+v", report.Channel)
		}
		if report.PageTitle != "Before you continue to YouTube" {
			t.Errorf("got page title %q", report.PageTitle)
		}
	})
}

// TestVideoPipeline tests a single video scan.
func TestVideoPipeline(t *testing.T) {
	t.Parallel()

	const target = "https://www.youtube.com/watch?v=abc"

	t.Run("video and owner", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFetcher()
		ff.docs[target] = watchDoc("abc", "The Video", "1 234 просмотра", "99")

		p := VideoPipeline(Deps{Fetcher: ff})
		report := model.NewScanReport(target, model.ScanTypeVideo)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v := report.Video
		if v == nil || v.ID != "abc" || v.URL != model.WatchURLPrefix+"abc" {
			t.Fatalf("got video %+v", v)
		}
		if model.Value(v.Title) != "The Video" || model.Value(v.Likes) != "99" || model.Value(v.Comments) != "5" {
			t.Errorf("got video %+v", v)
		}
		if report.Owner == nil || model.Value(report.Owner.Name) != "Owner" {
			t.Fatalf("got owner %+v", report.Owner)
		}
		if report.Owner.URL != "https://www.youtube.com/@owner" {
			t.Errorf("got owner URL %q", report.Owner.URL)
		}
		if !report.Success {
			t.Error("expected success")
		}
	})

	t.Run("title falls back to the page title", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFetcher()
		ff.docs[target] = tree.Object(f("empty", tree.Object()))
		ff.titles[target] = "Some Title - YouTube"

		p := VideoPipeline(Deps{Fetcher: ff})
		report := model.NewScanReport(target, model.ScanTypeVideo)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if model.Value(report.Video.Title) != "Some Title" || report.Owner != nil {
			t.Errorf("got video %+v owner %+v", report.Video, report.Owner)
		}
	})

	t.Run("target without video ID", func(t *testing.T) {
		t.Parallel()

		p := VideoPipeline(Deps{Fetcher: newFakeFetcher()})
		report := model.NewScanReport(channelURL, model.ScanTypeVideo)
		if err := p.Execute(context.Background(), report); !errors.Is(err, youtube.ErrUnsupportedURL) {
			t.Errorf("expected ErrUnsupportedURL, got %v", err)
		}
	})

	t.Run("http error", func(t *testing.T) {
		t.Parallel()

		p := VideoPipeline(Deps{Fetcher: newFakeFetcher()})
		report := model.NewScanReport(target, model.ScanTypeVideo)
		if err := p.Execute(context.Background(), report); !errors.Is(err, youtube.ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", err)
		}
		if report.Success {
			t.Error("expected no success")
		}
	})
}

// TestVideoDetailsStepCancel tests that cancellation stops the detail loop.
func TestVideoDetailsStepCancel(t *testing.T) {
	t.Parallel()

	ff := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(Deps{Fetcher: ff, Pacer: pacerFunc(func(context.Context, int) error {
		cancel()
		return context.Canceled
	})})

	report := model.NewScanReport(channelURL, model.ScanTypeChannel)
	report.Channel = &model.ChannelRecord{Videos: []model.VideoRecord{
		model.NewVideoRecord("a"), model.NewVideoRecord("b"), model.NewVideoRecord("c"),
	}}

	err := NewVideoDetailsStep(s).Do(ctx, report)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if ff.callCount(youtube.WatchURL("b")) != 0 {
		t.Error("expected no fetch after cancellation")
	}
}

type pacerFunc func(ctx context.Context, n int) error

func (p pacerFunc) Wait(ctx context.Context, n int) error {
	return p(ctx, n)
}

// TestForTarget tests pipeline selection by URL type.
func TestForTarget(t *testing.T) {
	t.Parallel()

	d := Deps{Fetcher: newFakeFetcher()}

	tests := []struct {
		target   string
		wantType model.ScanType
		wantStep string
		wantErr  error
	}{
		{"https://www.youtube.com/watch?v=abc", model.ScanTypeVideo, "video_scan", nil},
		{"https://youtu.be/abc", model.ScanTypeVideo, "video_scan", nil},
		{channelURL, model.ScanTypeChannel, "channel_info", nil},
		{"https://www.youtube.com/somename", model.ScanTypeChannel, "channel_info", nil},
		{"https://www.youtube.com/playlist?list=PL1", "", "", youtube.ErrUnsupportedURL},
		{"https://example.com/page", "", "", youtube.ErrUnsupportedURL},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			t.Parallel()

			p, report, err := ForTarget(tt.target, d)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Type != tt.wantType || report.Target != tt.target {
				t.Errorf("got report %+v", report)
			}
			if p.StepNames()[0] != tt.wantStep {
				t.Errorf("got steps %v", p.StepNames())
			}
		})
	}
}
