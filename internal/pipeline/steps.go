package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/ytscan/internal/extract"
	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/stats"
	"github.com/nao1215/ytscan/internal/youtube"
)

// Fetcher retrieves a YouTube page and its decoded ytInitialData.
// *youtube.Client implements it.
//
// When the page was fetched but carries no data, or came back with a
// non-200 status, FetchPage returns the Document with a nil Data together
// with the error.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (*youtube.Document, error)
}

// PageRecorder stores fetched pages. *database.ScanDB implements it.
type PageRecorder interface {
	UpsertPage(ctx context.Context, target string, page *model.Page) (bool, error)
}

// Deps are the collaborators shared by the steps of one scan.
type Deps struct {
	// Fetcher is required.
	Fetcher Fetcher

	// Recorder is optional. Leave it nil when pages are not persisted.
	Recorder PageRecorder

	// Extractor defaults to extract.New().
	Extractor *extract.Extractor

	// Normalizer parses counts for AggregateStep. The zero value uses the
	// default units.
	Normalizer stats.Normalizer

	// Pacer is waited on between watch page fetches. Defaults to NoPacing.
	Pacer Pacer

	// Depth is the maximum number of videos of a channel. <= 0 means all.
	Depth int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Session fetches pages for one scan. Each URL is fetched at most once per
// session and every fetched page is handed to the recorder.
type Session struct {
	deps Deps

	mu    sync.Mutex
	cache map[string]*youtube.Document
}

// NewSession creates a session for one scan.
func NewSession(d Deps) *Session {
	if d.Extractor == nil {
		d.Extractor = extract.New()
	}
	if d.Pacer == nil {
		d.Pacer = NoPacing()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Session{
		deps:  d,
		cache: make(map[string]*youtube.Document),
	}
}

// Fetch returns the document at url, fetched on behalf of target.
func (s *Session) Fetch(ctx context.Context, target, url string) (*youtube.Document, error) {
	s.mu.Lock()
	doc, ok := s.cache[url]
	s.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := s.deps.Fetcher.FetchPage(ctx, url)
	if doc != nil && doc.Page != nil {
		s.record(ctx, target, doc.Page)
	}
	if err != nil {
		return doc, err
	}

	s.mu.Lock()
	s.cache[url] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *Session) record(ctx context.Context, target string, page *model.Page) {
	if s.deps.Recorder == nil {
		return
	}
	changed, err := s.deps.Recorder.UpsertPage(ctx, target, page)
	if err != nil {
		s.deps.Logger.Warn("failed to record page", "url", page.URL, "error", err)
		return
	}
	s.deps.Logger.Debug("page recorded", "url", page.URL, "changed", changed)
}

// ChannelInfoStep reads the channel page: metadata, header stats and the
// channel name, which falls back to the page title.
type ChannelInfoStep struct {
	session *Session
}

// NewChannelInfoStep creates a ChannelInfoStep.
func NewChannelInfoStep(s *Session) *ChannelInfoStep {
	return &ChannelInfoStep{session: s}
}

// Name returns the step name.
func (s *ChannelInfoStep) Name() string {
	return "channel_info"
}

// Do fetches report.Target and fills report.Channel. A page without
// ytInitialData is an error; a page whose data holds no known channel
// container still yields a channel named after the page title.
func (s *ChannelInfoStep) Do(ctx context.Context, report *model.ScanReport) error {
	doc, err := s.session.Fetch(ctx, report.Target, report.Target)
	if doc != nil && doc.Page != nil && report.PageTitle == "" {
		report.PageTitle = doc.Page.Title
	}
	if err != nil {
		return fmt.Errorf("failed to fetch channel page: %w", err)
	}

	channel := s.session.deps.Extractor.ParseChannel(doc.Data)
	if channel == nil {
		channel = &model.ChannelRecord{}
	}
	if channel.URL == "" {
		channel.URL = report.Target
	}
	if channel.Name == nil {
		if name := youtube.ChannelNameFromTitle(report.PageTitle); name != "" {
			channel.Name = &name
		}
	}
	report.Channel = channel
	return nil
}

// ChannelVideosStep lists the channel's videos from its videos tab, up to
// Deps.Depth. When the tab cannot be read the channel page itself is used.
type ChannelVideosStep struct {
	session *Session
}

// NewChannelVideosStep creates a ChannelVideosStep.
func NewChannelVideosStep(s *Session) *ChannelVideosStep {
	return &ChannelVideosStep{session: s}
}

// Name returns the step name.
func (s *ChannelVideosStep) Name() string {
	return "channel_videos"
}

// Do fills report.Channel.Videos. It does nothing when no channel was found.
func (s *ChannelVideosStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.Channel == nil {
		return nil
	}
	logger := s.session.deps.Logger

	videos := s.list(ctx, report.Target, youtube.ChannelVideosURL(report.Target))
	if len(videos) == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		videos = s.list(ctx, report.Target, report.Target)
	}

	logger.Info("channel videos found", "target", report.Target, "count", len(videos))
	report.Channel.Videos = videos
	return nil
}

func (s *ChannelVideosStep) list(ctx context.Context, target, url string) []model.VideoRecord {
	doc, err := s.session.Fetch(ctx, target, url)
	if err != nil {
		s.session.deps.Logger.Debug("no video list", "url", url, "error", err)
		return nil
	}
	return s.session.deps.Extractor.VideoItems(doc.Data, s.session.deps.Depth)
}

// VideoDetailsStep opens the watch page of every listed video and adds
// what only the watch page shows: likes, comments and exact view counts.
// Values from the watch page take precedence over the list. This is the
// one merge in the scan that overwrites present fields: the list shows
// rounded counts. Fields the watch page lacks are kept from the list.
type VideoDetailsStep struct {
	session *Session
}

// NewVideoDetailsStep creates a VideoDetailsStep.
func NewVideoDetailsStep(s *Session) *VideoDetailsStep {
	return &VideoDetailsStep{session: s}
}

// Name returns the step name.
func (s *VideoDetailsStep) Name() string {
	return "video_details"
}

// Do updates report.Channel.Videos in place. A video whose watch page
// cannot be read keeps its list values. Only cancellation stops the step.
func (s *VideoDetailsStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.Channel == nil {
		return nil
	}
	var (
		videos = report.Channel.Videos
		deps   = s.session.deps
	)

	for i := range videos {
		v := &videos[i]
		deps.Logger.Info("analyzing video",
			"target", report.Target,
			"index", i+1,
			"total", len(videos),
			"title", model.Value(v.Title),
		)

		doc, err := s.session.Fetch(ctx, report.Target, youtube.WatchURL(v.ID))
		switch {
		case err == nil:
			if detail := deps.Extractor.ParsePrimaryVideoInfo(doc.Data); detail != nil {
				merged := *detail
				merged.ID, merged.URL = v.ID, v.URL
				merged.Merge(*v)
				*v = merged
			}
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			deps.Logger.Warn("failed to read watch page", "video", v.ID, "error", err)
		}

		if i == len(videos)-1 {
			break
		}
		if err := deps.Pacer.Wait(ctx, i+1); err != nil {
			return err
		}
	}
	return nil
}

// VideoScanStep reads a single watch page: the video and its owner.
type VideoScanStep struct {
	session *Session
}

// NewVideoScanStep creates a VideoScanStep.
func NewVideoScanStep(s *Session) *VideoScanStep {
	return &VideoScanStep{session: s}
}

// Name returns the step name.
func (s *VideoScanStep) Name() string {
	return "video_scan"
}

// Do fills report.Video and report.Owner. The target must contain a video ID.
func (s *VideoScanStep) Do(ctx context.Context, report *model.ScanReport) error {
	id := youtube.VideoID(report.Target)
	if id == "" {
		return fmt.Errorf("%w: no video ID in %s", youtube.ErrUnsupportedURL, report.Target)
	}

	doc, err := s.session.Fetch(ctx, report.Target, report.Target)
	if doc != nil && doc.Page != nil && report.PageTitle == "" {
		report.PageTitle = doc.Page.Title
	}
	if err != nil {
		return fmt.Errorf("failed to fetch watch page: %w", err)
	}

	x := s.session.deps.Extractor
	video := model.NewVideoRecord(id)
	if info := x.ParsePrimaryVideoInfo(doc.Data); info != nil {
		info.ID, info.URL = video.ID, video.URL
		info.Merge(video)
		video = *info
	}
	if video.Title == nil {
		if title := youtube.ChannelNameFromTitle(report.PageTitle); title != "" {
			video.Title = &title
		}
	}
	report.Video = &video
	report.Owner = x.ParseChannelFromVideo(doc.Data)
	return nil
}

// AggregateStep totals the channel's video counts.
type AggregateStep struct {
	normalizer stats.Normalizer
}

// NewAggregateStep creates an AggregateStep.
func NewAggregateStep(n stats.Normalizer) *AggregateStep {
	return &AggregateStep{normalizer: n}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do sets report.Stats. It does nothing when no channel was found.
func (s *AggregateStep) Do(_ context.Context, report *model.ScanReport) error {
	if report.Channel == nil {
		return nil
	}
	total := s.normalizer.Aggregate(report.Channel.Videos)
	report.Stats = &total
	return nil
}

// ChannelPipeline builds the pipeline of a channel scan.
func ChannelPipeline(d Deps, opts ...Option) *Pipeline {
	s := NewSession(d)
	p := New(append([]Option{WithLogger(s.deps.Logger)}, opts...)...)
	p.AddSteps(
		NewChannelInfoStep(s),
		NewChannelVideosStep(s),
		NewVideoDetailsStep(s),
		NewAggregateStep(s.deps.Normalizer),
	)
	return p
}

// VideoPipeline builds the pipeline of a single video scan.
func VideoPipeline(d Deps, opts ...Option) *Pipeline {
	s := NewSession(d)
	p := New(append([]Option{WithLogger(s.deps.Logger)}, opts...)...)
	p.AddStep(NewVideoScanStep(s))
	return p
}

// ForTarget classifies target and returns its pipeline and an empty report.
// Playlists and unrecognized URLs yield youtube.ErrUnsupportedURL.
func ForTarget(target string, d Deps, opts ...Option) (*Pipeline, *model.ScanReport, error) {
	switch t := youtube.Classify(target); {
	case t == youtube.URLTypeVideo:
		return VideoPipeline(d, opts...), model.NewScanReport(target, model.ScanTypeVideo), nil
	case t.IsChannel():
		return ChannelPipeline(d, opts...), model.NewScanReport(target, model.ScanTypeChannel), nil
	default:
		return nil, nil, fmt.Errorf("%w: %s is a %s URL", youtube.ErrUnsupportedURL, target, t)
	}
}

// isCancellation reports whether err comes from the context.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
