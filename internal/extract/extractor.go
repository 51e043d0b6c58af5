package extract

import (
	"regexp"
	"strings"

	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/search"
	"github.com/nao1215/ytscan/internal/stats"
	"github.com/nao1215/ytscan/internal/tree"
)

// Key names of the ytInitialData document that the extractor relies on.
const (
	keyVideoID             = "videoId"
	keyTitle               = "title"
	keyRuns                = "runs"
	keyText                = "text"
	keySimpleText          = "simpleText"
	keyViewCountText       = "viewCountText"
	keyPublishedTimeText   = "publishedTimeText"
	keyLengthText          = "lengthText"
	keySubscriberCountText = "subscriberCountText"
)

// canonicalHost prefixes the relative channel paths found in documents.
const canonicalHost = "https://www.youtube.com"

// Vocabulary holds the locale words that follow counts in display strings.
// Each list is tried in order.
type Vocabulary struct {
	// Video words follow the channel's video count ("123 видео").
	Video []string
	// Subscriber words follow the subscriber count.
	Subscriber []string
	// Comment words follow the comment count of a video.
	Comment []string
}

// DefaultVocabulary covers Russian and English pages.
var DefaultVocabulary = Vocabulary{
	Video:      []string{"видео", "videos"},
	Subscriber: []string{"подписчик", "subscribers"},
	Comment:    []string{"комментари", "comments"},
}

// countPattern builds the expression that captures the count in front of
// word, including an optional unit abbreviation such as "тыс." or "K".
func countPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(\d[\d\p{Zs},.]*(?:\p{Zs}*\pL{1,4}\.?)?)\p{Zs}*` + regexp.QuoteMeta(word))
}

type wordPattern struct {
	word string
	re   *regexp.Regexp
}

func compile(words []string) []wordPattern {
	out := make([]wordPattern, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, wordPattern{word: w, re: countPattern(w)})
	}
	return out
}

// Extractor recognizes channels and videos in ytInitialData documents.
// It never fails: anything it cannot find is left absent. An Extractor is
// immutable after New and safe for concurrent use.
type Extractor struct {
	engine     search.Engine
	vocabulary Vocabulary
	normalizer stats.Normalizer

	videoWords      []wordPattern
	subscriberWords []wordPattern
	commentWords    []wordPattern
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEngine sets the search engine, and with it the traversal policy.
func WithEngine(e search.Engine) Option {
	return func(x *Extractor) {
		x.engine = e
	}
}

// WithVocabulary replaces the locale words. Empty lists keep the defaults.
func WithVocabulary(v Vocabulary) Option {
	return func(x *Extractor) {
		if len(v.Video) > 0 {
			x.vocabulary.Video = v.Video
		}
		if len(v.Subscriber) > 0 {
			x.vocabulary.Subscriber = v.Subscriber
		}
		if len(v.Comment) > 0 {
			x.vocabulary.Comment = v.Comment
		}
	}
}

// WithNormalizer sets the normalizer used to read the channel video count.
func WithNormalizer(n stats.Normalizer) Option {
	return func(x *Extractor) {
		x.normalizer = n
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	x := &Extractor{
		engine:     search.New(),
		vocabulary: DefaultVocabulary,
		normalizer: stats.Normalizer{Units: stats.DefaultUnits},
	}
	for _, opt := range opts {
		opt(x)
	}
	x.videoWords = compile(x.vocabulary.Video)
	x.subscriberWords = compile(x.vocabulary.Subscriber)
	x.commentWords = compile(x.vocabulary.Comment)
	return x
}

// Engine returns the search engine of the extractor.
func (x *Extractor) Engine() search.Engine {
	return x.engine
}

// str returns the string held by n if the engine accepts it.
func (x *Extractor) str(n *tree.Node) (string, bool) {
	s, ok := n.Str()
	if !ok || !x.engine.Accept(n) {
		return "", false
	}
	return s, true
}

// runText reads a rich text object: the first run's text, then simpleText,
// then a plain string. Anything else is absent.
func (x *Extractor) runText(n *tree.Node) (string, bool) {
	if s, ok := x.str(n.Get(keyRuns).Index(0).Get(keyText)); ok {
		return s, true
	}
	if s, ok := x.str(n.Get(keySimpleText)); ok {
		return s, true
	}
	return x.str(n)
}

// simpleText reads a display string: simpleText, then all runs joined, then
// a plain number or string. Counts are often split across runs ("1 234",
// " views").
func (x *Extractor) simpleText(n *tree.Node) (string, bool) {
	if s, ok := x.str(n.Get(keySimpleText)); ok {
		return s, true
	}
	if s := joinRuns(n.Get(keyRuns)); s != "" {
		return s, true
	}
	if _, ok := n.Num(); ok && x.engine.Accept(n) {
		return n.String(), true
	}
	return x.str(n)
}

// countIn finds the first display string that carries a count followed by
// one of the words. For each word the first substring hit is tried, then
// every string scalar, then every rich text object with its runs joined.
func (x *Extractor) countIn(root *tree.Node, words []wordPattern) (string, bool) {
	for _, w := range words {
		if s, ok := x.engine.SubstringSearch(root, w.word, true); ok {
			if m := w.re.FindStringSubmatch(s); m != nil {
				return strings.TrimSpace(m[1]), true
			}
		}
		if m, ok := x.engine.PatternSearch(root, w.re); ok {
			return strings.TrimSpace(m[1]), true
		}
		if s, ok := joinedRunsMatch(root, w.re); ok {
			return s, true
		}
	}
	return "", false
}

// joinRuns concatenates the text of every run.
func joinRuns(runs *tree.Node) string {
	var b strings.Builder
	for _, run := range runs.Items() {
		if s, ok := run.Get(keyText).Str(); ok {
			b.WriteString(s)
		}
	}
	return b.String()
}

// joinedRunsMatch matches re against the joined runs of every rich text
// object in pre-order, for counts split as "345" + " видео".
func joinedRunsMatch(root *tree.Node, re *regexp.Regexp) (string, bool) {
	var found string
	tree.Walk(root, func(n *tree.Node) bool {
		if !n.Get(keyRuns).IsArray() {
			return true
		}
		s := joinRuns(n.Get(keyRuns))
		if m := re.FindStringSubmatch(s); m != nil {
			found = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	return found, found != ""
}

var defaultExtractor = New()

// FindVideoItems runs Extractor.FindVideoItems with the default extractor.
func FindVideoItems(root *tree.Node) []*tree.Node {
	return defaultExtractor.FindVideoItems(root)
}

// ParseVideoItem runs Extractor.ParseVideoItem with the default extractor.
func ParseVideoItem(node *tree.Node) (model.VideoRecord, bool) {
	return defaultExtractor.ParseVideoItem(node)
}

// ParseChannelMetadata runs Extractor.ParseChannelMetadata with the default extractor.
func ParseChannelMetadata(root *tree.Node) *model.ChannelRecord {
	return defaultExtractor.ParseChannelMetadata(root)
}

// ParsePrimaryVideoInfo runs Extractor.ParsePrimaryVideoInfo with the default extractor.
func ParsePrimaryVideoInfo(root *tree.Node) *model.VideoRecord {
	return defaultExtractor.ParsePrimaryVideoInfo(root)
}

// ParseChannelFromVideo runs Extractor.ParseChannelFromVideo with the default extractor.
func ParseChannelFromVideo(root *tree.Node) *model.ChannelRecord {
	return defaultExtractor.ParseChannelFromVideo(root)
}
