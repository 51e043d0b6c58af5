package extract

import (
	"regexp"
	"strings"

	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/search"
	"github.com/nao1215/ytscan/internal/tree"
)

// FindVideoItems returns every object that carries an accepted string or
// number videoId and a title key, in pre-order. Matches nested in other
// matches are reported separately and nothing is deduplicated.
func (x *Extractor) FindVideoItems(root *tree.Node) []*tree.Node {
	var items []*tree.Node
	tree.Walk(root, func(n *tree.Node) bool {
		if !n.IsObject() || !n.Has(keyTitle) {
			return true
		}
		if _, ok := x.videoID(n.Get(keyVideoID)); ok {
			items = append(items, n)
		}
		return true
	})
	return items
}

// ParseVideoItem builds a record from a node returned by FindVideoItems.
// A numeric videoId is used in its JSON form. It reports false when the
// node has no accepted string or number videoId. The result depends only
// on node.
func (x *Extractor) ParseVideoItem(node *tree.Node) (model.VideoRecord, bool) {
	id, ok := x.videoID(node.Get(keyVideoID))
	if !ok {
		return model.VideoRecord{}, false
	}
	v := model.NewVideoRecord(id)

	if title := node.Get(keyTitle); title != nil {
		if s, ok := x.runText(title); ok {
			v.Title = &s
		} else if k := title.Kind(); k != tree.KindNull && k != tree.KindString {
			s := title.String()
			v.Title = &s
		}
	}
	if s, ok := x.simpleText(node.Get(keyViewCountText)); ok {
		v.Views = &s
	}
	if s, ok := x.str(node.Get(keyPublishedTimeText).Get(keySimpleText)); ok {
		v.Published = &s
	}
	if s, ok := x.str(node.Get(keyLengthText).Get(keySimpleText)); ok {
		v.Duration = &s
	}
	return v, true
}

func (x *Extractor) videoID(n *tree.Node) (string, bool) {
	if n.Kind() == tree.KindNumber && x.engine.Accept(n) {
		return n.String(), true
	}
	return x.str(n)
}

// VideoItems parses up to limit video records from root, in page order.
// A video listed more than once is returned once. limit <= 0 means no limit.
func (x *Extractor) VideoItems(root *tree.Node, limit int) []model.VideoRecord {
	var (
		videos []model.VideoRecord
		seen   = make(map[string]struct{})
	)
	for _, item := range x.FindVideoItems(root) {
		v, ok := x.ParseVideoItem(item)
		if !ok {
			continue
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		videos = append(videos, v)
		if limit > 0 && len(videos) >= limit {
			break
		}
	}
	return videos
}

// ParsePrimaryVideoInfo reads a watch page: title, views, publish date and
// likes from videoPrimaryInfoRenderer, the comment count from any display
// string, and the video ID from currentVideoEndpoint. It returns nil when
// none of these were found.
func (x *Extractor) ParsePrimaryVideoInfo(root *tree.Node) *model.VideoRecord {
	var (
		v     model.VideoRecord
		found bool
	)

	if info := x.engine.KeySearch(root, "videoPrimaryInfoRenderer"); info != nil {
		if s, ok := x.runText(info.Get(keyTitle)); ok {
			v.Title = &s
			found = true
		}
		viewCount := x.engine.PathLookup(info,
			search.Key("viewCount"), search.Key("videoViewCountRenderer"), search.Key("viewCount"))
		if s, ok := x.simpleText(viewCount); ok {
			v.Views = &s
			found = true
		}
		if s, ok := x.simpleText(info.Get("dateText")); ok {
			v.Published = &s
			found = true
		}
	}

	if s, ok := x.ParseLikes(root); ok {
		v.Likes = &s
		found = true
	}
	if s, ok := x.ParseComments(root); ok {
		v.Comments = &s
		found = true
	}

	if !found {
		return nil
	}

	idNode := x.engine.PathLookup(root,
		search.Key("currentVideoEndpoint"), search.Key("watchEndpoint"), search.Key(keyVideoID))
	if id, ok := x.str(idNode); ok {
		v.ID = id
		v.URL = model.WatchURLPrefix + id
	}
	return &v
}

// ParseLikes returns the like count text of a watch page. The button
// renderer inside videoPrimaryInfoRenderer is tried first, then the view
// model layout.
func (x *Extractor) ParseLikes(root *tree.Node) (string, bool) {
	info := x.engine.KeySearch(root, "videoPrimaryInfoRenderer")
	buttons := x.engine.PathLookup(info,
		search.Key("videoActions"), search.Key("menuRenderer"), search.Key("topLevelButtons"))
	for _, button := range buttons.Items() {
		text := x.engine.PathLookup(button,
			search.Key("segmentedLikeDislikeButtonRenderer"), search.Key("likeButton"),
			search.Key("toggleButtonRenderer"), search.Key("defaultText"))
		if s, ok := x.simpleText(text); ok {
			return s, true
		}
	}

	vm := x.engine.KeySearch(root, "segmentedLikeDislikeButtonViewModel")
	if vm == nil {
		return "", false
	}
	if s, ok := x.simpleText(x.engine.KeySearch(vm, "likeCount")); ok {
		return s, true
	}
	if s, ok := x.str(x.engine.KeySearch(x.engine.KeySearch(vm, "defaultButtonViewModel"), keyTitle)); ok {
		return s, true
	}
	if s, ok := x.str(x.engine.KeySearch(vm, "accessibilityText")); ok {
		if m := leadingCount.FindString(s); m != "" {
			return strings.TrimSpace(m), true
		}
	}
	return "", false
}

// leadingCount finds the first number in an accessibility label such as
// "like this video along with 12,345 other people".
var leadingCount = regexp.MustCompile(`\d[\d\p{Zs},.]*`)

// ParseComments returns the comment count text found next to one of the
// vocabulary's comment words.
func (x *Extractor) ParseComments(root *tree.Node) (string, bool) {
	return x.countIn(root, x.commentWords)
}
