package extract

import (
	"strings"

	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/search"
	"github.com/nao1215/ytscan/internal/tree"
)

// channelContainers returns the known channel containers of a channel page
// in priority order: the two fixed paths, then a key search for each known
// renderer when neither path resolved.
func (x *Extractor) channelContainers(root *tree.Node) []*tree.Node {
	var out []*tree.Node
	add := func(n *tree.Node) {
		if n == nil || !n.IsObject() {
			return
		}
		for _, seen := range out {
			if seen == n {
				return
			}
		}
		out = append(out, n)
	}

	add(x.engine.PathLookup(root, search.Key("metadata"), search.Key("channelMetadataRenderer")))
	add(x.engine.PathLookup(root, search.Key("header"), search.Key("c4TabbedHeaderRenderer")))
	if len(out) > 0 {
		return out
	}
	for _, key := range []string{"channelMetadataRenderer", "c4TabbedHeaderRenderer", "pageHeaderRenderer"} {
		add(x.engine.KeySearch(root, key))
	}
	return out
}

// ParseChannelMetadata reads the channel name, description, ID and
// subscriber text from the channel page containers. Containers are merged
// in priority order without overwriting. It returns nil when the document
// has none of the known containers.
func (x *Extractor) ParseChannelMetadata(root *tree.Node) *model.ChannelRecord {
	containers := x.channelContainers(root)
	if len(containers) == 0 {
		return nil
	}

	c := &model.ChannelRecord{}
	for _, n := range containers {
		c.Merge(x.channelFrom(n))
	}
	return c
}

func (x *Extractor) channelFrom(n *tree.Node) model.ChannelRecord {
	var c model.ChannelRecord
	if s, ok := x.runText(n.Get(keyTitle)); ok {
		c.Name = &s
	} else if s, ok := x.str(n.Get("pageTitle")); ok {
		c.Name = &s
	}
	if s, ok := x.simpleText(n.Get("description")); ok {
		c.Description = &s
	}
	if s, ok := x.str(n.Get("externalId")); ok {
		c.ID = &s
	} else if s, ok := x.str(n.Get("channelId")); ok {
		c.ID = &s
	}
	if s, ok := x.simpleText(n.Get(keySubscriberCountText)); ok {
		c.Subscribers = &s
	}
	if s, ok := x.str(n.Get("vanityChannelUrl")); ok {
		c.URL = s
	} else if s, ok := x.str(n.Get("channelUrl")); ok {
		c.URL = s
	}
	return c
}

// ParseChannelStats finds the video count and subscriber count in the
// display strings of a channel page, next to the vocabulary words. It
// returns nil when neither was found.
func (x *Extractor) ParseChannelStats(root *tree.Node) *model.ChannelRecord {
	var (
		c     model.ChannelRecord
		found bool
	)
	if s, ok := x.countIn(root, x.videoWords); ok {
		if n, ok := x.normalizer.Parse(s); ok {
			count := int(n)
			c.VideoCount = &count
			found = true
		}
	}
	if s, ok := x.countIn(root, x.subscriberWords); ok {
		c.Subscribers = &s
		found = true
	}
	if !found {
		return nil
	}
	return &c
}

// ParseChannel combines ParseChannelMetadata and ParseChannelStats. Values
// from the metadata containers take precedence. It returns nil when both
// found nothing.
func (x *Extractor) ParseChannel(root *tree.Node) *model.ChannelRecord {
	meta := x.ParseChannelMetadata(root)
	st := x.ParseChannelStats(root)
	switch {
	case meta == nil && st == nil:
		return nil
	case meta == nil:
		return st
	case st != nil:
		meta.Merge(*st)
	}
	return meta
}

// ParseChannelFromVideo reads the owner of a watch page from
// videoOwnerRenderer. It returns nil when the renderer is missing or
// carries none of the known fields.
func (x *Extractor) ParseChannelFromVideo(root *tree.Node) *model.ChannelRecord {
	owner := x.engine.KeySearch(root, "videoOwnerRenderer")
	if owner == nil {
		return nil
	}

	var (
		c     model.ChannelRecord
		found bool
	)
	if s, ok := x.runText(owner.Get(keyTitle)); ok {
		c.Name = &s
		found = true
	}
	if s, ok := x.simpleText(owner.Get(keySubscriberCountText)); ok {
		c.Subscribers = &s
		found = true
	}

	browse := owner.Get("navigationEndpoint").Get("browseEndpoint")
	if browse == nil {
		browse = x.engine.PathLookup(owner, search.Key("navigationEndpoint"), search.Key("browseEndpoint"))
	}
	if s, ok := x.str(browse.Get("browseId")); ok {
		c.ID = &s
		found = true
	}
	if s, ok := x.str(browse.Get("canonicalBaseUrl")); ok {
		c.URL = absoluteURL(s)
		found = true
	} else if c.ID != nil {
		c.URL = canonicalHost + "/channel/" + *c.ID
	}

	if !found {
		return nil
	}
	return &c
}

// ParseChannel runs Extractor.ParseChannel with the default extractor.
func ParseChannel(root *tree.Node) *model.ChannelRecord {
	return defaultExtractor.ParseChannel(root)
}

// ParseChannelStats runs Extractor.ParseChannelStats with the default extractor.
func ParseChannelStats(root *tree.Node) *model.ChannelRecord {
	return defaultExtractor.ParseChannelStats(root)
}

func absoluteURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return canonicalHost + path
	}
	return path
}
