package model

// ChannelRecord is what could be extracted about a channel.
type ChannelRecord struct {
	// URL is the channel page that was scanned, or the canonical channel
	// path when the record was built from a watch page.
	URL string `json:"url"`

	// ID is the channel ID (UC...).
	ID *string `json:"id,omitempty"`

	// Name is the channel title.
	Name *string `json:"name,omitempty"`

	// Description is the channel description.
	Description *string `json:"description,omitempty"`

	// Subscribers is the subscriber count text.
	Subscribers *string `json:"subscribers,omitempty"`

	// VideoCount is the number of videos the channel header advertises.
	VideoCount *int `json:"video_count,omitempty"`

	// Videos are the video records found on the channel's videos tab,
	// in page order.
	Videos []VideoRecord `json:"videos,omitempty"`
}

// Merge fills the fields of c that are still absent from other.
// Videos are taken from other only when c has none.
func (c *ChannelRecord) Merge(other ChannelRecord) {
	if c.URL == "" {
		c.URL = other.URL
	}
	fill(&c.ID, other.ID)
	fill(&c.Name, other.Name)
	fill(&c.Description, other.Description)
	fill(&c.Subscribers, other.Subscribers)
	fill(&c.VideoCount, other.VideoCount)
	if len(c.Videos) == 0 && len(other.Videos) > 0 {
		c.Videos = append([]VideoRecord(nil), other.Videos...)
	}
}
