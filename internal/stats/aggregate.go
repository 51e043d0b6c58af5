package stats

import "github.com/nao1215/ytscan/internal/model"

// Field is a numeric field of a video record.
type Field int

const (
	// Views is VideoRecord.Views.
	Views Field = iota
	// Likes is VideoRecord.Likes.
	Likes
	// Comments is VideoRecord.Comments.
	Comments
)

// Fields lists every aggregated field.
var Fields = []Field{Views, Likes, Comments}

// String returns the field name.
func (f Field) String() string {
	switch f {
	case Views:
		return "views"
	case Likes:
		return "likes"
	case Comments:
		return "comments"
	default:
		return "unknown"
	}
}

// Of returns the text of the field in v, or nil when it is absent.
func (f Field) Of(v model.VideoRecord) *string {
	switch f {
	case Views:
		return v.Views
	case Likes:
		return v.Likes
	case Comments:
		return v.Comments
	default:
		return nil
	}
}

// total returns the address of the sum for f in s.
func (f Field) total(s *model.AggregateStats) *float64 {
	switch f {
	case Views:
		return &s.TotalViews
	case Likes:
		return &s.TotalLikes
	default:
		return &s.TotalComments
	}
}

// Aggregate sums the counts of videos. TotalVideos is len(videos); the other
// totals include only fields that are present and parse. The result does not
// depend on the order of videos.
func (n Normalizer) Aggregate(videos []model.VideoRecord) model.AggregateStats {
	s := model.AggregateStats{TotalVideos: len(videos)}
	for _, v := range videos {
		for _, f := range Fields {
			if count, ok := n.ParseField(f.Of(v)); ok {
				*f.total(&s) += count
			}
		}
	}
	return s
}

// Aggregate runs Normalizer.Aggregate with DefaultUnits.
func Aggregate(videos []model.VideoRecord) model.AggregateStats {
	return Normalizer{Units: DefaultUnits}.Aggregate(videos)
}
