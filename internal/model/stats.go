package model

// AggregateStats are channel level totals over a set of video records.
//
// TotalVideos always equals the number of records aggregated. The other
// totals only include values that could be parsed, so a missing count and a
// genuine zero look the same.
type AggregateStats struct {
	TotalVideos   int     `json:"total_videos"`
	TotalViews    float64 `json:"total_views"`
	TotalLikes    float64 `json:"total_likes"`
	TotalComments float64 `json:"total_comments"`
}
