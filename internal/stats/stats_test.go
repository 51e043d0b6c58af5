package stats

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/ytscan/internal/model"
)

// TestParseCount tests normalization of displayed counts.
func TestParseCount(t *testing.T) {
	t.Parallel()

	units := UnitTable{"тыс": 1000, "млн": 1000000}

	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"decimal comma with thousands unit", "1,2 тыс", 1200, true},
		{"millions", "3 млн", 3000000, true},
		{"space separated thousands", "12 345", 12345, true},
		{"empty", "", 0, false},
		{"unit word only", "просмотров", 0, false},
		{"trailing unit word", "1 234 просмотра", 1234, true},
		{"abbreviated unit with dot and unit word", "1,2 тыс. просмотров", 1200, true},
		{"no-break spaces", "12 345 просмотров", 12345, true},
		{"narrow no-break spaces", "1 000 000", 1000000, true},
		{"comma thousands without unit", "12,345", 12345, true},
		{"unknown word is not a unit", "5 Bewertungen", 5, true},
		{"no digits", "Нет просмотров", 0, false},
		{"plain integer", "500", 500, true},
		{"spelled out thousands", "5 тысяч просмотров", 5000, true},
		{"abbreviation with dot", "2 млн.", 2000000, true},
		{"capitalized unit", "3 Тыс.", 3000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseCount(tt.text, units)
			if ok != tt.found || got != tt.want {
				t.Errorf("ParseCount(%q) = %v/%v, expected %v/%v", tt.text, got, ok, tt.want, tt.found)
			}
		})
	}
}

// TestParseCountDefaultUnits tests the English abbreviations.
func TestParseCountDefaultUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want float64
	}{
		{"1.2M views", 1200000},
		{"3.4K likes", 3400},
		{"987K subscribers", 987000},
		{"1,5 млрд", 1500000000},
		{"15k", 15000},
		{"1,234 comments", 1234},
		{"5 тысяч", 5000},
		{"2 млн.", 2000000},
		{"1,5 млрд просмотров", 1500000000},
		{"5 Bewertungen", 5},
		{"2 Mal", 2},
	}

	for _, tt := range tests {
		got, ok := ParseCount(tt.text, DefaultUnits)
		if !ok || got != tt.want {
			t.Errorf("ParseCount(%q) = %v/%v, expected %v", tt.text, got, ok, tt.want)
		}
	}
}

// TestParseCountOutOfRange tests that huge digit runs are clamped.
func TestParseCountOutOfRange(t *testing.T) {
	t.Parallel()

	got, ok := ParseCount(strings.Repeat("9", 400), DefaultUnits)
	if !ok || got != math.MaxFloat64 {
		t.Errorf("got %v/%v, expected %v/true", got, ok, math.MaxFloat64)
	}
}

// TestNormalizer tests a normalizer with extra units.
func TestNormalizer(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(UnitTable{"Mio": 1e6})
	if got, ok := n.Parse("2,5 Mio"); !ok || got != 2500000 {
		t.Errorf("got %v/%v, expected 2500000", got, ok)
	}
	if got, ok := n.Parse("2 тыс"); !ok || got != 2000 {
		t.Errorf("default units lost: got %v/%v", got, ok)
	}
	if _, ok := n.ParseField(nil); ok {
		t.Error("absent field should not parse")
	}

	var zero Normalizer
	if got, ok := zero.Parse("1 млн"); !ok || got != 1e6 {
		t.Errorf("zero normalizer should use default units, got %v/%v", got, ok)
	}
}

// TestAggregate tests totals over video records.
func TestAggregate(t *testing.T) {
	t.Parallel()

	t.Run("counts every record but sums parsed fields only", func(t *testing.T) {
		t.Parallel()

		videos := []model.VideoRecord{
			{ID: "a", Views: model.Ptr("1 тыс")},
			{ID: "b", Views: model.Ptr("500")},
			{ID: "c"},
		}

		got := Aggregate(videos)
		want := model.AggregateStats{TotalVideos: 3, TotalViews: 1500}
		if got != want {
			t.Errorf("got %+v, expected %+v", got, want)
		}
	})

	t.Run("all fields share one parser", func(t *testing.T) {
		t.Parallel()

		videos := []model.VideoRecord{
			{ID: "a", Views: model.Ptr("2 млн"), Likes: model.Ptr("1,5 тыс"), Comments: model.Ptr("12 комментариев")},
			{ID: "b", Views: model.Ptr("n/a"), Likes: model.Ptr("10"), Comments: model.Ptr("")},
		}

		got := Aggregate(videos)
		want := model.AggregateStats{TotalVideos: 2, TotalViews: 2000000, TotalLikes: 1510, TotalComments: 12}
		if got != want {
			t.Errorf("got %+v, expected %+v", got, want)
		}
	})

	t.Run("order independent", func(t *testing.T) {
		t.Parallel()

		videos := []model.VideoRecord{
			{ID: "a", Views: model.Ptr("1,2 тыс"), Likes: model.Ptr("7")},
			{ID: "b", Views: model.Ptr("3 млн")},
			{ID: "c", Comments: model.Ptr("4")},
		}
		reversed := slices.Clone(videos)
		slices.Reverse(reversed)

		if a, b := Aggregate(videos), Aggregate(reversed); a != b {
			t.Errorf("got %+v and %+v", a, b)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := Aggregate(nil); got != (model.AggregateStats{}) {
			t.Errorf("got %+v", got)
		}
	})
}

// TestFieldOf tests field selection.
func TestFieldOf(t *testing.T) {
	t.Parallel()

	v := model.VideoRecord{Views: model.Ptr("v"), Likes: model.Ptr("l"), Comments: model.Ptr("c")}
	for _, f := range Fields {
		if got := model.Value(f.Of(v)); got != f.String()[:1] {
			t.Errorf("%s: got %q", f, got)
		}
	}
}
