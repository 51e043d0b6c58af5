package stats

import (
	"errors"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnitTable maps a suffix token such as "тыс" or "K" to its multiplier.
// Tokens are matched case-insensitively at the start of the word that
// follows the number, so "тыс" also covers "тысяч". Single letter tokens
// must be the whole word: "5 Bewertungen" carries no "B".
type UnitTable map[string]float64

// DefaultUnits covers the Russian and English abbreviations YouTube uses.
var DefaultUnits = UnitTable{
	"тыс":  1e3,
	"млн":  1e6,
	"млрд": 1e9,
	"K":    1e3,
	"M":    1e6,
	"B":    1e9,
}

// Merge returns a new table holding t overlaid with extra.
func (t UnitTable) Merge(extra UnitTable) UnitTable {
	out := make(UnitTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// lookup returns the multiplier of the first table key that starts token.
// Longer keys are tried first, so "млрд" wins over a shorter key and the
// result does not depend on map iteration order.
func (t UnitTable) lookup(token string) (float64, bool) {
	if token == "" {
		return 0, false
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if d := len(b) - len(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	word := []rune(token)
	for _, k := range keys {
		n := utf8.RuneCountInString(k)
		if n == 0 || n > len(word) || (n == 1 && len(word) > 1) {
			continue
		}
		if strings.EqualFold(k, string(word[:n])) {
			return t[k], true
		}
	}
	return 0, false
}

// unitWords are the count nouns that follow a number on the page.
var unitWords = regexp.MustCompile(`(?i)(просмотр\pL*|views?|лайк\pL*|likes?|комментари\pL*|comments?|подписчик\pL*|subscribers?|видео|videos?)\s*$`)

// numericPrefix captures the number and the text right after it.
var numericPrefix = regexp.MustCompile(`^([\d\s.,]*\d[\d\s.,]*?)\s*(\pL*)`)

// ParseCount converts a count as displayed on YouTube into a number.
//
// "1,2 тыс" is 1200, "3 млн" is 3000000 and "12 345" is 12345. A number
// followed by a unit token is read as a decimal with either ',' or '.' as
// the decimal mark. Without a unit every non-digit is dropped, so thousands
// separators of any locale are ignored. Numbers beyond float64 range are
// clamped to math.MaxFloat64. ParseCount reports false when the text holds
// no digits.
func ParseCount(text string, units UnitTable) (float64, bool) {
	s := normalizeSpaces(text)
	s = strings.TrimSpace(unitWords.ReplaceAllString(s, ""))
	if s == "" {
		return 0, false
	}

	if m := numericPrefix.FindStringSubmatch(s); m != nil {
		if mult, ok := units.lookup(m[2]); ok {
			if f, ok := parseDecimal(m[1]); ok {
				return math.Round(f * mult), true
			}
		}
	}
	return parseDigits(s)
}

// normalizeSpaces maps every Unicode space, including U+00A0 and U+202F
// which YouTube puts between digit groups, to ' '.
func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// parseDecimal reads "1,2", "1.5" or "1 234,5". The last ',' or '.' is the
// decimal mark; spaces and earlier marks are thousands separators.
func parseDecimal(s string) (float64, bool) {
	s = strings.ReplaceAll(s, " ", "")
	if i := strings.LastIndexAny(s, ".,"); i >= 0 {
		intPart := strings.NewReplacer(".", "", ",", "").Replace(s[:i])
		s = intPart + "." + s[i+1:]
	}
	return parseFloat(s)
}

func parseDigits(s string) (float64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, false
	}
	return parseFloat(digits)
}

// parseFloat parses s, clamping values beyond float64 range to
// math.MaxFloat64.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err == nil:
		return f, true
	case errors.Is(err, strconv.ErrRange):
		return min(f, math.MaxFloat64), true
	default:
		return 0, false
	}
}

// Normalizer parses counts with a fixed unit table.
type Normalizer struct {
	Units UnitTable
}

// NewNormalizer returns a Normalizer over DefaultUnits plus extra.
func NewNormalizer(extra UnitTable) Normalizer {
	return Normalizer{Units: DefaultUnits.Merge(extra)}
}

// Parse runs ParseCount with the normalizer's units.
func (n Normalizer) Parse(text string) (float64, bool) {
	units := n.Units
	if units == nil {
		units = DefaultUnits
	}
	return ParseCount(text, units)
}

// ParseField parses an optional count, reporting false when it is absent.
func (n Normalizer) ParseField(p *string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return n.Parse(*p)
}
