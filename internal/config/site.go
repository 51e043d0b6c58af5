package config

import (
	"fmt"
	"maps"
	"strings"

	"golang.org/x/text/language"

	"github.com/nao1215/ytscan/internal/search"
)

// SiteConfig holds request settings for one channel or video.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. "CONSENT=YES+1" to skip the
	// consent interstitial. Format: "name=value" or "a=1; b=2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global video depth. Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`
}

// VocabularyConfig lists extra locale words that label counts in display
// strings. They are added to the built-in Russian and English words.
type VocabularyConfig struct {
	Video      []string `yaml:"video,omitempty"`
	Subscriber []string `yaml:"subscriber,omitempty"`
	Comment    []string `yaml:"comment,omitempty"`
}

// File is the structure of the .ytscan configuration file.
type File struct {
	// Sites maps a target key (see SiteKey) to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every target unless a site overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Languages replaces the preferred page languages.
	Languages []string `yaml:"languages,omitempty"`

	// Units adds count suffixes and their multipliers, e.g. {"Mio": 1e6}.
	Units map[string]float64 `yaml:"units,omitempty"`

	// Vocabulary adds locale words for count extraction.
	Vocabulary VocabularyConfig `yaml:"vocabulary,omitempty"`

	// Policy is the falsy value policy ("skip-falsy" or "stop-on-present").
	Policy string `yaml:"policy,omitempty"`
}

// SiteKey returns the key a target is looked up by in File.Sites: the URL
// without scheme, "www." or "m.", query, fragment and trailing slash, e.g.
// "youtube.com/@example".
func SiteKey(target string) string {
	key := strings.ToLower(strings.TrimSpace(target))
	for _, prefix := range []string{"https://", "http://"} {
		key = strings.TrimPrefix(key, prefix)
	}
	for _, prefix := range []string{"www.", "m."} {
		key = strings.TrimPrefix(key, prefix)
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 && !strings.Contains(key[:i], "/watch") {
		key = key[:i]
	}
	return strings.TrimRight(key, "/")
}

// GetSiteConfig returns the settings for target with the defaults applied
// underneath. Header maps are copied, so the result may be modified.
func (cf *File) GetSiteConfig(target string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[SiteKey(target)]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	return result
}

// LanguageTags parses Languages. It returns nil when none are configured.
func (cf *File) LanguageTags() ([]language.Tag, error) {
	return ParseLanguages(cf.Languages)
}

// ParseLanguages parses BCP 47 tags.
func ParseLanguages(names []string) ([]language.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Validate checks units, languages and the policy name.
func (cf *File) Validate() error {
	for name, mult := range cf.Units {
		if strings.TrimSpace(name) == "" || mult <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidUnit, name)
		}
	}
	if _, err := cf.LanguageTags(); err != nil {
		return err
	}
	if _, err := search.ParsePolicy(cf.Policy); err != nil {
		return err
	}
	return nil
}
