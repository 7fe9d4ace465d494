package source

import "strings"

// Filter matches text against a niche's keyword list. Collectors that pull
// from broad feeds (RSS, Reddit) use it to drop off-niche records.
type Filter struct {
	keywords []string
	exclude  []string
}

// NewFilter creates a filter over the given keywords, minus exclusions.
// Matching is case-insensitive substring.
func NewFilter(keywords, excludeKeywords []string) *Filter {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}

	exclude := make([]string, len(excludeKeywords))
	for i, kw := range excludeKeywords {
		exclude[i] = strings.ToLower(kw)
	}

	return &Filter{keywords: lowered, exclude: exclude}
}

// Matches returns true if text contains any niche keyword and no excluded
// keyword. An empty keyword list matches everything.
func (f *Filter) Matches(text string) bool {
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	if len(f.keywords) == 0 {
		return true
	}
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
