// Package categorize holds the keyword matching rules. Everything here is
// pure: callers load a Dictionary snapshot from the store, plan changes
// against a slice of rows and write the resulting change set themselves.
package categorize

import (
	"sort"
	"strings"
)

// Uncategorized is the default category and never a keyword target.
const Uncategorized = "Uncategorized"

// MatchMode selects how a keyword is compared to transaction details.
type MatchMode int

const (
	// Exact compares the trimmed, lowercased details for full equality.
	// Used when labelling rows at import or manual creation time.
	Exact MatchMode = iota
	// Substring checks whether the lowercased details contain the keyword.
	// Used by reconciliation after the dictionary changes.
	Substring
)

func (m MatchMode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Substring:
		return "substring"
	default:
		return "unknown"
	}
}

// NormalizeKeyword trims and lowercases a raw keyword.
func NormalizeKeyword(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Matches reports whether details match an already normalized keyword.
// An empty keyword never matches.
func (m MatchMode) Matches(details, keyword string) bool {
	if keyword == "" {
		return false
	}
	switch m {
	case Exact:
		return strings.ToLower(strings.TrimSpace(details)) == keyword
	case Substring:
		return strings.Contains(strings.ToLower(details), keyword)
	default:
		return false
	}
}

// Pair is one (category, keyword) entry of the dictionary.
type Pair struct {
	Category string
	Keyword  string
}

// Dictionary is an immutable snapshot of category -> keywords.
type Dictionary struct {
	categories []string
	keywords   map[string][]string
	pairs      []Pair
}

// NewDictionary normalizes entries into a snapshot. Keywords are trimmed,
// lowercased, deduplicated and sorted; empty keywords, empty category names,
// categories without keywords and the Uncategorized sentinel are dropped.
func NewDictionary(entries map[string][]string) Dictionary {
	d := Dictionary{keywords: make(map[string][]string, len(entries))}
	for category, raw := range entries {
		category = strings.TrimSpace(category)
		if category == "" || category == Uncategorized {
			continue
		}
		seen := make(map[string]struct{}, len(raw))
		for _, kw := range raw {
			kw = NormalizeKeyword(kw)
			if kw == "" {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			d.keywords[category] = append(d.keywords[category], kw)
		}
		if len(d.keywords[category]) == 0 {
			delete(d.keywords, category)
			continue
		}
		sort.Strings(d.keywords[category])
		d.categories = append(d.categories, category)
	}
	sort.Strings(d.categories)

	for _, category := range d.categories {
		for _, kw := range d.keywords[category] {
			d.pairs = append(d.pairs, Pair{Category: category, Keyword: kw})
		}
	}
	// Application order for reconciliation. The last matching pair wins, so
	// the longest keyword decides and equal lengths go to the alphabetically
	// first category.
	sort.SliceStable(d.pairs, func(i, j int) bool {
		a, b := d.pairs[i], d.pairs[j]
		if len(a.Keyword) != len(b.Keyword) {
			return len(a.Keyword) < len(b.Keyword)
		}
		if a.Category != b.Category {
			return a.Category > b.Category
		}
		return a.Keyword < b.Keyword
	})
	return d
}

// Categories returns the category names that own at least one keyword, sorted.
func (d Dictionary) Categories() []string {
	return append([]string(nil), d.categories...)
}

// Keywords returns the normalized keywords of a category.
func (d Dictionary) Keywords(category string) []string {
	return append([]string(nil), d.keywords[category]...)
}

// Len is the number of (category, keyword) entries.
func (d Dictionary) Len() int {
	return len(d.pairs)
}

// Match resolves details against the dictionary using mode.
//
// Exact walks categories alphabetically and returns the first category whose
// keyword set contains the normalized details. Substring applies every pair
// in reconciliation order and the last match wins.
func Match(details string, d Dictionary, mode MatchMode) (string, bool) {
	switch mode {
	case Exact:
		for _, category := range d.categories {
			for _, kw := range d.keywords[category] {
				if mode.Matches(details, kw) {
					return category, true
				}
			}
		}
	case Substring:
		winner, found := "", false
		for _, p := range d.pairs {
			if mode.Matches(details, p.Keyword) {
				winner, found = p.Category, true
			}
		}
		return winner, found
	}
	return "", false
}

// LabelNew returns the category for a freshly created transaction, or
// Uncategorized when no keyword equals its details exactly.
func LabelNew(details string, d Dictionary) string {
	if category, ok := Match(details, d, Exact); ok {
		return category
	}
	return Uncategorized
}
