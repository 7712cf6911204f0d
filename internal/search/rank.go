// Package search ranks short records against a free text query, and keeps the
// index of site pages offered by the command menu.
package search

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Match kinds, strongest first.
const (
	KindAll       = "all"
	KindPrefix    = "prefix"
	KindSubstring = "substring"
	KindFuzzy     = "fuzzy"
)

// Match is one ranked hit. Index points into the targets passed to Rank.
type Match struct {
	Index int
	Score int
	Kind  string
}

// Rank orders targets by relevance to query. Case-insensitive prefix matches
// come first, then substring matches, then fuzzy matches in score order. An
// empty query returns every target in its original order. A limit of zero or
// less means no limit.
func Rank(query string, targets []string, limit int) []Match {
	query = strings.TrimSpace(query)
	var matches []Match

	if query == "" {
		for i := range targets {
			matches = append(matches, Match{Index: i, Kind: KindAll})
		}
		return truncate(matches, limit)
	}

	lowerQuery := strings.ToLower(query)
	seen := make(map[int]bool, len(targets))

	var prefix, substring []Match
	for i, target := range targets {
		lower := strings.ToLower(target)
		switch {
		case strings.HasPrefix(lower, lowerQuery):
			prefix = append(prefix, Match{Index: i, Score: len(lowerQuery) * 3, Kind: KindPrefix})
			seen[i] = true
		case strings.Contains(lower, lowerQuery):
			substring = append(substring, Match{Index: i, Score: len(lowerQuery) * 2, Kind: KindSubstring})
			seen[i] = true
		}
	}
	matches = append(matches, prefix...)
	matches = append(matches, substring...)

	for _, result := range fuzzy.Find(query, targets) {
		if seen[result.Index] {
			continue
		}
		matches = append(matches, Match{Index: result.Index, Score: result.Score, Kind: KindFuzzy})
		seen[result.Index] = true
	}

	return truncate(matches, limit)
}

func truncate(matches []Match, limit int) []Match {
	if limit > 0 && len(matches) > limit {
		return slices.Clip(matches[:limit])
	}
	return matches
}
