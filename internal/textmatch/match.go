// Package textmatch ranks candidate strings by similarity to a query.
package textmatch

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Match is a scored candidate. Score is a similarity ratio in 0..100.
type Match struct {
	Value string
	Score int
}

// Ratio returns the similarity ratio between a and b in 0..100.
func Ratio(a, b string) int {
	return fuzzy.Ratio(a, b)
}

// CloseMatches returns up to n candidates whose similarity to query reaches
// cutoff (0..100), best first. Ties keep the candidates' original order.
func CloseMatches(query string, candidates []string, n, cutoff int) []Match {
	if n <= 0 {
		return nil
	}
	scored := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if s := fuzzy.Ratio(query, c); s >= cutoff {
			scored = append(scored, Match{Value: c, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// Best returns the single closest candidate at or above cutoff, and whether
// one was found.
func Best(query string, candidates []string, cutoff int) (Match, bool) {
	m := CloseMatches(query, candidates, 1, cutoff)
	if len(m) == 0 {
		return Match{}, false
	}
	return m[0], true
}
