// Package search implements the typo-tolerant matching used by catalog search.
package search

import (
	"strings"
	"unicode"
)

// maxEdits bounds how far two tokens may drift and still count as similar.
const maxEdits = 2

// Similarity decides whether two lowercase tokens are near-equal.
type Similarity func(a, b string) bool

// IsSimilar is the default heuristic. Two tokens match when they are equal,
// when one contains the other, or when their lengths differ by at most two and
// the positional mismatches over the shorter length plus the length difference
// stay within two. Transpositions and mid-string insertions are not handled.
func IsSimilar(a, b string) bool {
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	ra, rb := []rune(a), []rune(b)
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if diff > maxEdits {
		return false
	}

	mismatches := diff
	for i := 0; i < min(len(ra), len(rb)); i++ {
		if ra[i] != rb[i] {
			mismatches++
			if mismatches > maxEdits {
				return false
			}
		}
	}
	return true
}

// WithinEditDistance is a higher-recall alternative to IsSimilar that uses a
// true Levenshtein distance bounded by two edits.
func WithinEditDistance(a, b string) bool {
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return levenshtein([]rune(a), []rune(b)) <= maxEdits
}

// Tokenize lowercases s and splits it on whitespace.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace)
}

// Matcher applies a Similarity with the "any query token vs any field token"
// policy.
type Matcher struct {
	similar Similarity
}

// NewMatcher builds a matcher; nil falls back to IsSimilar.
func NewMatcher(similar Similarity) Matcher {
	if similar == nil {
		similar = IsSimilar
	}
	return Matcher{similar: similar}
}

// Matches reports whether any token of query is similar to any token drawn
// from fields. A blank query matches everything.
func (m Matcher) Matches(query string, fields ...string) bool {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return true
	}
	similar := m.similar
	if similar == nil {
		similar = IsSimilar
	}

	var fieldTokens []string
	for _, field := range fields {
		fieldTokens = append(fieldTokens, Tokenize(field)...)
	}
	for _, q := range queryTokens {
		for _, f := range fieldTokens {
			if similar(q, f) {
				return true
			}
		}
	}
	return false
}

// Matches uses the default heuristic.
func Matches(query string, fields ...string) bool {
	return NewMatcher(nil).Matches(query, fields...)
}

func levenshtein(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}
