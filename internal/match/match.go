// Package match scores free-text answers against canonical names and
// their accepted spellings.
package match

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, trims, collapses inner whitespace and strips
// diacritics so "São  Paulo" and "sao paulo" compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}
	return s
}

// Similarity returns a score in [0,1] for how closely a and b match
// after normalization, 1 meaning equal.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := fuzzy.LevenshteinDistance(na, nb)
	score := 1 - float64(dist)/float64(longest)
	if score < 0 {
		return 0
	}
	return score
}

// Similar returns the best similarity of input against the canonical
// name and every alias.
func Similar(input, canonical string, aliases []string) float64 {
	best := Similarity(input, canonical)
	for _, alias := range aliases {
		if s := Similarity(input, alias); s > best {
			best = s
		}
	}
	return best
}
