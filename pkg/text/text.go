// Package text provides the string normalization and similarity primitives
// used to match property names against free-form ad titles. Similarity is a
// rune-trigram Jaccard index over accent-folded text, which behaves like the
// trigram similarity the registry's former Postgres backend provided.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder strips combining marks after NFD decomposition, so "Asunción"
// compares equal to "asuncion".
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and removes diacritics.
func Fold(s string) string {
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// normalize folds s and collapses every non-letter/digit run to a single space.
func normalize(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// trigramSet returns the set of rune trigrams of the normalized text.
// Strings shorter than three runes collapse to a single-member set.
func trigramSet(s string) map[string]struct{} {
	normalized := normalize(s)
	if normalized == "" {
		return nil
	}

	r := []rune(normalized)
	if len(r) < 3 {
		return map[string]struct{}{string(r): {}}
	}

	set := make(map[string]struct{}, len(r)-2)
	for i := 0; i <= len(r)-3; i++ {
		set[string(r[i:i+3])] = struct{}{}
	}
	return set
}

// TrigramSimilarity returns the Jaccard index of the trigram sets of a and b,
// in [0,1]. Empty or unparseable strings score 0.
func TrigramSimilarity(a, b string) float64 {
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
