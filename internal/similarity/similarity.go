/*
Copyright 2025 Contaops Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package similarity provides the approximate string matching used for
// identity reconciliation when a ground-truth key (tax ID) is unavailable.
// Names are normalized before scoring; normalized forms are never displayed.
package similarity

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Decision thresholds for name-based matching. A score at or above
// ThresholdAutoLink links automatically; between ThresholdReview and
// ThresholdAutoLink the match is queued for human review; below
// ThresholdReview it is ignored.
const (
	ThresholdAutoLink = 0.85
	ThresholdReview   = 0.70
)

// Outcome classifies a similarity score into the three-way decision space.
type Outcome string

const (
	OutcomeAutoLink Outcome = "matched"
	OutcomeReview   Outcome = "review"
	OutcomeIgnore   Outcome = "ignored"
)

// winklerPrefixScale is the fraction of the remaining distance to 1.0 that
// each common leading character contributes, capped at maxPrefixLength.
const (
	winklerPrefixScale = 0.1
	maxPrefixLength    = 4
)

// legalSuffixes are corporate-form words dropped from names before scoring.
var legalSuffixes = map[string]bool{
	"LTDA":     true,
	"LIMITADA": true,
	"ME":       true,
	"EPP":      true,
	"EIRELI":   true,
	"SA":       true,
	"SS":       true,
	"SLU":      true,
	"CIA":      true,
}

var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicalizes a company name for similarity scoring:
// uppercase, diacritics stripped, legal-entity suffixes removed as whole
// words, punctuation dropped, whitespace collapsed.
func NormalizeName(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))

	if folded, _, err := transform.String(diacriticsRemover, upper); err == nil {
		upper = folded
	}

	// "S/A" and "S.A." collapse to the SA suffix token before punctuation
	// is stripped, otherwise they fall apart into stray single letters.
	upper = strings.ReplaceAll(upper, "S/A", "SA")
	upper = strings.ReplaceAll(upper, "S.A.", "SA")

	var b strings.Builder
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, token := range tokens {
		if legalSuffixes[token] {
			continue
		}
		kept = append(kept, token)
	}

	return strings.Join(kept, " ")
}

// JaroWinkler returns a symmetric similarity in [0, 1] between two strings.
// Identical strings (including two empty strings) score 1.0; if exactly one
// string is empty the score is 0.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	jaro := jaroSimilarity([]rune(a), []rune(b))
	if jaro == 0 {
		return 0
	}

	prefix := commonPrefixLength(a, b)
	return jaro + float64(prefix)*winklerPrefixScale*(1.0-jaro)
}

// Classify maps a similarity score onto the three-way outcome space.
func Classify(score float64) Outcome {
	switch {
	case score >= ThresholdAutoLink:
		return OutcomeAutoLink
	case score >= ThresholdReview:
		return OutcomeReview
	default:
		return OutcomeIgnore
	}
}

// EditDistance returns the Levenshtein distance between two strings. It is
// surfaced alongside the Jaro-Winkler score on review items so a reviewer
// sees both signals; it takes no part in the classification itself.
func EditDistance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

func jaroSimilarity(a, b []rune) float64 {
	lenA, lenB := len(a), len(b)

	// Match window is half the longer string's length minus one, floored
	// at zero.
	window := max(lenA, lenB)/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, lenA)
	matchedB := make([]bool, lenB)

	matches := 0
	for i := 0; i < lenA; i++ {
		low := i - window
		if low < 0 {
			low = 0
		}
		high := i + window
		if high > lenB-1 {
			high = lenB - 1
		}
		for j := low; j <= high; j++ {
			if matchedB[j] || a[i] != b[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < lenA; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(lenA) + m/float64(lenB) + (m-float64(transpositions))/m) / 3.0
}

func commonPrefixLength(a, b string) int {
	runesA, runesB := []rune(a), []rune(b)
	limit := maxPrefixLength
	if len(runesA) < limit {
		limit = len(runesA)
	}
	if len(runesB) < limit {
		limit = len(runesB)
	}

	prefix := 0
	for i := 0; i < limit; i++ {
		if runesA[i] != runesB[i] {
			break
		}
		prefix++
	}
	return prefix
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
