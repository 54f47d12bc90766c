// Package dedupe scores company-name similarity for duplicate detection.
//
// The score is a heuristic tuned for corporate-suffix noise ("Tractorul
// Brașov SA" vs "tractorul brasov"), not an edit-distance metric: it will
// not catch typos, and that is a deliberate trade of recall for precision.
package dedupe

import (
	"strings"
	"unicode"
)

// Legal-form tokens stripped from either end of a company name before
// comparison. Romanian forms first, then the common international ones.
var legalForms = map[string]bool{
	"sc": true, "sa": true, "srl": true, "scs": true, "snc": true,
	"ra": true, "pfa": true, "srld": true,
	"ltd": true, "inc": true, "corp": true, "llc": true, "gmbh": true,
	"co": true, "plc": true,
}

// diacriticFold maps Romanian diacritics to their ASCII base letters.
// Source data mixes the two spellings freely.
var diacriticFold = map[rune]rune{
	'ă': 'a', 'â': 'a', 'î': 'i', 'ș': 's', 'ş': 's', 'ț': 't', 'ţ': 't',
	'Ă': 'a', 'Â': 'a', 'Î': 'i', 'Ș': 's', 'Ş': 's', 'Ț': 't', 'Ţ': 't',
}

// NormalizeName canonicalizes a company name for comparison: lowercase,
// diacritics folded, punctuation dropped, legal-form tokens stripped from
// both ends, whitespace collapsed. Punctuation is removed rather than
// replaced so dotted abbreviations collapse ("S.C." -> "sc").
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if folded, ok := diacriticFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())

	// Strip legal forms from the front, then from the back. Only ends:
	// a legal-form token in the middle of a name is part of the name.
	for len(tokens) > 1 && legalForms[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 1 && legalForms[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// Similarity scores how close two company names are, in [0, 1].
//
//	1.0  exact match after normalization
//	0.8  one normalized name contains the other
//	else token-overlap ratio with the larger token count as denominator,
//	     which keeps the score symmetric
func Similarity(a, b string) float64 {
	na := NormalizeName(a)
	nb := NormalizeName(b)

	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.8
	}

	tokensA := strings.Fields(na)
	tokensB := strings.Fields(nb)

	matched := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				matched++
				break
			}
		}
	}

	denom := len(tokensA)
	if len(tokensB) > denom {
		denom = len(tokensB)
	}
	return float64(matched) / float64(denom)
}

// Default thresholds observed in the production configuration: candidates
// at or above Soft get a warning, at or above Hard a pre-fill suggestion
// (and, when the caller opts in, a skip).
const (
	SoftThreshold = 0.6
	HardThreshold = 0.8
)
