// Package fuzzy maps noisy free-text names onto reference tables.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Process lowercases s, turns every non letter/digit into a space and trims.
func Process(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio is the edit-distance similarity of a and b on a 0-100 scale.
func Ratio(a, b string) int {
	return int(math.Round(ratio(a, b)))
}

func ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 && lb == 0 {
		return 100
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * float64(longest-d) / float64(longest)
}

// partialRatio is the best ratio of the shorter string against every
// same-length window of the longer one.
func partialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	short := string(ra)
	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		r := ratio(short, string(rb[i:i+len(ra)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortedTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

func tokenSetParts(a, b string) (sect, diffAB, diffBA string) {
	set := func(s string) map[string]bool {
		m := map[string]bool{}
		for _, t := range strings.Fields(s) {
			m[t] = true
		}
		return m
	}
	sa, sb := set(a), set(b)
	var inter, onlyA, onlyB []string
	for t := range sa {
		if sb[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range sb {
		if !sa[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return strings.Join(inter, " "), strings.Join(onlyA, " "), strings.Join(onlyB, " ")
}

func joinNonEmpty(a, b string) string {
	return strings.TrimSpace(a + " " + b)
}

func tokenSetRatio(a, b string, score func(string, string) float64) float64 {
	sect, ab, ba := tokenSetParts(a, b)
	combA := joinNonEmpty(sect, ab)
	combB := joinNonEmpty(sect, ba)
	best := score(combA, combB)
	if sect != "" {
		best = math.Max(best, math.Max(score(sect, combA), score(sect, combB)))
	}
	return best
}

// Score is a weighted similarity in the style of fuzzywuzzy's WRatio: the
// best of plain, partial and token based ratios, scaled down for partial and
// token matches.
func Score(query, choice string) int {
	a, b := Process(query), Process(choice)
	if a == "" || b == "" {
		return 0
	}

	const unbaseScale = 0.95
	partialScale := 0.9

	base := ratio(a, b)
	la, lb := float64(len([]rune(a))), float64(len([]rune(b)))
	lenRatio := math.Max(la, lb) / math.Min(la, lb)

	if lenRatio < 1.5 {
		tsor := ratio(sortedTokens(a), sortedTokens(b)) * unbaseScale
		tser := tokenSetRatio(a, b, ratio) * unbaseScale
		return int(math.Round(math.Max(base, math.Max(tsor, tser))))
	}
	if lenRatio > 8 {
		partialScale = 0.6
	}
	partial := partialRatio(a, b) * partialScale
	ptsor := partialRatio(sortedTokens(a), sortedTokens(b)) * unbaseScale * partialScale
	ptser := tokenSetRatio(a, b, partialRatio) * unbaseScale * partialScale
	return int(math.Round(math.Max(math.Max(base, partial), math.Max(ptsor, ptser))))
}
