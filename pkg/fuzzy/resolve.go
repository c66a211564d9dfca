package fuzzy

import (
	"sort"
	"strconv"
	"strings"
)

// Candidate is one reference row offered for matching.
type Candidate struct {
	Key   string
	Value string
}

// Match is a scored candidate.
type Match struct {
	Candidate
	Score int
	// Pos is the candidate's position in the input slice.
	Pos int
}

// Values wraps plain strings as candidates keyed by their position.
func Values(values []string) []Candidate {
	out := make([]Candidate, len(values))
	for i, v := range values {
		out[i] = Candidate{Key: strconv.Itoa(i), Value: v}
	}
	return out
}

// Extract scores query against every candidate and returns the best limit
// matches by descending score. Equal scores keep input order.
func Extract(query string, candidates []Candidate, limit int) []Match {
	matches := make([]Match, 0, len(candidates))
	for i, c := range candidates {
		matches = append(matches, Match{Candidate: c, Score: Score(query, c.Value), Pos: i})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Accepted returns the top limit matches scoring at least threshold.
func Accepted(query string, candidates []Candidate, limit, threshold int) []Match {
	var out []Match
	for _, m := range Extract(query, candidates, limit) {
		if m.Score >= threshold {
			out = append(out, m)
		}
	}
	return out
}

// Resolve joins the values of every accepted match with ", ". An empty
// string means no confident match, which is not an error.
func Resolve(query string, candidates []Candidate, limit, threshold int) string {
	accepted := Accepted(query, candidates, limit, threshold)
	vals := make([]string, len(accepted))
	for i, m := range accepted {
		vals[i] = m.Value
	}
	return strings.Join(vals, ", ")
}

// KeywordMatch looks for the last n characters of ident inside each keyword
// entry and returns the first candidate that contains it.
func KeywordMatch(ident string, n int, keywords []Candidate) (Candidate, bool) {
	r := []rune(strings.TrimSpace(ident))
	if len(r) == 0 || n <= 0 {
		return Candidate{}, false
	}
	if len(r) > n {
		r = r[len(r)-n:]
	}
	suffix := string(r)
	for _, c := range keywords {
		if c.Value != "" && strings.Contains(c.Value, suffix) {
			return c, true
		}
	}
	return Candidate{}, false
}
