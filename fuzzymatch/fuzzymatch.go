// Package fuzzymatch finds approximate occurrences of a query inside
// extracted document text. Sources are normalized for whitespace and
// case, matched with windowed Levenshtein distance, and offsets are
// mapped back to the original text.
package fuzzymatch

import (
	"sort"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/cockroachdb/errors"
)

// DefaultThreshold is the minimum similarity score of a reported match.
const DefaultThreshold = 0.7

// Match is a span of the source text similar to the query.
type Match struct {
	// Start and End are byte offsets into the original text.
	Start int `json:"start" yaml:"Start"`
	End   int `json:"end" yaml:"End"`
	// Score is the normalized similarity in [0,1].
	Score float64 `json:"score" yaml:"Score"`
	Text  string  `json:"text" yaml:"Text"`
	// Path is the element path for XML sources, empty otherwise.
	Path string `json:"path,omitempty" yaml:"Path,omitempty"`
}

// Option configures Search.
type Option func(*options)

type options struct {
	threshold  float64
	maxMatches int
}

// WithThreshold sets the minimum similarity score.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithMaxMatches bounds the number of reported matches. Zero means all.
func WithMaxMatches(n int) Option {
	return func(o *options) {
		o.maxMatches = n
	}
}

// normalized holds the folded text and the mapping of every folded
// rune back to its byte offset in the source.
type normalized struct {
	runes   []rune
	offsets []int
	srcLen  int
}

// normalize lowercases the text and collapses whitespace runs into a
// single space, keeping per-rune source offsets.
func normalize(text string) normalized {
	n := normalized{srcLen: len(text)}
	space := true // swallow leading whitespace
	for i, r := range text {
		if unicode.IsSpace(r) {
			if space {
				continue
			}
			n.runes = append(n.runes, ' ')
			n.offsets = append(n.offsets, i)
			space = true
			continue
		}
		n.runes = append(n.runes, unicode.ToLower(r))
		n.offsets = append(n.offsets, i)
		space = false
	}
	// drop a trailing collapsed space
	if len(n.runes) > 0 && n.runes[len(n.runes)-1] == ' ' {
		n.runes = n.runes[:len(n.runes)-1]
		n.offsets = n.offsets[:len(n.offsets)-1]
	}
	return n
}

// srcEnd returns the source byte offset just past folded position i.
func (n normalized) srcEnd(i int) int {
	if i+1 < len(n.offsets) {
		return n.offsets[i+1]
	}
	return n.srcLen
}

// Search finds spans of text approximately equal to query.
// Matches are returned ordered by descending score.
func Search(text, query string, opts ...Option) ([]Match, error) {
	o := options{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if o.threshold <= 0 || o.threshold > 1 {
		return nil, errors.New("invalid threshold")
	}
	nq := normalize(query)
	if len(nq.runes) == 0 {
		return nil, errors.New("empty query")
	}
	nt := normalize(text)
	if len(nt.runes) == 0 {
		return nil, nil
	}

	qlen := len(nq.runes)
	qstr := string(nq.runes)

	// slide a query-sized window; step keeps cost linear while close
	// matches still overlap some window well enough to be refined
	step := qlen / 4
	if step < 1 {
		step = 1
	}

	type candidate struct {
		start int
		score float64
	}
	var cands []candidate
	for pos := 0; pos < len(nt.runes); pos += step {
		end := pos + qlen
		if end > len(nt.runes) {
			end = len(nt.runes)
		}
		score := similarity(string(nt.runes[pos:end]), qstr)
		if score >= o.threshold {
			cands = append(cands, candidate{start: pos, score: score})
		}
		if end == len(nt.runes) {
			break
		}
	}

	// refine each candidate region to the best-scoring exact window,
	// merging candidates that refine into overlapping spans
	var matches []Match
	used := make([]bool, len(nt.runes))
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	for _, c := range cands {
		start, end, score := refine(nt.runes, qstr, c.start, qlen)
		if score < o.threshold || used[start] {
			continue
		}
		overlap := false
		for i := start; i < end && i < len(used); i++ {
			if used[i] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for i := start; i < end && i < len(used); i++ {
			used[i] = true
		}

		srcStart := nt.offsets[start]
		srcEnd := nt.srcEnd(end - 1)
		matches = append(matches, Match{
			Start: srcStart,
			End:   srcEnd,
			Score: score,
			Text:  text[srcStart:srcEnd],
		})
	}

	sortMatches(matches)
	if o.maxMatches > 0 && len(matches) > o.maxMatches {
		matches = matches[:o.maxMatches]
	}
	return matches, nil
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

// refine tries nearby starts and lengths around a candidate window and
// returns the best span in folded coordinates.
func refine(runes []rune, query string, start, qlen int) (int, int, float64) {
	bestStart, bestEnd := start, start+qlen
	if bestEnd > len(runes) {
		bestEnd = len(runes)
	}
	bestScore := similarity(string(runes[bestStart:bestEnd]), query)

	delta := qlen / 4
	if delta < 2 {
		delta = 2
	}
	for s := start - delta; s <= start+delta; s++ {
		if s < 0 || s >= len(runes) {
			continue
		}
		for l := qlen - delta; l <= qlen+delta; l++ {
			if l < 1 {
				continue
			}
			e := s + l
			if e > len(runes) {
				e = len(runes)
			}
			score := similarity(string(runes[s:e]), query)
			if score > bestScore {
				bestStart, bestEnd, bestScore = s, e, score
			}
		}
	}
	return bestStart, bestEnd, bestScore
}

// similarity converts edit distance to a [0,1] score.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max)
}
