// Package textsplit segments documents into chunks suitable for LLM
// context windows. A strategy is picked from the document shape unless
// one is forced, and every segment keeps its offsets into the source.
package textsplit

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Strategy selects how a document is segmented.
type Strategy string

const (
	// StrategyAuto picks a strategy from the document shape.
	StrategyAuto Strategy = "auto"
	// StrategyMarkdown splits on markdown headings.
	StrategyMarkdown Strategy = "markdown"
	// StrategyParagraph splits on blank lines.
	StrategyParagraph Strategy = "paragraph"
	// StrategySentence groups sentences into windows.
	StrategySentence Strategy = "sentence"
	// StrategyFixed cuts fixed-size character windows.
	StrategyFixed Strategy = "fixed"
)

// DefaultMaxSize is the segment size limit in characters.
const DefaultMaxSize = 2000

// DefaultOverlap is the number of characters shared between adjacent
// fixed windows and oversized-segment splits.
const DefaultOverlap = 200

// Segment is one chunk of the source document.
type Segment struct {
	// Index is the position of the segment in the output.
	Index int `json:"index" yaml:"Index"`
	// Start and End are byte offsets into the source document.
	Start int `json:"start" yaml:"Start"`
	End   int `json:"end" yaml:"End"`
	// Strategy is the strategy that produced the segment.
	Strategy Strategy `json:"strategy" yaml:"Strategy"`
	Text     string   `json:"text" yaml:"Text"`
}

// Option configures Split.
type Option func(*options)

type options struct {
	strategy Strategy
	maxSize  int
	overlap  int
}

// WithStrategy forces a segmentation strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithMaxSize sets the segment size limit in characters.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithOverlap sets the overlap between adjacent windows.
func WithOverlap(n int) Option {
	return func(o *options) {
		o.overlap = n
	}
}

// Split segments the document. Segments never exceed the size limit:
// oversized sections are re-cut into overlapping fixed windows.
func Split(text string, opts ...Option) ([]Segment, error) {
	o := options{
		strategy: StrategyAuto,
		maxSize:  DefaultMaxSize,
		overlap:  DefaultOverlap,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxSize <= 0 {
		return nil, errors.New("invalid max size")
	}
	if o.overlap < 0 || o.overlap >= o.maxSize {
		return nil, errors.New("invalid overlap")
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	strategy := o.strategy
	if strategy == StrategyAuto {
		strategy = SelectStrategy(text)
	}

	var spans []span
	switch strategy {
	case StrategyMarkdown:
		spans = splitMarkdown(text)
	case StrategyParagraph:
		spans = splitParagraphs(text)
	case StrategySentence:
		spans = splitSentences(text, o.maxSize)
	case StrategyFixed:
		spans = splitFixed(text, 0, len(text), o.maxSize, o.overlap)
	default:
		return nil, errors.Newf("unknown strategy: %q", o.strategy)
	}

	// enforce the size limit by re-cutting oversized spans
	var out []Segment
	for _, sp := range spans {
		if sp.end-sp.start <= o.maxSize {
			out = appendSegment(out, text, sp.start, sp.end, strategy)
			continue
		}
		for _, sub := range splitFixed(text, sp.start, sp.end, o.maxSize, o.overlap) {
			out = appendSegment(out, text, sub.start, sub.end, strategy)
		}
	}
	return out, nil
}

type span struct {
	start int
	end   int
}

func appendSegment(out []Segment, text string, start, end int, strategy Strategy) []Segment {
	seg := text[start:end]
	if strings.TrimSpace(seg) == "" {
		return out
	}
	return append(out, Segment{
		Index:    len(out),
		Start:    start,
		End:      end,
		Strategy: strategy,
		Text:     seg,
	})
}

// SelectStrategy inspects the document shape: markdown when headings
// are frequent enough, paragraphs when blank-line blocks are
// reasonably sized, sentences for flowing prose, and fixed windows
// for text with no usable structure.
func SelectStrategy(text string) Strategy {
	lines := strings.Split(text, "\n")

	headings := 0
	for _, line := range lines {
		if isHeading(line) {
			headings++
		}
	}
	// one heading roughly per screen of text
	if headings >= 2 && len(lines)/(headings+1) <= 40 {
		return StrategyMarkdown
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) >= 2 {
		total := 0
		for _, p := range paragraphs {
			total += p.end - p.start
		}
		if total/len(paragraphs) <= DefaultMaxSize {
			return StrategyParagraph
		}
	}

	if hasSentences(text) {
		return StrategySentence
	}
	return StrategyFixed
}

func isHeading(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	rest := strings.TrimLeft(trimmed, "#")
	return strings.HasPrefix(rest, " ") || rest == ""
}

// splitMarkdown cuts the document at heading lines, each section
// starting with its heading.
func splitMarkdown(text string) []span {
	var spans []span
	start := 0
	offset := 0
	first := true
	for _, line := range strings.SplitAfter(text, "\n") {
		if isHeading(strings.TrimSuffix(line, "\n")) && !first {
			if offset > start {
				spans = append(spans, span{start: start, end: offset})
			}
			start = offset
		}
		if isHeading(strings.TrimSuffix(line, "\n")) {
			first = false
		}
		offset += len(line)
	}
	if offset > start {
		spans = append(spans, span{start: start, end: offset})
	}
	return spans
}

// splitParagraphs cuts the document at blank lines.
func splitParagraphs(text string) []span {
	var spans []span
	start := -1
	offset := 0
	blank := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.TrimSpace(line) == "" {
			blank += len(line)
			offset += len(line)
			continue
		}
		if start == -1 || blank > 0 {
			if start != -1 {
				spans = append(spans, span{start: start, end: offset - blank})
			}
			start = offset
		}
		blank = 0
		offset += len(line)
	}
	if start != -1 && offset > start {
		spans = append(spans, span{start: start, end: offset - blank})
	}
	return spans
}

// sentenceEnd reports whether text[i] terminates a sentence.
func sentenceEnd(text string, i int) bool {
	c := text[i]
	if c != '.' && c != '!' && c != '?' {
		return false
	}
	if i+1 >= len(text) {
		return true
	}
	next := text[i+1]
	return next == ' ' || next == '\n' || next == '\t'
}

func hasSentences(text string) bool {
	count := 0
	for i := 0; i < len(text); i++ {
		if sentenceEnd(text, i) {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

// splitSentences packs whole sentences into windows up to the size limit.
func splitSentences(text string, maxSize int) []span {
	var spans []span
	winStart := 0
	sentStart := 0
	for i := 0; i < len(text); i++ {
		if !sentenceEnd(text, i) {
			continue
		}
		sentEnd := i + 1
		if sentEnd-winStart > maxSize && sentStart > winStart {
			spans = append(spans, span{start: winStart, end: sentStart})
			winStart = sentStart
		}
		sentStart = sentEnd
	}
	if len(text) > winStart {
		if len(text)-winStart > maxSize && sentStart > winStart {
			spans = append(spans, span{start: winStart, end: sentStart})
			winStart = sentStart
		}
		spans = append(spans, span{start: winStart, end: len(text)})
	}
	return spans
}

// splitFixed cuts [start,end) into windows of at most maxSize
// characters, each sharing overlap characters with its predecessor.
func splitFixed(text string, start, end, maxSize, overlap int) []span {
	var spans []span
	step := maxSize - overlap
	for pos := start; pos < end; pos += step {
		winEnd := pos + maxSize
		if winEnd >= end {
			spans = append(spans, span{start: pos, end: end})
			break
		}
		spans = append(spans, span{start: pos, end: winEnd})
	}
	return spans
}
