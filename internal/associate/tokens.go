package associate

import (
	"unicode"

	"github.com/jbaudry/chronotrace/internal/model"
)

// span is a token's character range in the source text
type span struct {
	start, end int
}

// tokenize splits text into whitespace-delimited tokens, keeping offsets.
// Distances are measured over these tokens, so the same tokenization is used
// for every mention in a document.
func tokenize(text string) []span {
	var tokens []span
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, span{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, span{start: start, end: len(text)})
	}
	return tokens
}

// tokenRange finds the first and last token index overlapping the character
// span. A span falling entirely into whitespace snaps to the next token.
func tokenRange(tokens []span, s model.Span) (first, last int) {
	first, last = -1, -1
	for i, t := range tokens {
		if t.start < s.End && s.Start < t.end {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first >= 0 {
		return first, last
	}
	for i, t := range tokens {
		if t.start >= s.End {
			return i, i
		}
	}
	n := len(tokens) - 1
	return n, n
}

// tokenGap is the minimum gap in tokens between two spans: the number of
// whole tokens strictly between them, 0 if they overlap or are adjacent
func tokenGap(tokens []span, a, b model.Span) int {
	if len(tokens) == 0 {
		return 0
	}
	if a.Overlaps(b) {
		return 0
	}
	aFirst, aLast := tokenRange(tokens, a)
	bFirst, bLast := tokenRange(tokens, b)

	switch {
	case bFirst > aLast:
		return bFirst - aLast - 1
	case aFirst > bLast:
		return aFirst - bLast - 1
	default:
		return 0 // same token or interleaved ranges
	}
}

// charGap is the character distance between two non-overlapping spans,
// used only to order equidistant candidates deterministically
func charGap(a, b model.Span) int {
	switch {
	case b.Start >= a.End:
		return b.Start - a.End
	case a.Start >= b.End:
		return a.Start - b.End
	default:
		return 0
	}
}
