package chunking

import "regexp"

// sectionPatterns match the newline that opens a structural boundary.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\n#{1,6}\s+.*?\n`),         // markdown heading
	regexp.MustCompile(`\n[A-Z][^.!?]*:\n`),        // "Title:" line
	regexp.MustCompile(`\n\d+\.\s+[A-Z][^.!?]*\n`), // "1. Heading" line
}

// SectionChunker cuts text at headings and section titles.
type SectionChunker struct {
	patterns []*regexp.Regexp
}

// NewSectionChunker creates a section-based chunker.
func NewSectionChunker() *SectionChunker {
	return &SectionChunker{patterns: sectionPatterns}
}

// Strategy returns StrategySection.
func (c *SectionChunker) Strategy() Strategy {
	return StrategySection
}

// Chunk cuts text at the earliest boundary past the cursor, in document
// order. Empty spans are dropped.
func (c *SectionChunker) Chunk(text string) Set {
	set := Set{Strategy: StrategySection}
	n := len(text)

	for cursor := 0; cursor < n; {
		next := c.nextBoundary(text, cursor)

		if span, ok := newSpan(text, cursor, next, StrategySection); ok {
			set.Spans = append(set.Spans, span)
		}

		// skip the newline that opened the boundary
		cursor = next + 1
	}

	return set
}

// nextBoundary returns the offset of the earliest pattern match at or after
// cursor, or len(text) when nothing matches.
func (c *SectionChunker) nextBoundary(text string, cursor int) int {
	next := len(text)
	rest := text[cursor:]
	for _, p := range c.patterns {
		if loc := p.FindStringIndex(rest); loc != nil && cursor+loc[0] < next {
			next = cursor + loc[0]
		}
	}
	return next
}
