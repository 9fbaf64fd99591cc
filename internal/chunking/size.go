package chunking

import (
	"strings"
	"unicode/utf8"
)

// boundaryMarkers are the sentence/paragraph breaks a size window may be
// trimmed back to. The right-most occurrence in the window wins.
var boundaryMarkers = []string{". ", "\n\n", ". \n", "? ", "! "}

// SizeChunker emits fixed-size windows with trailing overlap.
type SizeChunker struct {
	chunkSize int
	overlap   int
}

// NewSizeChunker creates a size-based chunker.
func NewSizeChunker(opts Options) *SizeChunker {
	opts = opts.withDefaults()
	overlap := opts.Overlap
	if overlap >= opts.ChunkSize {
		overlap = opts.ChunkSize - 1
	}
	return &SizeChunker{
		chunkSize: opts.ChunkSize,
		overlap:   overlap,
	}
}

// Strategy returns StrategySize.
func (c *SizeChunker) Strategy() Strategy {
	return StrategySize
}

// Chunk splits text into windows of at most chunkSize bytes. A window that
// stops short of the end of the text is trimmed back to its last boundary
// marker when one exists. The next window starts overlap bytes before the
// end of the previous one.
func (c *SizeChunker) Chunk(text string) Set {
	set := Set{Strategy: StrategySize}
	n := len(text)

	for start := 0; start < n; {
		end := c.windowEnd(text, start)

		if end < n {
			if cut := lastBoundary(text[start:end]); cut >= 0 {
				end = start + cut + 1
			}
		}

		if span, ok := newSpan(text, start, end, StrategySize); ok {
			set.Spans = append(set.Spans, span)
		}

		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = runeCeil(text, next, end)
	}

	return set
}

// windowEnd returns the end of the raw window starting at start, snapped to
// a UTF-8 boundary.
func (c *SizeChunker) windowEnd(text string, start int) int {
	end := start + c.chunkSize
	if end >= len(text) {
		return len(text)
	}
	end = runeFloor(text, end, start+1)
	if !utf8.RuneStart(text[end]) {
		// window smaller than one rune
		end = runeCeil(text, end, len(text))
	}
	return end
}

// lastBoundary returns the index of the right-most boundary marker in
// window, or -1 when there is none.
func lastBoundary(window string) int {
	best := -1
	for _, marker := range boundaryMarkers {
		if idx := strings.LastIndex(window, marker); idx > best {
			best = idx
		}
	}
	return best
}
