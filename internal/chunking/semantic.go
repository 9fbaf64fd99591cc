package chunking

import "strings"

const paragraphSeparator = "\n\n"

// SemanticChunker groups blank-line delimited paragraphs into spans of
// bounded size.
type SemanticChunker struct {
	maxChunkSize int
}

// NewSemanticChunker creates a paragraph-based chunker.
func NewSemanticChunker(opts Options) *SemanticChunker {
	opts = opts.withDefaults()
	return &SemanticChunker{maxChunkSize: opts.MaxChunkSize}
}

// Strategy returns StrategySemantic.
func (c *SemanticChunker) Strategy() Strategy {
	return StrategySemantic
}

// Chunk accumulates paragraphs until the next one would reach maxChunkSize,
// then starts a new span. A paragraph longer than the limit becomes its own
// span.
func (c *SemanticChunker) Chunk(text string) Set {
	set := Set{Strategy: StrategySemantic}
	if text == "" {
		return set
	}

	var (
		spanStart, spanEnd int
		accumulated        int // paragraph bytes plus one separator per paragraph
		offset             int
	)

	flush := func() {
		if span, ok := newSpan(text, spanStart, spanEnd, StrategySemantic); ok {
			set.Spans = append(set.Spans, span)
		}
	}

	for _, para := range strings.Split(text, paragraphSeparator) {
		paraStart := offset
		paraEnd := offset + len(para)
		offset = paraEnd + len(paragraphSeparator)

		if accumulated+len(para) < c.maxChunkSize {
			if accumulated == 0 {
				spanStart = paraStart
			}
			spanEnd = paraEnd
			accumulated += len(para) + len(paragraphSeparator)
			continue
		}

		if accumulated > 0 {
			flush()
		}
		spanStart, spanEnd = paraStart, paraEnd
		accumulated = len(para) + len(paragraphSeparator)
	}

	if accumulated > 0 {
		flush()
	}

	return set
}
