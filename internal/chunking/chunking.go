// Package chunking splits document text into ordered spans using one of three
// interchangeable strategies and picks the best strategy for a document.
package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Strategy identifies a chunking strategy.
type Strategy string

const (
	StrategySize     Strategy = "size"
	StrategySection  Strategy = "section"
	StrategySemantic Strategy = "semantic"
)

// Default chunking parameters.
const (
	DefaultChunkSize    = 2000
	DefaultOverlap      = 200
	DefaultMaxChunkSize = 2000
)

// Span is a contiguous piece of the source document. Start and End are byte
// offsets into the source; Text is the whitespace-trimmed content of that range.
type Span struct {
	Text     string   `json:"text"`
	Start    int      `json:"start_offset"`
	End      int      `json:"end_offset"`
	Strategy Strategy `json:"strategy"`
}

// Len returns the length of the span text.
func (s Span) Len() int {
	return len(s.Text)
}

// Set is the ordered output of exactly one strategy.
type Set struct {
	Strategy Strategy
	Spans    []Span
}

// Len returns the number of spans.
func (s Set) Len() int {
	return len(s.Spans)
}

// IsEmpty reports whether the set holds no spans.
func (s Set) IsEmpty() bool {
	return len(s.Spans) == 0
}

// Chunker splits text into a Set. Implementations are stateless.
type Chunker interface {
	Strategy() Strategy
	Chunk(text string) Set
}

// Options configures the built-in chunkers.
type Options struct {
	ChunkSize    int `yaml:"chunk_size"`
	Overlap      int `yaml:"overlap"`
	MaxChunkSize int `yaml:"max_chunk_size"`
}

// DefaultOptions returns the default chunking parameters.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		Overlap:      DefaultOverlap,
		MaxChunkSize: DefaultMaxChunkSize,
	}
}

// withDefaults fills zero values with defaults.
func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	return o
}

// Validate checks the options for errors.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.Overlap >= o.ChunkSize {
		return fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", o.Overlap, o.ChunkSize)
	}
	return nil
}

// DefaultChunkers returns the strategy table in tie-break priority order.
func DefaultChunkers(opts Options) []Chunker {
	return []Chunker{
		NewSizeChunker(opts),
		NewSectionChunker(),
		NewSemanticChunker(opts),
	}
}

// newSpan trims the source range and returns false when nothing is left.
func newSpan(text string, start, end int, strategy Strategy) (Span, bool) {
	trimmed := strings.TrimSpace(text[start:end])
	if trimmed == "" {
		return Span{}, false
	}
	return Span{Text: trimmed, Start: start, End: end, Strategy: strategy}, true
}

// runeFloor moves i back to the start of the UTF-8 sequence it falls in,
// never going below min.
func runeFloor(text string, i, min int) int {
	for i > min && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// runeCeil moves i forward to the next UTF-8 sequence start, never past max.
func runeCeil(text string, i, max int) int {
	for i < max && i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
