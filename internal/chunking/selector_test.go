package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedChunker returns the same spans for any input.
type fixedChunker struct {
	strategy Strategy
	texts    []string
	calls    int
}

func (f *fixedChunker) Strategy() Strategy { return f.strategy }

func (f *fixedChunker) Chunk(string) Set {
	f.calls++
	set := Set{Strategy: f.strategy}
	offset := 0
	for _, text := range f.texts {
		set.Spans = append(set.Spans, Span{Text: text, Start: offset, End: offset + len(text), Strategy: f.strategy})
		offset += len(text)
	}
	return set
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("term ", n))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  float64
	}{
		{name: "empty set", texts: nil, want: 0},
		{name: "single span", texts: []string{words(80)}, want: 0},
		{name: "uniform lengths", texts: []string{words(60), words(60), words(60)}, want: 0},
		{
			// lengths 9 and 19: mean 14, variance 25; no span exceeds 50 words
			name:  "short spans are not coherent",
			texts: []string{words(2), words(4)},
			want:  0,
		},
		{
			// lengths 304 and 314: variance 25; both spans coherent
			name:  "fully coherent",
			texts: []string{words(61), words(63)},
			want:  (1000.0 / 25.0) * 1.0,
		},
		{
			name:  "mixed coherence",
			texts: []string{words(10), words(60)},
			want:  (1000.0 / 15625.0) * 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := (&fixedChunker{strategy: StrategySize, texts: tt.texts}).Chunk("")
			assert.InDelta(t, tt.want, Score(set), 1e-9)
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	set := NewSemanticChunker(Options{MaxChunkSize: 300}).Chunk(sampleDocument())
	first := Score(set)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(set))
	}
}

func TestSelector_PicksHighestScore(t *testing.T) {
	size := &fixedChunker{strategy: StrategySize, texts: []string{words(80)}}
	section := &fixedChunker{strategy: StrategySection, texts: []string{words(61), words(63)}}
	semantic := &fixedChunker{strategy: StrategySemantic, texts: []string{words(10), words(60)}}

	sel := NewSelector(DefaultOptions(), size, section, semantic).Select("ignored")

	assert.Equal(t, StrategySection, sel.Strategy())
	require.Len(t, sel.Scores, 3)
	assert.Equal(t, StrategySize, sel.Scores[0].Strategy)
	assert.Equal(t, 0.0, sel.Scores[0].Score)
	assert.Equal(t, 2, sel.Scores[1].Spans)
	assert.Equal(t, 1, size.calls)
	assert.Equal(t, 1, semantic.calls)
}

func TestSelector_TieBreakPriority(t *testing.T) {
	tied := []string{words(61), words(63)}

	t.Run("section beats semantic on a tie", func(t *testing.T) {
		size := &fixedChunker{strategy: StrategySize, texts: []string{words(5)}}
		section := &fixedChunker{strategy: StrategySection, texts: tied}
		semantic := &fixedChunker{strategy: StrategySemantic, texts: tied}

		sel := NewSelector(DefaultOptions(), size, section, semantic).Select("x")

		assert.Equal(t, sel.Scores[1].Score, sel.Scores[2].Score)
		assert.Equal(t, StrategySection, sel.Strategy())
	})

	t.Run("size beats everything on a tie", func(t *testing.T) {
		size := &fixedChunker{strategy: StrategySize, texts: tied}
		section := &fixedChunker{strategy: StrategySection, texts: tied}
		semantic := &fixedChunker{strategy: StrategySemantic, texts: tied}

		for i := 0; i < 3; i++ {
			sel := NewSelector(DefaultOptions(), size, section, semantic).Select("x")
			assert.Equal(t, StrategySize, sel.Strategy())
		}
	})
}

func TestSelector_ShortInputPicksSize(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 characters, no structure

	sel := NewSelector(Options{ChunkSize: 2000, Overlap: 200, MaxChunkSize: 2000}).Select(text)

	for _, s := range sel.Scores {
		assert.Equal(t, 1, s.Spans, string(s.Strategy))
		assert.Equal(t, 0.0, s.Score, string(s.Strategy))
	}
	assert.Equal(t, StrategySize, sel.Strategy())
	require.Len(t, sel.Set.Spans, 1)
	assert.Equal(t, text, sel.Set.Spans[0].Text)
}

func TestSelector_DefaultTableOrder(t *testing.T) {
	sel := NewSelector(DefaultOptions()).Select(sampleDocument())

	require.Len(t, sel.Scores, 3)
	assert.Equal(t, StrategySize, sel.Scores[0].Strategy)
	assert.Equal(t, StrategySection, sel.Scores[1].Strategy)
	assert.Equal(t, StrategySemantic, sel.Scores[2].Strategy)
}
