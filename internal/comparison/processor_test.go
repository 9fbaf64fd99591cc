package comparison

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
)

func threeSpans() chunking.Set {
	return staticChunker{strategy: chunking.StrategySection, texts: []string{"alpha", "beta", "gamma"}}.Chunk("")
}

func collect(seq iter.Seq[Event]) []Event {
	var out []Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func TestProcessor_SkipsFailedChunks(t *testing.T) {
	gen := &scriptedGenerator{respond: func(call int, req generation.Request) (*generation.Response, error) {
		if call == 1 {
			return nil, errors.New("throttled")
		}
		return answer("analysis")
	}}
	p, _ := newTestProcessor(gen, time.Second)

	events := collect(p.Process(context.Background(), threeSpans(), "compare", "", RequestParams{}))

	require.Len(t, events, 3)
	assert.NotNil(t, events[0].Result)
	assert.True(t, events[1].Failed())
	assert.Nil(t, events[1].Result)
	assert.Contains(t, events[1].Err.Error(), "throttled")
	assert.NotNil(t, events[2].Result)
	assert.Equal(t, "gamma", events[2].Result.Span.Text)
	assert.Equal(t, 3, gen.calls())
}

func TestProcessor_Fractions(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, generation.Request) (*generation.Response, error) {
		return answer("ok")
	}}
	p, _ := newTestProcessor(gen, 0)

	events := collect(p.Process(context.Background(), threeSpans(), "compare", "", RequestParams{}))

	require.Len(t, events, 3)
	assert.InDelta(t, 1.0/3, events[0].Fraction, 1e-9)
	assert.InDelta(t, 2.0/3, events[1].Fraction, 1e-9)
	assert.InDelta(t, 1.0, events[2].Fraction, 1e-9)
	assert.Equal(t, "Processed chunk 2 of 3", events[1].Status)
}

func TestProcessor_PacesEveryServiceCall(t *testing.T) {
	gen := &scriptedGenerator{respond: func(call int, req generation.Request) (*generation.Response, error) {
		switch call {
		case 0:
			return nil, errors.New("boom")
		case 1:
			return &generation.Response{Text: "from cache", Cached: true}, nil
		default:
			return answer("fresh")
		}
	}}
	p, rec := newTestProcessor(gen, time.Second)

	collect(p.Process(context.Background(), threeSpans(), "compare", "", RequestParams{}))

	// failure and fresh answer are paced, cache hit is not
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.pauses)
}

func TestProcessor_EmptyAnswerIsFailure(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, generation.Request) (*generation.Response, error) {
		return answer("  \n")
	}}
	p, rec := newTestProcessor(gen, time.Second)

	events := collect(p.Process(context.Background(), threeSpans(), "compare", "", RequestParams{}))

	for _, ev := range events {
		assert.True(t, ev.Failed())
		assert.ErrorIs(t, ev.Err, generation.ErrEmptyResponse)
	}
	assert.Len(t, rec.pauses, 3)
}

func TestProcessor_StopsWhenConsumerStops(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, generation.Request) (*generation.Response, error) {
		return answer("ok")
	}}
	p, _ := newTestProcessor(gen, 0)

	seq := p.Process(context.Background(), threeSpans(), "compare", "", RequestParams{})
	assert.Equal(t, 0, gen.calls())

	for range seq {
		break
	}
	assert.Equal(t, 1, gen.calls())
}

func TestProcessor_RequestParams(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, generation.Request) (*generation.Response, error) {
		return answer("ok")
	}}
	p, _ := newTestProcessor(gen, 0)
	params := RequestParams{
		Generation:      generation.DefaultGenerationParams(),
		Retrieval:       generation.RetrievalParams{NumberOfResults: 50, SearchType: "SEMANTIC"},
		KnowledgeBaseID: "KB1",
		ModelRef:        "model-arn",
		PromptTemplate:  "compare",
	}

	collect(p.Process(context.Background(), threeSpans(), "compare", "Safety context", params))

	require.Equal(t, 3, gen.calls())
	req := gen.requests[0]
	assert.Equal(t, "KB1", req.KnowledgeBaseID)
	assert.Equal(t, "model-arn", req.ModelRef)
	assert.Equal(t, "SEMANTIC", req.Retrieval.SearchType)
	assert.Equal(t, "compare", req.PromptTemplate)
	assert.Contains(t, req.Instruction, "Safety context")
	assert.Contains(t, req.Instruction, "alpha")
}

func TestBuildChunkInstruction(t *testing.T) {
	got := BuildChunkInstruction("Topic ctx", "span body", "Compare retention rules.")

	assert.Contains(t, got, "Context: Topic ctx")
	assert.Contains(t, got, "Document Section to Analyze:\nspan body")
	assert.Contains(t, got, "Base Instructions:\nCompare retention rules.")
	assert.Contains(t, got, "4. Specific recommendations for harmonization")

	// no topic, no context line
	assert.NotContains(t, BuildChunkInstruction("", "span body", "p"), "Context:")
}

func TestProcessor_NoPacingWithoutServiceCall(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() context.Context
		respond func(ctx context.Context) (*generation.Response, error)
	}{
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
		},
		{
			name: "expired deadline",
			ctx: func() context.Context {
				ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
				t.Cleanup(cancel)
				return ctx
			},
		},
		{
			name: "rejected locally",
			ctx:  context.Background,
			respond: func(context.Context) (*generation.Response, error) {
				return nil, domain.ValidationError("instruction must not be empty", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.ctx()
			gen := &scriptedGenerator{respond: func(int, generation.Request) (*generation.Response, error) {
				if tt.respond != nil {
					return tt.respond(ctx)
				}
				return nil, ctx.Err()
			}}
			p, rec := newTestProcessor(gen, time.Second)

			events := collect(p.Process(ctx, threeSpans(), "compare", "", RequestParams{}))

			require.Len(t, events, 3)
			for _, ev := range events {
				assert.True(t, ev.Failed())
			}
			assert.Empty(t, rec.pauses)
		})
	}
}
