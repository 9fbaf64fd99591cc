package comparison

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

// DefaultPacingDelay is the pause after each call that reached the service.
const DefaultPacingDelay = time.Second

// RequestParams are the generation settings shared by every call in a run.
type RequestParams struct {
	Generation      generation.GenerationParams
	Retrieval       generation.RetrievalParams
	KnowledgeBaseID string
	ModelRef        string
	PromptTemplate  string
}

func (p RequestParams) request(instruction string) generation.Request {
	return generation.Request{
		Instruction:     instruction,
		PromptTemplate:  p.PromptTemplate,
		Generation:      p.Generation,
		Retrieval:       p.Retrieval,
		KnowledgeBaseID: p.KnowledgeBaseID,
		ModelRef:        p.ModelRef,
	}
}

// Processor sends each span of a chunk set to the generator, one at a time.
type Processor struct {
	gen    generation.Generator
	pacing time.Duration
	sleep  func(time.Duration)
	logger *observability.Logger
}

// NewProcessor creates a processor pausing for pacing after every call.
func NewProcessor(gen generation.Generator, pacing time.Duration, logger *observability.Logger) *Processor {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Processor{
		gen:    gen,
		pacing: pacing,
		sleep:  time.Sleep,
		logger: logger.WithOperation("chunk_processing"),
	}
}

// Process returns the sequence of per-chunk events for set, in document
// order. Nothing runs until the sequence is ranged over, and stopping the
// range stops processing. A failed chunk yields an event with Err set and
// processing moves on to the next span.
func (p *Processor) Process(ctx context.Context, set chunking.Set, basePrompt, topicContext string, params RequestParams) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		total := set.Len()

		for i, span := range set.Spans {
			ev := Event{
				Index:    i,
				Total:    total,
				Fraction: float64(i+1) / float64(total),
			}

			result, reached, err := p.processChunk(ctx, span, basePrompt, topicContext, params)
			if err != nil {
				p.logger.Warn().
					Int("chunk", i+1).
					Int("total", total).
					Str("strategy", string(span.Strategy)).
					Err(err).
					Msg("Chunk processing failed, skipping")
				ev.Err = fmt.Errorf("chunk %d: %w", i+1, err)
				ev.Status = fmt.Sprintf("Chunk %d of %d failed", i+1, total)
			} else {
				ev.Result = result
				ev.Status = fmt.Sprintf("Processed chunk %d of %d", i+1, total)
			}

			if reached && p.pacing > 0 {
				p.sleep(p.pacing)
			}

			if !yield(ev) {
				return
			}
		}
	}
}

// processChunk runs one generation call. reached reports whether the call
// went to the service. Cache hits, cancelled contexts and requests rejected
// locally before sending did not.
func (p *Processor) processChunk(ctx context.Context, span chunking.Span, basePrompt, topicContext string, params RequestParams) (*ChunkResult, bool, error) {
	instruction := BuildChunkInstruction(topicContext, span.Text, basePrompt)

	resp, err := p.gen.Generate(ctx, params.request(instruction))
	if err != nil {
		return nil, reachedService(ctx, err), err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, !resp.Cached, domain.GenerationError("chunk analysis", generation.ErrEmptyResponse)
	}

	return &ChunkResult{
		Span:      span,
		Output:    resp.Text,
		Citations: resp.Citations,
	}, !resp.Cached, nil
}

// BuildChunkInstruction assembles the instruction sent for one span.
func BuildChunkInstruction(topicContext, spanText, basePrompt string) string {
	var b strings.Builder

	if topicContext != "" {
		b.WriteString("Context: ")
		b.WriteString(topicContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Document Section to Analyze:\n")
	b.WriteString(spanText)
	b.WriteString("\n\nBase Instructions:\n")
	b.WriteString(basePrompt)
	b.WriteString(`

Please provide:
1. Key points and findings from this section
2. Relevant comparisons with reference documents
3. Any gaps or areas needing clarification
4. Specific recommendations for harmonization

Note: Focus on concrete, specific details rather than general observations.`)

	return b.String()
}

// reachedService reports whether a failed call may have reached the service.
func reachedService(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !domain.IsType(err, domain.ErrorTypeValidation)
}
