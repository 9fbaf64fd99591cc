package comparison

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

// FallbackNotice heads the report when the synthesis call fails.
const FallbackNotice = "Note: Detailed synthesis failed. Showing individual section analyses."

// Synthesizer merges chunk results into one report.
type Synthesizer struct {
	gen    generation.Generator
	logger *observability.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(gen generation.Generator, logger *observability.Logger) *Synthesizer {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Synthesizer{gen: gen, logger: logger.WithOperation("synthesis")}
}

// Synthesize asks the generator for one report over all results. If the call
// fails or returns no text, the local fallback report is returned instead and
// synthesized is false. It never fails.
func (s *Synthesizer) Synthesize(ctx context.Context, results []ChunkResult, basePrompt string, params RequestParams) (report string, synthesized bool) {
	instruction := BuildSynthesisInstruction(results, basePrompt)

	resp, err := s.gen.Generate(ctx, params.request(instruction))
	switch {
	case err != nil:
		s.logger.Error().
			Err(domain.SynthesisError("synthesis call failed", err)).
			Int("results", len(results)).
			Msg("Synthesis failed, using fallback report")
	case strings.TrimSpace(resp.Text) == "":
		s.logger.Error().
			Err(domain.SynthesisError("synthesis returned no text", generation.ErrEmptyResponse)).
			Int("results", len(results)).
			Msg("Synthesis failed, using fallback report")
	default:
		return resp.Text, true
	}

	return FallbackReport(results), false
}

// BuildSynthesisInstruction labels every result with its position and
// strategy and asks for the fixed report structure.
func BuildSynthesisInstruction(results []ChunkResult, basePrompt string) string {
	var b strings.Builder

	b.WriteString("Synthesize the following analysis results into a coherent summary:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "Section %d (%s):\n%s\n\n", i+1, r.Span.Strategy, r.Output)
	}

	b.WriteString("Original Query Context:\n")
	b.WriteString(basePrompt)
	b.WriteString(`

Please provide:
1. Executive Summary
2. Key Findings
3. Detailed Analysis
4. Recommendations
5. Next Steps`)

	return b.String()
}

// FallbackReport concatenates every chunk output under a failure notice.
func FallbackReport(results []ChunkResult) string {
	var b strings.Builder

	b.WriteString(FallbackNotice)
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n## Section %d (%s)\n\n%s", i+1, r.Span.Strategy, r.Output)
	}
	b.WriteString("\n")

	return b.String()
}
