// Package comparison runs the chunk, analyse and synthesize pipeline that
// turns a document into one comparison report.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

// Config is everything a pipeline needs besides its collaborators.
type Config struct {
	KnowledgeBaseID string
	ModelRef        string
	Generation      generation.GenerationParams
	Retrieval       generation.RetrievalParams
	Chunking        chunking.Options
	PacingDelay     time.Duration
}

// DefaultConfig returns a config with default generation, retrieval,
// chunking and pacing settings. Service identifiers are left empty.
func DefaultConfig() Config {
	return Config{
		Generation:  generation.DefaultGenerationParams(),
		Retrieval:   generation.DefaultRetrievalParams(),
		Chunking:    chunking.DefaultOptions(),
		PacingDelay: DefaultPacingDelay,
	}
}

// Validate checks the config for values the pipeline cannot run with.
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return domain.ConfigError("invalid chunking options", err)
	}
	if c.Generation.MaxTokens <= 0 {
		return domain.ConfigError("max tokens must be positive", nil)
	}
	if c.Retrieval.NumberOfResults <= 0 {
		return domain.ConfigError("number of results must be positive", nil)
	}
	if c.PacingDelay < 0 {
		return domain.ConfigError("pacing delay must not be negative", nil)
	}
	return nil
}

// Request is one comparison run.
type Request struct {
	BasePrompt   string `json:"basePrompt"`
	DocumentText string `json:"documentText"`
	SearchMode   string `json:"searchType"`
	TopicKey     string `json:"topic"`
}

// ChunkStats counts chunk outcomes.
type ChunkStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Timings records how long each stage took.
type Timings struct {
	Selection  time.Duration `json:"selection"`
	Processing time.Duration `json:"processing"`
	Synthesis  time.Duration `json:"synthesis"`
	Total      time.Duration `json:"total"`
}

// Report is the outcome of a successful run.
type Report struct {
	RunID       string                   `json:"runId"`
	Text        string                   `json:"text"`
	Synthesized bool                     `json:"synthesized"`
	Strategy    chunking.Strategy        `json:"strategy"`
	Scores      []chunking.StrategyScore `json:"scores"`
	Chunks      ChunkStats               `json:"chunks"`
	StartedAt   time.Time                `json:"startedAt"`
	Timings     Timings                  `json:"timings"`
}

// TopicSource looks up topic context. Unknown keys yield "".
type TopicSource interface {
	Context(key string) string
}

// Pipeline sequences strategy selection, chunk processing and synthesis.
type Pipeline struct {
	cfg         Config
	selector    *chunking.Selector
	processor   *Processor
	synthesizer *Synthesizer
	topics      TopicSource
	sink        ProgressSink
	logger      *observability.Logger
	newID       func() string
	now         func() time.Time

	// runs admits one comparison at a time so generation calls never overlap.
	runs *semaphore.Weighted
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithProgress sets the progress sink.
func WithProgress(sink ProgressSink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithTopics sets the topic context source.
func WithTopics(topics TopicSource) Option {
	return func(p *Pipeline) { p.topics = topics }
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline calling gen for every chunk and for the
// final synthesis.
func NewPipeline(cfg Config, gen generation.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		selector: chunking.NewSelector(cfg.Chunking),
		sink:     NopSink{},
		logger:   observability.DefaultLogger(),
		newID:    uuid.NewString,
		now:      time.Now,
		runs:     semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.processor = NewProcessor(gen, cfg.PacingDelay, p.logger)
	p.synthesizer = NewSynthesizer(gen, p.logger)

	return p
}

// Compare runs the whole pipeline on one document. It returns a report or an
// error, never both. The progress sink is reset on every return path,
// including a panic inside a stage, which is returned as a pipeline error.
// Concurrent calls are serialized; a caller whose context ends while waiting
// gets a pipeline error wrapping the context error.
func (p *Pipeline) Compare(ctx context.Context, req Request) (report *Report, err error) {
	if !p.runs.TryAcquire(1) {
		if err := p.runs.Acquire(ctx, 1); err != nil {
			return nil, domain.PipelineError("waiting for a running comparison", err)
		}
	}
	defer p.runs.Release(1)

	defer p.sink.Reset()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Comparison pipeline panicked")
			report = nil
			err = domain.PipelineError(fmt.Sprintf("unexpected failure: %v", r), nil)
		}
	}()

	if strings.TrimSpace(req.DocumentText) == "" {
		return nil, domain.ValidationError("document text is empty", nil)
	}
	if !generation.ValidSearchType(strings.TrimSpace(req.SearchMode)) {
		return nil, domain.ValidationError(fmt.Sprintf("unknown search type %q", req.SearchMode), nil)
	}

	runID := p.newID()
	logger := p.logger.WithRun(runID).WithContext(ctx)
	started := p.now()
	report = &Report{RunID: runID, StartedAt: started}

	// selection
	p.sink.Update(stageSelection.at(0), "Initializing chunking process...")
	sel := p.selector.Select(req.DocumentText)
	report.Strategy = sel.Strategy()
	report.Scores = sel.Scores
	if sel.Set.IsEmpty() {
		return nil, domain.ChunkingError("document produced no chunks", nil)
	}
	selected := p.now()
	report.Timings.Selection = selected.Sub(started)

	logger.Info().
		Str("strategy", string(sel.Strategy())).
		Int("chunks", sel.Set.Len()).
		Interface("scores", sel.Scores).
		Msg("Selected chunking strategy")
	p.sink.Update(stageSelection.at(1), fmt.Sprintf("Selected %s chunking: %d chunks", sel.Strategy(), sel.Set.Len()))

	// processing
	params := p.requestParams(req)
	var results []ChunkResult
	for ev := range p.processor.Process(ctx, sel.Set, req.BasePrompt, p.topicContext(req.TopicKey), params) {
		report.Chunks.Processed++
		if ev.Failed() {
			report.Chunks.Failed++
		} else {
			report.Chunks.Succeeded++
			results = append(results, *ev.Result)
		}
		p.sink.Update(stageProcessing.at(ev.Fraction), ev.Status)
	}
	processed := p.now()
	report.Timings.Processing = processed.Sub(selected)

	if len(results) == 0 {
		logger.Error().Int("chunks", report.Chunks.Processed).Msg("All chunks failed")
		cause := domain.ErrNoUsableResults
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = errors.Join(domain.ErrNoUsableResults, ctxErr)
		}
		return nil, domain.PipelineError(
			fmt.Sprintf("all %d chunks failed to produce an analysis", report.Chunks.Processed),
			cause,
		)
	}

	// synthesis
	p.sink.Update(stageSynthesis.at(0), "Synthesizing results...")
	report.Text, report.Synthesized = p.synthesizer.Synthesize(ctx, results, req.BasePrompt, params)
	finished := p.now()
	report.Timings.Synthesis = finished.Sub(processed)
	report.Timings.Total = finished.Sub(started)
	p.sink.Update(stageSynthesis.at(1), "Analysis complete!")

	logger.Info().
		Int("succeeded", report.Chunks.Succeeded).
		Int("failed", report.Chunks.Failed).
		Bool("synthesized", report.Synthesized).
		Dur("duration", report.Timings.Total).
		Msg("Comparison complete")

	return report, nil
}

func (p *Pipeline) requestParams(req Request) RequestParams {
	retrieval := p.cfg.Retrieval
	if mode := strings.TrimSpace(req.SearchMode); mode != "" {
		retrieval.SearchType = strings.ToUpper(mode)
	}

	return RequestParams{
		Generation:      p.cfg.Generation,
		Retrieval:       retrieval,
		KnowledgeBaseID: p.cfg.KnowledgeBaseID,
		ModelRef:        p.cfg.ModelRef,
		PromptTemplate:  req.BasePrompt,
	}
}

func (p *Pipeline) topicContext(key string) string {
	if p.topics == nil || key == "" {
		return ""
	}
	return p.topics.Context(key)
}
