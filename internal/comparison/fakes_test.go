package comparison

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

// scriptedGenerator answers each call through respond and records requests.
type scriptedGenerator struct {
	mu       sync.Mutex
	requests []generation.Request
	respond  func(call int, req generation.Request) (*generation.Response, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	g.mu.Lock()
	call := len(g.requests)
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.respond(call, req)
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *scriptedGenerator) chunkRequests() []generation.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []generation.Request
	for _, r := range g.requests {
		if !isSynthesis(r) {
			out = append(out, r)
		}
	}
	return out
}

func isSynthesis(req generation.Request) bool {
	return strings.HasPrefix(req.Instruction, "Synthesize the following")
}

type progressUpdate struct {
	fraction float64
	status   string
}

type recordingSink struct {
	updates []progressUpdate
	resets  int
}

func (s *recordingSink) Update(fraction float64, status string) {
	s.updates = append(s.updates, progressUpdate{fraction, status})
}

func (s *recordingSink) Reset() {
	s.resets++
}

// staticChunker always returns the same spans.
type staticChunker struct {
	strategy chunking.Strategy
	texts    []string
}

func (c staticChunker) Strategy() chunking.Strategy { return c.strategy }

func (c staticChunker) Chunk(text string) chunking.Set {
	set := chunking.Set{Strategy: c.strategy}
	offset := 0
	for _, t := range c.texts {
		set.Spans = append(set.Spans, chunking.Span{Text: t, Start: offset, End: offset + len(t), Strategy: c.strategy})
		offset += len(t)
	}
	return set
}

// sleepRecorder counts pacing pauses without sleeping.
type sleepRecorder struct {
	pauses []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.pauses = append(s.pauses, d)
}

func newTestProcessor(gen generation.Generator, pacing time.Duration) (*Processor, *sleepRecorder) {
	rec := &sleepRecorder{}
	p := NewProcessor(gen, pacing, observability.NopLogger())
	p.sleep = rec.sleep
	return p, rec
}

func newTestPipeline(cfg Config, gen generation.Generator, sink ProgressSink, opts ...Option) (*Pipeline, *sleepRecorder) {
	opts = append([]Option{WithLogger(observability.NopLogger()), WithProgress(sink)}, opts...)
	p := NewPipeline(cfg, gen, opts...)
	rec := &sleepRecorder{}
	p.processor.sleep = rec.sleep
	p.newID = func() string { return "run-1" }
	return p, rec
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.KnowledgeBaseID = "KB123"
	cfg.ModelRef = "arn:aws:bedrock:us-west-2::foundation-model/test"
	return cfg
}

func answer(text string) (*generation.Response, error) {
	return &generation.Response{Text: text}, nil
}
