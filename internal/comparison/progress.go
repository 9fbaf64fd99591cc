package comparison

import "github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"

// ProgressSink receives pipeline progress. Fractions are in [0, 1] and never
// decrease within a run. Reset is called once when a run ends, whatever the
// outcome.
type ProgressSink interface {
	Update(fraction float64, status string)
	Reset()
}

// NopSink discards progress.
type NopSink struct{}

// Update does nothing.
func (NopSink) Update(float64, string) {}

// Reset does nothing.
func (NopSink) Reset() {}

// ChunkResult is the generation output for one span.
type ChunkResult struct {
	Span      chunking.Span `json:"span"`
	Output    string        `json:"output"`
	Citations int           `json:"citations"`
}

// Event reports the outcome of processing one chunk. Exactly one of Result
// and Err is set.
type Event struct {
	Index    int
	Total    int
	Fraction float64
	Status   string
	Result   *ChunkResult
	Err      error
}

// Failed reports whether the chunk was skipped.
func (e Event) Failed() bool {
	return e.Err != nil
}

// stage maps a stage-local fraction into its slice of overall progress.
type stage struct {
	from, to float64
}

var (
	stageSelection  = stage{0, 0.20}
	stageProcessing = stage{0.20, 0.90}
	stageSynthesis  = stage{0.90, 1.0}
)

func (s stage) at(local float64) float64 {
	switch {
	case local <= 0:
		return s.from
	case local >= 1:
		return s.to
	}
	return s.from + (s.to-s.from)*local
}
