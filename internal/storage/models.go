// Package storage persists comparison run history.
package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/comparison"
)

// RunStatus is the outcome of a comparison run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one stored comparison run.
type Run struct {
	ID          string                   `json:"id"`
	Status      RunStatus                `json:"status"`
	BasePrompt  string                   `json:"basePrompt"`
	SearchType  string                   `json:"searchType,omitempty"`
	Topic       string                   `json:"topic,omitempty"`
	Documents   []string                 `json:"documents"`
	Strategy    chunking.Strategy        `json:"strategy,omitempty"`
	Scores      []chunking.StrategyScore `json:"scores,omitempty"`
	Chunks      comparison.ChunkStats    `json:"chunks"`
	Synthesized bool                     `json:"synthesized"`
	Duration    time.Duration            `json:"durationNs"`
	Report      string                   `json:"report,omitempty"`
	Error       string                   `json:"error,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
}

// NewRun records the outcome of Compare. report is nil when runErr is set.
func NewRun(req comparison.Request, documents []string, report *comparison.Report, runErr error) *Run {
	run := &Run{
		BasePrompt: req.BasePrompt,
		SearchType: req.SearchMode,
		Topic:      req.TopicKey,
		Documents:  documents,
		CreatedAt:  time.Now().UTC(),
	}

	if report == nil {
		run.ID = uuid.NewString()
		run.Status = RunStatusFailed
		if runErr != nil {
			run.Error = runErr.Error()
		}
		return run
	}

	run.ID = report.RunID
	run.Status = RunStatusSucceeded
	run.Strategy = report.Strategy
	run.Scores = report.Scores
	run.Chunks = report.Chunks
	run.Synthesized = report.Synthesized
	run.Duration = report.Timings.Total
	run.Report = report.Text
	if !report.StartedAt.IsZero() {
		run.CreatedAt = report.StartedAt.UTC()
	}
	return run
}
