// Package generation talks to the knowledge-grounded text-generation service.
package generation

import (
	"context"
	"errors"
	"strings"
)

// Default generation parameters.
const (
	DefaultMaxTokens       = 4000
	DefaultTemperature     = 0.2
	DefaultTopP            = 0.95
	DefaultNumberOfResults = 50
)

// Search types understood by the knowledge base. An empty value leaves the
// choice to the service.
const (
	SearchTypeHybrid   = "HYBRID"
	SearchTypeSemantic = "SEMANTIC"
)

// ErrEmptyResponse is returned when the service answered with no text.
var ErrEmptyResponse = errors.New("empty response from generation service")

// Generator produces a grounded answer for one instruction.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// GenerationParams controls text inference.
type GenerationParams struct {
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens"`
	Temperature   float64  `json:"temperature" yaml:"temperature"`
	TopP          float64  `json:"top_p" yaml:"top_p"`
	StopSequences []string `json:"stop_sequences,omitempty" yaml:"stop_sequences"`
}

// RetrievalParams controls the knowledge-base search.
type RetrievalParams struct {
	NumberOfResults int    `json:"number_of_results" yaml:"number_of_results"`
	SearchType      string `json:"search_type,omitempty" yaml:"search_type"`
}

// Request is a single call to the generation service.
type Request struct {
	Instruction     string           `json:"instruction"`
	PromptTemplate  string           `json:"prompt_template,omitempty"`
	Generation      GenerationParams `json:"generation"`
	Retrieval       RetrievalParams  `json:"retrieval"`
	KnowledgeBaseID string           `json:"knowledge_base_id"`
	ModelRef        string           `json:"model_ref"`
}

// Response is the service's answer.
type Response struct {
	Text      string `json:"text"`
	Citations int    `json:"citations"`
	// Cached is set when the answer came from the response cache and the
	// service was not called.
	Cached bool `json:"-"`
}

// DefaultGenerationParams returns the default inference settings.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
		StopSequences: []string{"Human:", "Assistant:"},
	}
}

// DefaultRetrievalParams returns the default search settings.
func DefaultRetrievalParams() RetrievalParams {
	return RetrievalParams{NumberOfResults: DefaultNumberOfResults}
}

// ValidSearchType reports whether s is empty or a known search type.
func ValidSearchType(s string) bool {
	switch strings.ToUpper(s) {
	case "", SearchTypeHybrid, SearchTypeSemantic:
		return true
	default:
		return false
	}
}
