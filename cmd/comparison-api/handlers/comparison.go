// Package handlers provides HTTP handlers for the comparison API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/comparison"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/document"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/storage"
)

// maxBodyBytes bounds comparison request bodies.
const maxBodyBytes = 32 << 20

// Comparer runs a comparison.
type Comparer interface {
	Compare(ctx context.Context, req comparison.Request) (*comparison.Report, error)
}

// RunStore records and reads run history.
type RunStore interface {
	Save(ctx context.Context, run *storage.Run) error
	Get(ctx context.Context, id string) (*storage.Run, error)
	List(ctx context.Context, limit int) ([]*storage.Run, error)
}

// ComparisonHandler handles comparison requests.
type ComparisonHandler struct {
	logger   *observability.Logger
	comparer Comparer
	runs     RunStore
}

// NewComparisonHandler creates a new comparison handler. runs may be nil,
// in which case history is neither recorded nor served.
func NewComparisonHandler(logger *observability.Logger, comparer Comparer, runs RunStore) *ComparisonHandler {
	return &ComparisonHandler{
		logger:   logger,
		comparer: comparer,
		runs:     runs,
	}
}

// DocumentDTO is one named input document.
type DocumentDTO struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ComparisonRequestDTO represents the API request for a comparison.
// Either documentText or documents must be given.
type ComparisonRequestDTO struct {
	BasePrompt   string        `json:"basePrompt"`
	DocumentText string        `json:"documentText,omitempty"`
	Documents    []DocumentDTO `json:"documents,omitempty"`
	SearchType   string        `json:"searchType,omitempty"`
	Topic        string        `json:"topic,omitempty"`
}

// ComparisonResponseDTO represents the API response for a comparison.
type ComparisonResponseDTO struct {
	RunID       string                `json:"runId"`
	Report      string                `json:"report"`
	Synthesized bool                  `json:"synthesized"`
	Strategy    string                `json:"strategy"`
	Scores      []StrategyScoreDTO    `json:"scores"`
	Chunks      comparison.ChunkStats `json:"chunks"`
	StartedAt   time.Time             `json:"startedAt"`
	DurationMS  int64                 `json:"durationMs"`
	Timings     map[string]int64      `json:"timingsMs"`
}

// StrategyScoreDTO is the quality score of one chunking strategy.
type StrategyScoreDTO struct {
	Strategy string  `json:"strategy"`
	Score    float64 `json:"score"`
	Spans    int     `json:"spans"`
}

// Create handles POST /comparisons.
func (h *ComparisonHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO ComparisonRequestDTO
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(reqDTO.BasePrompt) == "" {
		writeError(w, http.StatusBadRequest, "basePrompt is required", "")
		return
	}
	if reqDTO.DocumentText != "" && len(reqDTO.Documents) > 0 {
		writeError(w, http.StatusBadRequest, "use either documentText or documents, not both", "")
		return
	}

	text, names := reqDTO.documentText()
	req := comparison.Request{
		BasePrompt:   reqDTO.BasePrompt,
		DocumentText: text,
		SearchMode:   reqDTO.SearchType,
		TopicKey:     reqDTO.Topic,
	}

	h.logger.Info().
		Int("documents", len(names)).
		Int("text_bytes", len(text)).
		Str("search_type", req.SearchMode).
		Str("topic", req.TopicKey).
		Msg("Processing comparison request")

	report, err := h.comparer.Compare(ctx, req)
	h.record(ctx, req, names, report, err)

	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("Comparison failed")
		}
		writeError(w, status, message, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toResponseDTO(report))
}

// Get handles GET /comparisons/{id}.
func (h *ComparisonHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled", "")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found", id)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		writeError(w, http.StatusInternalServerError, "failed to load run", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// List handles GET /comparisons.
func (h *ComparisonHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": []*storage.Run{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500", v)
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}

	// reports are omitted from listings
	for _, run := range runs {
		run.Report = ""
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *ComparisonHandler) record(ctx context.Context, req comparison.Request, names []string, report *comparison.Report, runErr error) {
	if h.runs == nil {
		return
	}
	// a client disconnect should not lose the record
	ctx = context.WithoutCancel(ctx)

	run := storage.NewRun(req, names, report, runErr)
	if err := h.runs.Save(ctx, run); err != nil {
		h.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record comparison run")
	}
}

func (d ComparisonRequestDTO) documentText() (string, []string) {
	if len(d.Documents) == 0 {
		return d.DocumentText, []string{"request"}
	}

	docs := make([]*document.Document, 0, len(d.Documents))
	names := make([]string, 0, len(d.Documents))
	for i, in := range d.Documents {
		name := in.Name
		if name == "" {
			name = "document-" + strconv.Itoa(i+1)
		}
		docs = append(docs, document.FromText(name, in.Text))
		names = append(names, name)
	}
	return document.Combine(docs...), names
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case domain.IsType(err, domain.ErrorTypeValidation):
		return http.StatusBadRequest, "invalid comparison request"
	case domain.IsType(err, domain.ErrorTypeChunking):
		return http.StatusUnprocessableEntity, "document could not be chunked"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "comparison timed out"
	case errors.Is(err, domain.ErrNoUsableResults):
		return http.StatusBadGateway, "generation produced no usable analysis"
	default:
		return http.StatusInternalServerError, "comparison failed"
	}
}

func toResponseDTO(report *comparison.Report) ComparisonResponseDTO {
	scores := make([]StrategyScoreDTO, 0, len(report.Scores))
	for _, s := range report.Scores {
		scores = append(scores, StrategyScoreDTO{
			Strategy: string(s.Strategy),
			Score:    s.Score,
			Spans:    s.Spans,
		})
	}

	return ComparisonResponseDTO{
		RunID:       report.RunID,
		Report:      report.Text,
		Synthesized: report.Synthesized,
		Strategy:    string(report.Strategy),
		Scores:      scores,
		Chunks:      report.Chunks,
		StartedAt:   report.StartedAt,
		DurationMS:  report.Timings.Total.Milliseconds(),
		Timings: map[string]int64{
			"selection":  report.Timings.Selection.Milliseconds(),
			"processing": report.Timings.Processing.Milliseconds(),
			"synthesis":  report.Timings.Synthesis.Milliseconds(),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
