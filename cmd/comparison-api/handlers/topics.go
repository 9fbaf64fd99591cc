package handlers

import (
	"net/http"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/prompts"
)

// TopicsHandler serves the topic library.
type TopicsHandler struct {
	topics *prompts.Library
}

// NewTopicsHandler creates a new topics handler.
func NewTopicsHandler(topics *prompts.Library) *TopicsHandler {
	return &TopicsHandler{topics: topics}
}

// List handles GET /topics.
func (h *TopicsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": h.topics.Topics()})
}
