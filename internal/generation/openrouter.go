package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

const (
	openRouterURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultRouterModel   = "google/gemini-2.5-flash-preview-09-2025"
	defaultRouterTimeout = 60 * time.Second
)

// OpenRouterConfig configures the OpenRouter backend.
type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Retry   *RetryConfig
	Logger  *observability.Logger
}

// OpenRouterClient answers instructions through an OpenAI-compatible chat
// completions endpoint. It has no knowledge base, so retrieval parameters
// are ignored and the prompt template becomes the system message.
type OpenRouterClient struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
	retry      RetryConfig
	logger     *observability.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.Model == "" {
		cfg.Model = defaultRouterModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = openRouterURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRouterTimeout
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.DefaultLogger()
	}

	return &OpenRouterClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		url:        cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      retry,
		logger:     logger,
	}
}

// Generate sends one chat completion request.
func (c *OpenRouterClient) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, domain.GenerationError("Failed to marshal request", err)
	}

	resp, err := retryWithBackoff(ctx, c.retry, c.logger, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical-ai/comparison-engine")
		httpReq.Header.Set("X-Title", "Regulatory Comparison Engine")

		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return nil, domain.GenerationError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, domain.GenerationError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.GenerationError("Failed to decode response", err)
	}
	if parsed.Error != nil {
		return nil, domain.GenerationError("API error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, domain.GenerationError("chat completion", ErrEmptyResponse)
	}

	return &Response{Text: parsed.Choices[0].Message.Content}, nil
}

func (c *OpenRouterClient) buildRequest(req Request) chatRequest {
	var messages []chatMessage
	if req.PromptTemplate != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.PromptTemplate})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Instruction})

	return chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.Generation.MaxTokens,
		Temperature: req.Generation.Temperature,
		TopP:        req.Generation.TopP,
		Stop:        req.Generation.StopSequences,
	}
}
