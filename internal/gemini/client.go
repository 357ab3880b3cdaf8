// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini wraps the Gemini generative API behind a small interface
// the pipeline can mock. The model is treated as an opaque prompt-in,
// JSON-out service; everything here is transport and response hygiene.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/googleai/vertex"

	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// ErrMalformedResponse marks model output that did not parse as JSON.
// Callers treat it as an extraction failure for that document, not a
// transport fault, so it is never retried.
var ErrMalformedResponse = errors.New("model response is not valid JSON")

const defaultMaxOutputTokens = 8192

// Request is one model invocation. Exactly one of PDF or Text carries the
// document; Context holds prior step outputs replayed to the model as
// additional text parts.
type Request struct {
	System  string
	PDF     []byte
	Text    string
	Context []string
	User    string
}

// Backend abstracts the generative API so tests can supply a mock.
type Backend interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Client calls Gemini through the langchaingo googleai bindings. With an
// API key it talks to the AI Studio endpoint; with a cloud project and
// region it talks to Vertex AI instead.
type Client struct {
	model     llms.Model
	maxTokens int
}

// NewClient builds a Client from config. Generation is pinned to
// deterministic settings: temperature 0, top_p 0, top_k 1, one candidate,
// JSON response mode.
func NewClient(ctx context.Context, cfg types.GeminiConfig) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	opts := []googleai.Option{
		googleai.WithDefaultModel(cfg.Model),
		googleai.WithHarmThreshold(googleai.HarmBlockNone),
	}

	var (
		model llms.Model
		err   error
	)
	switch {
	case cfg.APIKey != "":
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
		model, err = googleai.New(ctx, opts...)
	case cfg.Project != "":
		opts = append(opts, googleai.WithCloudProject(cfg.Project), googleai.WithCloudLocation(cfg.Region))
		model, err = vertex.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("gemini credentials required: set an API key or a cloud project and region")
	}
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{model: model, maxTokens: maxTokens}, nil
}

// Generate sends one request and returns the model output as raw JSON.
func (c *Client) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}

	var parts []llms.ContentPart
	if len(req.PDF) > 0 {
		parts = append(parts, llms.BinaryPart("application/pdf", req.PDF))
	}
	if req.Text != "" {
		parts = append(parts, llms.TextPart(req.Text))
	}
	for _, c := range req.Context {
		parts = append(parts, llms.TextPart(c))
	}
	parts = append(parts, llms.TextPart(req.User))

	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithTopP(0),
		llms.WithTopK(1),
		llms.WithCandidateCount(1),
		llms.WithMaxTokens(c.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("calling gemini: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	return CleanJSON(resp.Choices[0].Content)
}

// CleanJSON trims the model output, strips Markdown code fences the model
// sometimes adds despite JSON mode, and validates the remainder as JSON.
func CleanJSON(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	if s == "" || !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(text, 200))
	}
	return json.RawMessage(s), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// GenerateWithRetry calls the backend with exponential backoff on transport
// errors. Malformed JSON is returned immediately: re-asking an identical
// deterministic prompt yields the same bad output.
func GenerateWithRetry(ctx context.Context, backend Backend, req Request, maxRetries int) (json.RawMessage, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := backend.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrMalformedResponse) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
