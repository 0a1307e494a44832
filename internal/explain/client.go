package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	systemPrompt = "You are a friendly e-commerce assistant. Your only job is to write a single, concise, and positive sentence " +
		"explaining a product recommendation. Be creative. Do NOT use lists or multiple paragraphs. " +
		"Directly state the reason in one sentence."

	fallbackUnavailable = "Could not generate an explanation at this time."
	fallbackEmpty       = "No explanation available. This might be a new user or product."
)

// Client calls an OpenAI-compatible chat-completions endpoint to turn the
// assembled contexts into one explanation sentence. It makes a single attempt
// per request with a bounded timeout and never surfaces an error to its
// caller: every failure path resolves to a fixed fallback sentence.
type Client struct {
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      zerolog.Logger
}

type Options struct {
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func NewClient(opts Options, logger zerolog.Logger) *Client {
	return &Client{
		endpoint:    opts.Endpoint,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      logger.With().Str("component", "explain").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns the explanation sentence for the given contexts. Network
// failures, timeouts, non-2xx responses and malformed bodies map to one
// fallback sentence; a well-formed response with no content maps to another.
// No retries: one attempt sits at the edge of a synchronous request cycle
// and a hidden retry would double its latency.
func (c *Client) Generate(ctx context.Context, userContext, productContext string) string {
	content, err := c.complete(ctx, userContext, productContext)
	if err != nil {
		c.logger.Warn().Err(err).Msg("explanation generation failed")
		return fallbackUnavailable
	}
	if content == "" {
		c.logger.Warn().Msg("explanation backend returned no content")
		return fallbackEmpty
	}
	return content
}

func (c *Client) complete(ctx context.Context, userContext, productContext string) (string, error) {
	userPrompt := fmt.Sprintf(
		"User's past interest: %s\nRecommended product: %s\n\n"+
			"Generate one sentence explaining why they might like this. "+
			"Example: 'Since you enjoy items for your home, you might like this for your active lifestyle.'",
		userContext, productContext)

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call explanation backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("explanation backend returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response body: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
