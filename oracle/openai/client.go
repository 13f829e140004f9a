// Package openai scores feature records through an OpenAI-compatible
// chat-completions endpoint. The model is asked for a bare JSON array of
// assessments; whatever framing it adds anyway is stripped by the scoring
// package before decoding.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TravelOpsHQ/travelcore-go/scoring"
	"github.com/TravelOpsHQ/travelcore-go/types"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second

	systemPrompt = "You are a travel-operations risk assessor. You receive a JSON array of anonymized traveler feature summaries. Respond with ONLY a JSON array of the same length and order, each element {\"riskScore\": <integer 0-100>, \"riskReason\": \"<short explanation>\"}. No other text."
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: "https://api.openai.com",
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) ScoreFeatures(ctx context.Context, records []types.FeatureRecord) ([]scoring.OracleScore, error) {
	features, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feature records: %w", err)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(features)},
		},
		Temperature: 0,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &scoring.UnreachableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &scoring.UnreachableError{Err: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &scoring.RateLimitedError{RetryAfter: retryAfterHint(resp)}
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oracle API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &scoring.MalformedResponseError{Reason: fmt.Sprintf("undecodable completion body: %v", err)}
	}
	if len(apiResp.Choices) == 0 {
		return nil, &scoring.MalformedResponseError{Reason: "completion had no choices"}
	}

	return scoring.ExtractAssessments(apiResp.Choices[0].Message.Content)
}

func retryAfterHint(resp *http.Response) time.Duration {
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

var _ scoring.Oracle = (*Client)(nil)
