package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const messagesURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	stats      *Stats
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return &ClaudeClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		stats: NewStats(time.Hour),
	}
}

// Stats returns the rolling latency tracker for this client.
func (c *ClaudeClient) Stats() *Stats { return c.stats }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one completion request and returns the model's text.
func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("model api: %w", err)
	}
	defer resp.Body.Close()
	c.stats.Record(time.Since(start).Milliseconds())

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: truncate(string(respBody), 300)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "malformed response body: " + err.Error()}
	}
	if apiResp.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error.Type + ": " + apiResp.Error.Message}
	}
	if len(apiResp.Content) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "response has no content blocks"}
	}

	return apiResp.Content[0].Text, nil
}

// retryAfter reads the provider's Retry-After header, defaulting to one
// minute when it is absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
