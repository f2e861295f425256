// Package gemini calls Google's generative-language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Generator produces text for a fully assembled prompt. The queue depends on
// this interface so tests can substitute a mock.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config for the Gemini client.
type Config struct {
	APIKey  string
	BaseURL string        // default https://generativelanguage.googleapis.com
	Model   string        // e.g. "gemini-pro"
	Timeout time.Duration // http client timeout
	// Retries bounds the extra attempts made for transient upstream failures.
	// Auth, rate-limit, and invalid-request errors are never retried.
	Retries int
}

// Client is an HTTP implementation of Generator.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-pro"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

const (
	retryBase = 500 * time.Millisecond
	retryCap  = 10 * time.Second
)

// generateContent wire format.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the prompt to the model and returns the generated text.
// Transient upstream failures are retried up to cfg.Retries times with
// full-jitter backoff; every other kind of failure is permanent and fails
// immediately.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("gemini retrying", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(jitter(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.generate(ctx, endpoint, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsUpstream(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) generate(ctx context.Context, endpoint, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &APIError{Kind: KindUpstream, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Kind: KindUpstream, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{
			Kind:       classify(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(raw),
		}
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", &APIError{Kind: KindUpstream, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", &APIError{Kind: KindUpstream, Message: "no candidates in response"}
	}

	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	c.logger.Info("gemini generate ok",
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"result_len", sb.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sb.String(), nil
}

// upstreamMessage extracts the error message from an API error body, falling
// back to the raw body when it is not the documented shape.
func upstreamMessage(raw []byte) string {
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err == nil && gr.Error != nil && gr.Error.Message != "" {
		return gr.Error.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// jitter returns a random duration between 0 and min(retryCap, retryBase * 2^attempt).
func jitter(attempt int) time.Duration {
	exp := retryBase * (1 << attempt)
	if exp > retryCap {
		exp = retryCap
	}
	return time.Duration(rand.Int63n(int64(exp)))
}
