// pkg/llm/client.go
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/care-data/facility-audit/pkg/config"
)

// Generator produces the full free-text reply of the model for a prompt.
// The pipeline depends on this interface so tests can substitute a fake
// without a running model server.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
	Timeout   time.Duration
}

// generatePayload is the wire format of the local model server's
// /api/generate endpoint.
type generatePayload struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// streamChunk is one line of the server's NDJSON response stream.
type streamChunk struct {
	Response string `json:"response"`
}

// Client talks to a local model server over its streaming generate API.
type Client struct {
	cfg     *config.ModelConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Client from the model configuration. requestDelay
// spaces out consecutive requests so the local model server is not
// overwhelmed; a non-positive delay disables pacing.
func NewClient(cfg *config.ModelConfig, requestDelay time.Duration, logger *zap.Logger) *Client {
	var limiter *rate.Limiter
	if requestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(requestDelay), 1)
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: limiter,
		logger:  logger,
	}
}

// Generate sends the prompt and assembles the streamed reply into a single
// string. The stop sequence strips the closing brace from the model's JSON
// output, so a reply that does not already end with "}" gets one appended
// before it is returned.
//
// Transient server errors (500, 502, 503, 504) are retried up to the
// configured attempt count with exponential backoff.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	payload := generatePayload{
		Model:       c.cfg.Name,
		Prompt:      req.Prompt,
		Temperature: c.cfg.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        []string{"}"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.DetectionTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		text, retryable, err := c.generateOnce(ctx, body, timeout)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryable || attempt == c.cfg.RetryAttempts {
			break
		}

		delay := c.cfg.RetryBackoff << attempt
		c.logger.Warn("model request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("request cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("model request failed after %d attempts: %w",
		c.cfg.RetryAttempts+1, lastErr)
}

// generateOnce performs a single request attempt and reports whether a
// failure is worth retrying.
func (c *Client) generateOnce(ctx context.Context, body []byte, timeout time.Duration) (string, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		// Timeouts and network failures surface to the caller's fallback
		// tier; only server-side status codes are retried here.
		return "", false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := false
		switch resp.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			retryable = true
		}
		return "", retryable, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	text, err := assembleStream(resp.Body)
	if err != nil {
		// A connection that drops mid-stream is a transport failure, not a
		// malformed reply.
		return "", false, err
	}
	return text, false, nil
}

// assembleStream concatenates the response fragments of an NDJSON stream.
// Lines that are not valid JSON are skipped; a read error means the reply
// never fully arrived and is reported instead of a truncated text.
func assembleStream(body io.Reader) (string, error) {
	var full strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		full.WriteString(chunk.Response)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read response stream: %w", err)
	}

	text := full.String()
	if !strings.HasSuffix(strings.TrimSpace(text), "}") {
		text += "}"
	}
	return text, nil
}
