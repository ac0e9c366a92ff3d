package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jjenkins/parliament/internal/config"
	"go.uber.org/zap"
)

const (
	geminiMaxRetries     = 3
	geminiInitialBackoff = 2 * time.Second
)

// GeminiClient generates summaries with the Gemini generateContent REST API
type GeminiClient struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	model          string
	initialBackoff time.Duration
	logger         *zap.Logger
}

// NewGeminiClient creates a client for one model
func NewGeminiClient(cfg config.SummaryConfig, model string, logger *zap.Logger) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiClient{
		client:         &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          model,
		initialBackoff: geminiInitialBackoff,
		logger:         logger.Named("gemini").With(zap.String("model", model)),
	}
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Generate returns the model's text for prompt, or "" when the call fails
func (c *GeminiClient) Generate(ctx context.Context, prompt string) string {
	text, err := c.generate(ctx, prompt)
	if err != nil {
		c.logger.Error("Failed to generate summary", zap.Error(err))
		return ""
	}
	return text
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))

	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		var out generateResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if len(out.Candidates) == 0 {
			return "", nil
		}

		var sb strings.Builder
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		return strings.TrimSpace(sb.String()), nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", geminiMaxRetries, lastErr)
}
