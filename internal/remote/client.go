package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/rules"
)

const (
	completionsPath = "/v1/chat/completions"
	maxResponseSize = 1 << 20
)

// Client talks to an OpenAI-compatible chat completions endpoint. It
// implements both CandidateSource and RuleExtractor.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client with the configured timeout
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Candidates asks the service for raw candidate lines. The caller trims the
// answer to the count it asked for.
func (c *Client) Candidates(ctx context.Context, prompt string) ([]string, error) {
	content, err := c.complete(ctx, candidateSystemPrompt, prompt, c.config.Temperature)
	if err != nil {
		return nil, err
	}

	candidates := ParseCandidates(content, 0)
	c.logger.Debug("Remote candidates received", zap.Int("count", len(candidates)))
	return candidates, nil
}

// ExtractRules asks the service to read a policy text into a rule set
func (c *Client) ExtractRules(ctx context.Context, policyText string) (rules.RuleSet, error) {
	content, err := c.complete(ctx, policySystemPrompt, RenderPolicyPrompt(policyText), 0)
	if err != nil {
		return rules.RuleSet{}, err
	}
	return ParseRuleSet(content)
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.config.Endpoint, "/") + completionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PassForge/1.0")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote request failed: %w", err)
	}
	defer resp.Body.Close()

	var data chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if data.Error != nil {
			return "", fmt.Errorf("remote API error (HTTP %d): %s", resp.StatusCode, data.Error.Message)
		}
		return "", fmt.Errorf("remote API error (HTTP %d)", resp.StatusCode)
	}

	c.logger.Debug("Remote completion finished",
		zap.String("model", c.config.Model),
		zap.Duration("duration", time.Since(start)),
	)

	if len(data.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(data.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
