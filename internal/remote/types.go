package remote

import (
	"context"
	"errors"
	"time"

	"github.com/raaihank/passforge/internal/rules"
)

// ErrEmptyResponse is returned when the service answers without content
var ErrEmptyResponse = errors.New("remote: empty response")

// CandidateSource produces raw candidate lines for a rendered prompt. A
// failure means zero extra candidates; callers always have a local fallback.
type CandidateSource interface {
	Candidates(ctx context.Context, prompt string) ([]string, error)
}

// RuleExtractor turns free-form policy text into a rule set
type RuleExtractor interface {
	ExtractRules(ctx context.Context, policyText string) (rules.RuleSet, error)
}

// Config contains the text-generation service configuration
type Config struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
}

// DefaultConfig returns a disabled configuration pointing at the public API
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Endpoint:    "https://api.openai.com",
		Model:       "gpt-3.5-turbo",
		Timeout:     10 * time.Second,
		MaxTokens:   200,
		Temperature: 0.9,
	}
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
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}
