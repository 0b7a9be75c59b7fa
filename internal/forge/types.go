package forge

import (
	"context"
	"time"

	"github.com/raaihank/passforge/internal/policy"
	"github.com/raaihank/passforge/internal/rules"
	"github.com/raaihank/passforge/internal/strength"
)

// Producer names where a password came from
type Producer string

const (
	ProducerLocal   Producer = "local"
	ProducerRemote  Producer = "remote"
	ProducerPattern Producer = "pattern"
)

// GeneratedPassword pairs a password with its strength analysis
type GeneratedPassword struct {
	Password string          `json:"password"`
	Strength strength.Result `json:"strength"`
	Producer Producer        `json:"producer"`
}

// PolicyAnalysis is the outcome of AnalyzePolicyAndGenerate
type PolicyAnalysis struct {
	Analysis  string              `json:"analysis"`
	Rules     rules.RuleSet       `json:"rules"`
	Passwords []GeneratedPassword `json:"passwords"`
	Ambiguous bool                `json:"ambiguous"`
	Source    policy.Source       `json:"source"`
}

// RuleCache remembers rule sets extracted remotely
type RuleCache interface {
	Get(ctx context.Context, policyText string) (rules.RuleSet, bool)
	Set(ctx context.Context, policyText string, r rules.RuleSet, producer string) error
}

// EventType identifies a published event
type EventType string

const (
	EventGeneration       EventType = "generation"
	EventStrengthAnalysis EventType = "strength_analysis"
	EventPolicyAnalysis   EventType = "policy_analysis"
)

// Event describes a completed operation. It carries counts, levels and
// scores only, never password material or policy text.
type Event struct {
	Type        EventType              `json:"type"`
	Producer    Producer               `json:"producer,omitempty"`
	Count       int                    `json:"count,omitempty"`
	RemoteCount int                    `json:"remote_count,omitempty"`
	Levels      map[strength.Level]int `json:"levels,omitempty"`
	Score       int                    `json:"score,omitempty"`
	Level       strength.Level         `json:"level,omitempty"`
	Source      policy.Source          `json:"source,omitempty"`
	Ambiguous   bool                   `json:"ambiguous,omitempty"`
	Duration    time.Duration          `json:"duration"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Publisher receives events; it must not block
type Publisher interface {
	Publish(event Event)
}

// Stats are the running totals of a Service
type Stats struct {
	Generated        int64 `json:"generated"`
	RemoteAccepted   int64 `json:"remote_accepted"`
	RemoteRejected   int64 `json:"remote_rejected"`
	RemoteFailures   int64 `json:"remote_failures"`
	PatternGenerated int64 `json:"pattern_generated"`
	Analyses         int64 `json:"analyses"`
	PolicyAnalyses   int64 `json:"policy_analyses"`
}
