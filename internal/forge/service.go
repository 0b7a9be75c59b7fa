// Package forge composes the rule engine, both generators, the policy
// extractor and the strength analyzer into the operations callers use.
package forge

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/generator"
	"github.com/raaihank/passforge/internal/pattern"
	"github.com/raaihank/passforge/internal/policy"
	"github.com/raaihank/passforge/internal/random"
	"github.com/raaihank/passforge/internal/remote"
	"github.com/raaihank/passforge/internal/rules"
	"github.com/raaihank/passforge/internal/strength"
)

const defaultRemoteTimeout = 10 * time.Second

// Service is safe for concurrent use
type Service struct {
	generator     *generator.Generator
	patterns      *pattern.Compiler
	candidates    remote.CandidateSource
	extractor     remote.RuleExtractor
	cache         RuleCache
	publisher     Publisher
	source        *random.Source
	logger        *zap.Logger
	remoteTimeout time.Duration
	maxLength     atomic.Int64
	stats         serviceStats
}

type serviceStats struct {
	generated        atomic.Int64
	remoteAccepted   atomic.Int64
	remoteRejected   atomic.Int64
	remoteFailures   atomic.Int64
	patternGenerated atomic.Int64
	analyses         atomic.Int64
	policyAnalyses   atomic.Int64
}

// Option customises a Service
type Option func(*Service)

// WithGenerator replaces the default crypto/rand generator
func WithGenerator(g *generator.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithPatternCompiler replaces the default pattern compiler
func WithPatternCompiler(c *pattern.Compiler) Option {
	return func(s *Service) {
		if c != nil {
			s.patterns = c
		}
	}
}

// WithSource makes both generators draw from src. It takes precedence over
// WithGenerator and WithPatternCompiler.
func WithSource(src *random.Source) Option {
	return func(s *Service) { s.source = src }
}

// WithCandidateSource enables remote candidates
func WithCandidateSource(src remote.CandidateSource) Option {
	return func(s *Service) { s.candidates = src }
}

// WithRuleExtractor enables remote rule extraction
func WithRuleExtractor(e remote.RuleExtractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithRuleCache caches remote rule extractions
func WithRuleCache(c RuleCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher receives an event per completed operation
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRemoteTimeout bounds every remote call
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.remoteTimeout = d
		}
	}
}

// WithMaxLength caps the length bounds of rules read from policy text
func WithMaxLength(n int) Option {
	return func(s *Service) { s.SetMaxLength(n) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service. Without remote options it works purely locally.
func New(opts ...Option) *Service {
	s := &Service{
		logger:        zap.NewNop(),
		remoteTimeout: defaultRemoteTimeout,
	}
	s.maxLength.Store(rules.MaxAllowedLength)
	for _, opt := range opts {
		opt(s)
	}
	if s.source != nil {
		s.generator = generator.New(generator.WithSource(s.source), generator.WithLogger(s.logger))
		s.patterns = pattern.NewCompiler(s.source)
	}
	if s.generator == nil {
		s.generator = generator.New(generator.WithLogger(s.logger))
	}
	if s.patterns == nil {
		s.patterns = pattern.NewCompiler(nil)
	}
	return s
}

// Generate produces the default batch for r
func (s *Service) Generate(ctx context.Context, r rules.RuleSet) ([]GeneratedPassword, error) {
	return s.GenerateN(ctx, r, s.generator.BatchSize())
}

// GenerateN produces exactly count passwords for r, each with its strength.
// Remote candidates are used when they conform to r; the shortfall is
// always drawn locally. Only a random source fault is returned as an error.
func (s *Service) GenerateN(ctx context.Context, r rules.RuleSet, count int) ([]GeneratedPassword, error) {
	if count <= 0 {
		count = s.generator.BatchSize()
	}
	r = r.Normalize()
	start := time.Now()

	accepted := s.remoteCandidates(ctx, r, count)

	out := make([]GeneratedPassword, 0, count)
	for _, pw := range accepted {
		out = append(out, s.analyzed(pw, ProducerRemote))
	}

	if shortfall := count - len(accepted); shortfall > 0 {
		local, err := s.generator.GenerateBatch(ctx, r, shortfall)
		if err != nil {
			return nil, err
		}
		for _, pw := range local {
			out = append(out, s.analyzed(pw, ProducerLocal))
		}
	}

	s.stats.generated.Add(int64(len(out)))
	s.publish(Event{
		Type:        EventGeneration,
		Producer:    ProducerLocal,
		Count:       len(out),
		RemoteCount: len(accepted),
		Levels:      levelCounts(out),
		Duration:    time.Since(start),
	})

	return out, nil
}

// remoteCandidates asks the remote source for candidates and keeps the
// distinct ones that conform to r. Any failure yields none.
func (s *Service) remoteCandidates(ctx context.Context, r rules.RuleSet, count int) []string {
	if s.candidates == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	lines, err := s.candidates.Candidates(ctx, remote.RenderPrompt(r, count))
	if err != nil {
		s.stats.remoteFailures.Add(1)
		s.logger.Warn("Remote candidates unavailable, generating locally", zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{}, count)
	accepted := make([]string, 0, count)
	rejected := 0
	for _, line := range lines {
		if len(accepted) == count {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup || !rules.Conforms(r, line) {
			rejected++
			continue
		}
		seen[line] = struct{}{}
		accepted = append(accepted, line)
	}

	s.stats.remoteAccepted.Add(int64(len(accepted)))
	s.stats.remoteRejected.Add(int64(rejected))
	s.logger.Debug("Remote candidates screened",
		zap.Int("accepted", len(accepted)),
		zap.Int("rejected", rejected))

	return accepted
}

// GenerateFromPattern expands pattern once. An invalid pattern is returned
// as a *pattern.ValidationError and nothing is generated.
func (s *Service) GenerateFromPattern(p string) (string, error) {
	pw, err := s.patterns.Generate(p)
	if err != nil {
		return "", err
	}
	s.stats.patternGenerated.Add(1)
	return pw, nil
}

// GenerateFromPatternN expands pattern count times, each with its strength
func (s *Service) GenerateFromPatternN(p string, count int) ([]GeneratedPassword, error) {
	if count <= 0 {
		count = 1
	}
	start := time.Now()

	passwords, err := s.patterns.GenerateBatch(p, count)
	if err != nil {
		return nil, err
	}

	out := make([]GeneratedPassword, 0, len(passwords))
	for _, pw := range passwords {
		out = append(out, s.analyzed(pw, ProducerPattern))
	}

	s.stats.patternGenerated.Add(int64(len(out)))
	s.publish(Event{
		Type:     EventGeneration,
		Producer: ProducerPattern,
		Count:    len(out),
		Levels:   levelCounts(out),
		Duration: time.Since(start),
	})

	return out, nil
}

// ValidatePattern checks a template without generating anything
func (s *Service) ValidatePattern(p string) pattern.ValidationResult {
	return pattern.Validate(p)
}

// PatternComplexity scores the structure of a template
func (s *Service) PatternComplexity(p string) pattern.Complexity {
	return pattern.GetComplexity(p)
}

// AnalyzeStrength scores a password
func (s *Service) AnalyzeStrength(password string) strength.Result {
	result := strength.Analyze(password)

	s.stats.analyses.Add(1)
	s.publish(Event{
		Type:  EventStrengthAnalysis,
		Score: result.Score,
		Level: result.Level,
	})

	return result
}

// CrossCheck runs the dictionary-aware second opinion
func (s *Service) CrossCheck(password string, userInputs []string) strength.Estimate {
	return strength.CrossCheck(password, userInputs)
}

// ExtractRulesFromPolicyText reads a policy into a rule set. A cached or
// remote extraction is preferred when configured; the local heuristic is
// the fallback for every failure and never fails itself. Length bounds are
// capped at the configured maximum.
func (s *Service) ExtractRulesFromPolicyText(ctx context.Context, text string) policy.Extraction {
	extraction := s.extractRules(ctx, text)
	extraction.Rules = extraction.Rules.CapLength(int(s.maxLength.Load()))
	return extraction
}

// SetMaxLength changes the cap applied to rules read from policy text.
// Values outside 1..rules.MaxAllowedLength are ignored.
func (s *Service) SetMaxLength(n int) {
	if n > 0 && n <= rules.MaxAllowedLength {
		s.maxLength.Store(int64(n))
	}
}

func (s *Service) extractRules(ctx context.Context, text string) policy.Extraction {
	heuristic := policy.Extract(text)

	if s.cache != nil {
		if r, ok := s.cache.Get(ctx, text); ok {
			return fromRules(r, policy.SourceCache, heuristic)
		}
	}

	if s.extractor == nil {
		return heuristic
	}

	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	r, err := s.extractor.ExtractRules(rctx, text)
	if err != nil {
		s.stats.remoteFailures.Add(1)
		s.logger.Warn("Remote rule extraction failed, using heuristic", zap.Error(err))
		return heuristic
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, text, r, string(policy.SourceRemote)); err != nil {
			s.logger.Warn("Failed to cache extracted rules", zap.Error(err))
		}
	}

	return fromRules(r, policy.SourceRemote, heuristic)
}

func fromRules(r rules.RuleSet, source policy.Source, heuristic policy.Extraction) policy.Extraction {
	return policy.Extraction{
		Rules:         r,
		Ambiguous:     !r.HasClass(),
		LengthMatched: heuristic.LengthMatched,
		MatchedRules:  heuristic.MatchedRules,
		Source:        source,
	}
}

// AnalyzePolicyAndGenerate extracts rules from text, generates the default
// batch under them and summarises the extraction
func (s *Service) AnalyzePolicyAndGenerate(ctx context.Context, text string) (*PolicyAnalysis, error) {
	start := time.Now()
	extraction := s.ExtractRulesFromPolicyText(ctx, text)

	passwords, err := s.Generate(ctx, extraction.Rules)
	if err != nil {
		return nil, err
	}

	s.stats.policyAnalyses.Add(1)
	s.publish(Event{
		Type:      EventPolicyAnalysis,
		Count:     len(passwords),
		Source:    extraction.Source,
		Ambiguous: extraction.Ambiguous,
		Duration:  time.Since(start),
	})

	s.logger.Debug("Policy analyzed",
		zap.String("source", string(extraction.Source)),
		zap.Bool("ambiguous", extraction.Ambiguous),
		zap.Int("min_length", extraction.Rules.MinLength),
		zap.Int("max_length", extraction.Rules.MaxLength))

	return &PolicyAnalysis{
		Analysis:  policy.Summary(extraction.Rules),
		Rules:     extraction.Rules,
		Passwords: passwords,
		Ambiguous: extraction.Ambiguous,
		Source:    extraction.Source,
	}, nil
}

// GetStats returns the running totals
func (s *Service) GetStats() Stats {
	return Stats{
		Generated:        s.stats.generated.Load(),
		RemoteAccepted:   s.stats.remoteAccepted.Load(),
		RemoteRejected:   s.stats.remoteRejected.Load(),
		RemoteFailures:   s.stats.remoteFailures.Load(),
		PatternGenerated: s.stats.patternGenerated.Load(),
		Analyses:         s.stats.analyses.Load(),
		PolicyAnalyses:   s.stats.policyAnalyses.Load(),
	}
}

func (s *Service) analyzed(pw string, producer Producer) GeneratedPassword {
	return GeneratedPassword{
		Password: pw,
		Strength: strength.Analyze(pw),
		Producer: producer,
	}
}

func (s *Service) publish(e Event) {
	if s.publisher == nil {
		return
	}
	e.Timestamp = time.Now()
	s.publisher.Publish(e)
}

func levelCounts(passwords []GeneratedPassword) map[strength.Level]int {
	counts := make(map[strength.Level]int)
	for _, p := range passwords {
		counts[p.Strength.Level]++
	}
	return counts
}
