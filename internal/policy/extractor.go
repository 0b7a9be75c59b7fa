package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/raaihank/passforge/internal/rules"
)

const (
	defaultMinLength = 8
	defaultMaxLength = 16
)

var lengthPattern = regexp.MustCompile(`(\d+)(?:\s*(?:to|-)?\s*(\d+))?\s*characters?`)

// GetDefaultKeywordRules returns the keyword table used by Extract
func GetDefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Name:    "uppercase",
			Pattern: regexp.MustCompile(`(?i)uppercase|capital`),
			Apply:   func(r *rules.RuleSet) { r.IncludeUppercase = true },
		},
		{
			Name:    "lowercase",
			Pattern: regexp.MustCompile(`(?i)lowercase|small`),
			Apply:   func(r *rules.RuleSet) { r.IncludeLowercase = true },
		},
		{
			Name:    "numbers",
			Pattern: regexp.MustCompile(`(?i)number|digit|numeric`),
			Apply:   func(r *rules.RuleSet) { r.IncludeNumbers = true },
		},
		{
			Name:    "symbols",
			Pattern: regexp.MustCompile(`(?i)symbol|special|character|punctuation`),
			Apply:   func(r *rules.RuleSet) { r.IncludeSymbols = true },
		},
	}
}

var defaultKeywordRules = GetDefaultKeywordRules()

// Extract reads free-form policy text into a rule set. It is best effort
// and never fails: missing information falls back to defaults.
func Extract(text string) Extraction {
	lower := strings.ToLower(text)

	ruleSet := rules.RuleSet{
		MinLength:         defaultMinLength,
		MaxLength:         defaultMaxLength,
		AvoidCommonWords:  true,
		AvoidPersonalInfo: true,
	}

	extraction := Extraction{Source: SourceHeuristic, MatchedRules: []string{}}

	if minLen, maxLen, ok := parseLength(lower); ok {
		ruleSet.MinLength = minLen
		ruleSet.MaxLength = maxLen
		extraction.LengthMatched = true
	}

	for _, rule := range defaultKeywordRules {
		if rule.Pattern.MatchString(lower) {
			rule.Apply(&ruleSet)
			extraction.MatchedRules = append(extraction.MatchedRules, rule.Name)
		}
	}

	extraction.Rules = ruleSet
	extraction.Ambiguous = !ruleSet.HasClass()
	return extraction
}

// ExtractRules is Extract without the bookkeeping
func ExtractRules(text string) rules.RuleSet {
	return Extract(text).Rules
}

// parseLength finds the first "N [to|-] M characters" expression. Without
// an upper bound the maximum becomes max(N+8, 16).
func parseLength(text string) (int, int, bool) {
	m := lengthPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}

	minLen, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}

	if m[2] != "" {
		if maxLen, err := strconv.Atoi(m[2]); err == nil {
			return minLen, maxLen, true
		}
	}

	return minLen, max(minLen+8, defaultMaxLength), true
}

// Summary renders the one-line description of an extracted rule set
func Summary(r rules.RuleSet) string {
	return fmt.Sprintf("Policy analyzed: Extracted %d-%d character requirements with %d character type requirements.",
		r.MinLength, r.MaxLength, r.FlagCount())
}
