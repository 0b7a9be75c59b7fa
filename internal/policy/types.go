package policy

import (
	"regexp"

	"github.com/raaihank/passforge/internal/rules"
)

// Source records which producer extracted a rule set
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceRemote    Source = "remote"
	SourceCache     Source = "cache"
)

// KeywordRule switches one rule-set flag on when its pattern matches
type KeywordRule struct {
	Name    string
	Pattern *regexp.Regexp
	Apply   func(*rules.RuleSet)
}

// Extraction is the result of reading a policy text. Ambiguous is set when
// no character class could be identified; the rule set is still usable
// because generation falls back to a default charset.
type Extraction struct {
	Rules         rules.RuleSet `json:"rules"`
	Ambiguous     bool          `json:"ambiguous"`
	LengthMatched bool          `json:"lengthMatched"`
	MatchedRules  []string      `json:"matchedRules"`
	Source        Source        `json:"source"`
}
