package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raaihank/passforge/internal/rules"
)

func TestExtract(t *testing.T) {
	t.Run("FullPolicy", func(t *testing.T) {
		got := ExtractRules("Password must be 8-16 characters, include uppercase, lowercase, numbers, and symbols")
		assert.Equal(t, rules.RuleSet{
			MinLength:         8,
			MaxLength:         16,
			IncludeUppercase:  true,
			IncludeLowercase:  true,
			IncludeNumbers:    true,
			IncludeSymbols:    true,
			AvoidCommonWords:  true,
			AvoidPersonalInfo: true,
		}, got)
	})

	t.Run("ToSeparator", func(t *testing.T) {
		got := ExtractRules("Between 10 to 20 Characters with a CAPITAL letter")
		assert.Equal(t, 10, got.MinLength)
		assert.Equal(t, 20, got.MaxLength)
		assert.True(t, got.IncludeUppercase)
	})

	t.Run("SingleBound", func(t *testing.T) {
		got := ExtractRules("at least 12 characters")
		assert.Equal(t, 12, got.MinLength)
		assert.Equal(t, 20, got.MaxLength)
	})

	t.Run("SmallSingleBoundUsesSixteen", func(t *testing.T) {
		got := ExtractRules("6 characters minimum")
		assert.Equal(t, 6, got.MinLength)
		assert.Equal(t, 16, got.MaxLength)
	})

	t.Run("NoLength", func(t *testing.T) {
		e := Extract("must contain a digit")
		assert.False(t, e.LengthMatched)
		assert.Equal(t, 8, e.Rules.MinLength)
		assert.Equal(t, 16, e.Rules.MaxLength)
		assert.True(t, e.Rules.IncludeNumbers)
		assert.Equal(t, []string{"numbers"}, e.MatchedRules)
	})

	t.Run("NoKeywordsIsAmbiguous", func(t *testing.T) {
		e := Extract("be creative")
		assert.True(t, e.Ambiguous)
		assert.False(t, e.Rules.HasClass())
		assert.True(t, e.Rules.AvoidCommonWords)
		assert.True(t, e.Rules.AvoidPersonalInfo)
		assert.Equal(t, SourceHeuristic, e.Source)
	})

	t.Run("CharacterWordEnablesSymbols", func(t *testing.T) {
		got := ExtractRules("12 characters")
		assert.True(t, got.IncludeSymbols)
	})

	t.Run("FirstLengthExpressionWins", func(t *testing.T) {
		got := ExtractRules("8-12 characters for users, 16-24 characters for admins")
		assert.Equal(t, 8, got.MinLength)
		assert.Equal(t, 12, got.MaxLength)
	})

	t.Run("OverflowingNumberFallsBack", func(t *testing.T) {
		e := Extract("99999999999999999999999 characters")
		assert.False(t, e.LengthMatched)
		assert.Equal(t, 8, e.Rules.MinLength)
	})
}

func TestSummary(t *testing.T) {
	r := ExtractRules("8-16 characters, uppercase, lowercase, numbers, symbols")
	assert.Equal(t, "Policy analyzed: Extracted 8-16 character requirements with 6 character type requirements.", Summary(r))
}
