package strength

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		got := Analyze("")
		assert.Equal(t, Result{
			Score:       0,
			Level:       LevelVeryWeak,
			Color:       "#ff4444",
			Entropy:     0,
			Feedback:    []string{FeedbackEnterPassword},
			TimeToCrack: "Instant",
		}, got)
	})

	t.Run("ShortMixed", func(t *testing.T) {
		got := Analyze("Aa1@")
		assert.InDelta(t, 4*math.Log2(94), got.Entropy, 1e-9)
		assert.Equal(t, 52, got.Score)
		assert.Equal(t, LevelFair, got.Level)
		assert.Equal(t, "#ffaa00", got.Color)
		assert.Equal(t, []string{FeedbackMinLength, FeedbackLongerLength, FeedbackLowEntropy}, got.Feedback)
		assert.Equal(t, "Instant", got.TimeToCrack)
	})

	t.Run("RepeatedLowercase", func(t *testing.T) {
		got := Analyze("aaa")
		assert.InDelta(t, 3*math.Log2(26)-5-4, got.Entropy, 1e-9)
		assert.Equal(t, 0, got.Score)
		assert.Equal(t, LevelVeryWeak, got.Level)
		assert.Equal(t, []string{
			FeedbackMinLength,
			FeedbackLongerLength,
			FeedbackAddUppercase,
			FeedbackAddNumbers,
			FeedbackAddSymbols,
			FeedbackRepeated,
			FeedbackLowEntropy,
		}, got.Feedback)
	})

	t.Run("Sequences", func(t *testing.T) {
		got := Analyze("abc123")
		assert.InDelta(t, 6*math.Log2(36)-10, got.Entropy, 1e-9)
		assert.Contains(t, got.Feedback, FeedbackSequentialNums)
		assert.Contains(t, got.Feedback, FeedbackSequentialAlph)
		assert.NotContains(t, got.Feedback, FeedbackRepeated)
	})

	t.Run("Excellent", func(t *testing.T) {
		got := Analyze("Xk9#mP2$vL7@qR4!")
		assert.InDelta(t, 16*math.Log2(94), got.Entropy, 1e-9)
		assert.Equal(t, 100, got.Score)
		assert.Equal(t, LevelVeryStrong, got.Level)
		assert.Equal(t, "#00aa88", got.Color)
		assert.Equal(t, []string{FeedbackExcellent}, got.Feedback)
		assert.Equal(t, CenturiesLabel, got.TimeToCrack)
	})

	t.Run("NoLettersPenalty", func(t *testing.T) {
		digits := Analyze("29384756")
		assert.Equal(t, int(math.Round(math.Min(8*math.Log2(10)*2, 60)+5-15)), digits.Score)
		assert.Contains(t, digits.Feedback, FeedbackAddLowercase)
		assert.Contains(t, digits.Feedback, FeedbackAddUppercase)
	})

	t.Run("OrderIndependentWithoutRuns", func(t *testing.T) {
		a := Analyze("Xk9#mP2$vL7@qR4!")
		b := Analyze("!4Rq@7Lv$2Pm#9kX")
		assert.Equal(t, a, b)
	})

	t.Run("RunDetectorsDependOnOrder", func(t *testing.T) {
		assert.Equal(t, 1, PenaltiesOf("abc1").AlphabeticRuns)
		assert.Equal(t, 0, PenaltiesOf("cba1").AlphabeticRuns)
		assert.Less(t, Analyze("abc1").Entropy, Analyze("cba1").Entropy)

		assert.Equal(t, 1, PenaltiesOf("aaab1").RepeatedRuns)
		assert.Equal(t, 0, PenaltiesOf("abaa1").RepeatedRuns)
		assert.Less(t, Analyze("aaab1").Entropy, Analyze("abaa1").Entropy)
	})

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, Analyze("hunter2"), Analyze("hunter2"))
	})

	t.Run("ScoreInRange", func(t *testing.T) {
		for _, pw := range []string{"a", "password", "P@ssw0rd", "correct horse battery staple", "ÄÖÜäöü", "!!!!!!!!"} {
			got := Analyze(pw)
			assert.GreaterOrEqual(t, got.Score, 0, pw)
			assert.LessOrEqual(t, got.Score, 100, pw)
			assert.GreaterOrEqual(t, got.Entropy, 0.0, pw)
			assert.Equal(t, LevelForScore(got.Score), got.Level, pw)
			assert.NotEmpty(t, got.Feedback, pw)
		}
	})
}

func TestPenalties(t *testing.T) {
	t.Run("MaximalRuns", func(t *testing.T) {
		assert.Equal(t, 1, PenaltiesOf("aaaaaa").RepeatedRuns)
		assert.Equal(t, 2, PenaltiesOf("aaabbb").RepeatedRuns)
		assert.Equal(t, 0, PenaltiesOf("aabbaa").RepeatedRuns)
	})

	t.Run("WeakSubstringsIgnoreCase", func(t *testing.T) {
		assert.Equal(t, 1, PenaltiesOf("PassWord").WeakSubstrings)
		assert.Equal(t, 2, PenaltiesOf("admin-user").WeakSubstrings)
	})

	t.Run("NonOverlappingNumericRuns", func(t *testing.T) {
		p := PenaltiesOf("1234")
		assert.Equal(t, 1, p.NumericRuns)
		assert.Equal(t, 1, p.WeakSubstrings)
		assert.Equal(t, 10.0, p.Pattern)
	})

	t.Run("ZeroStartsNumericRun", func(t *testing.T) {
		assert.Equal(t, 1, PenaltiesOf("x012y").NumericRuns)
	})

	t.Run("Repetition", func(t *testing.T) {
		p := PenaltiesOf("abab")
		assert.Equal(t, 4.0, p.Repetition)
	})

	t.Run("EntropyNeverNegative", func(t *testing.T) {
		assert.Equal(t, 0.0, Entropy("ÄÄÄÄ"))
	})
}

func TestLevelForScore(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelVeryWeak},
		{19, LevelVeryWeak},
		{20, LevelWeak},
		{39, LevelWeak},
		{40, LevelFair},
		{60, LevelGood},
		{80, LevelStrong},
		{89, LevelStrong},
		{90, LevelVeryStrong},
		{100, LevelVeryStrong},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelForScore(tc.score), "score %d", tc.score)
	}
}

func TestLevelHelpers(t *testing.T) {
	assert.Equal(t, 0, LevelVeryWeak.Rank())
	assert.Equal(t, 5, LevelVeryStrong.Rank())
	assert.Equal(t, -1, Level("Unknown").Rank())

	level, ok := ParseLevel("Good")
	require.True(t, ok)
	assert.Equal(t, LevelGood, level)

	_, ok = ParseLevel("good")
	assert.False(t, ok)
}

func TestEstimateCrackTime(t *testing.T) {
	assert.Equal(t, "Instant", EstimateCrackTime(0))
	assert.Equal(t, "45 seconds", EstimateCrackTime(math.Log2(9e10)))
	assert.Equal(t, "2 minutes", EstimateCrackTime(math.Log2(2.4e11)))
	assert.Equal(t, "3 hours", EstimateCrackTime(math.Log2(2*3*3600*1e9)))
	assert.Equal(t, "5 days", EstimateCrackTime(math.Log2(2*5*86400*1e9)))
	assert.Equal(t, "7 years", EstimateCrackTime(math.Log2(2*7*31536000*1e9)))
	assert.Equal(t, CenturiesLabel, EstimateCrackTime(200))
}

func TestCrossCheck(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		got := CrossCheck("", nil)
		assert.Equal(t, 0, got.Score)
	})

	t.Run("DictionaryWord", func(t *testing.T) {
		got := CrossCheck("password", nil)
		assert.Equal(t, 0, got.Score)
	})

	t.Run("RandomString", func(t *testing.T) {
		got := CrossCheck("Xk9#mP2$vL7@qR4!", nil)
		assert.Equal(t, 4, got.Score)
		assert.Greater(t, got.Entropy, 40.0)
	})

	t.Run("UserInputsAreGuessable", func(t *testing.T) {
		with := CrossCheck("zanzibarquokka", []string{"zanzibarquokka"})
		without := CrossCheck("zanzibarquokka", nil)
		assert.Less(t, with.Entropy, without.Entropy)
	})
}
