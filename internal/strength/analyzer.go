package strength

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// GuessesPerSecond is the assumed offline attacker rate
	GuessesPerSecond = 1e9

	// CenturiesLabel is returned when the estimate exceeds a thousand years
	CenturiesLabel = "Centuries"

	patternPenaltyBits = 5.0
	repeatPenaltyBits  = 2.0

	secondsPerMinute  = 60
	secondsPerHour    = 3600
	secondsPerDay     = 86400
	secondsPerYear    = 31536000
	secondsThousandYr = 31536000000
)

// symbolChars is the punctuation recognised when sizing the alphabet
const symbolChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?~`"

var (
	numericRunPattern = regexp.MustCompile(`012|123|234|345|456|567|678|789`)
	alphaRunPattern   = regexp.MustCompile(`(?i)abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz`)
	weakWordPattern   = regexp.MustCompile(`(?i)qwerty|asdf|zxcv|1234|password|admin|user`)
)

// Feedback messages
const (
	FeedbackEnterPassword  = "Enter a password to analyze"
	FeedbackMinLength      = "Use at least 8 characters"
	FeedbackLongerLength   = "Consider using 12+ characters for better security"
	FeedbackAddLowercase   = "Add lowercase letters"
	FeedbackAddUppercase   = "Add uppercase letters"
	FeedbackAddNumbers     = "Add numbers"
	FeedbackAddSymbols     = "Add symbols for stronger security"
	FeedbackRepeated       = "Avoid repeated characters"
	FeedbackSequentialNums = "Avoid sequential numbers"
	FeedbackSequentialAlph = "Avoid sequential letters"
	FeedbackLowEntropy     = "Increase randomness and avoid predictable patterns"
	FeedbackExcellent      = "Excellent password strength!"
)

type composition struct {
	length     int
	hasLower   bool
	hasUpper   bool
	hasDigit   bool
	hasSymbol  bool
	repeatRuns int
}

func compose(password string) composition {
	c := composition{length: utf8.RuneCountInString(password)}

	var prev rune
	run := 0
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			c.hasLower = true
		case r >= 'A' && r <= 'Z':
			c.hasUpper = true
		case r >= '0' && r <= '9':
			c.hasDigit = true
		case strings.ContainsRune(symbolChars, r):
			c.hasSymbol = true
		}

		if run > 0 && r == prev {
			run++
		} else {
			if run >= 3 {
				c.repeatRuns++
			}
			run = 1
		}
		prev = r
	}
	if run >= 3 {
		c.repeatRuns++
	}

	return c
}

func (c composition) charsetSize() int {
	size := 0
	if c.hasLower {
		size += 26
	}
	if c.hasUpper {
		size += 26
	}
	if c.hasDigit {
		size += 10
	}
	if c.hasSymbol {
		size += 32
	}
	return max(size, 1)
}

func (c composition) diversity() int {
	n := 0
	for _, present := range []bool{c.hasLower, c.hasUpper, c.hasDigit, c.hasSymbol} {
		if present {
			n++
		}
	}
	return n
}

// Analyze scores a password. The computation is a single pure pass; the
// empty string short-circuits to the weakest result.
//
// The repeated-run and ascending-run detectors look at adjacent characters,
// so the estimate depends on character order: "abc1" is penalised while
// its permutation "cba1" is not. Descending runs are not detected.
func Analyze(password string) Result {
	if password == "" {
		return Result{
			Score:       0,
			Level:       LevelVeryWeak,
			Color:       LevelVeryWeak.Color(),
			Entropy:     0,
			Feedback:    []string{FeedbackEnterPassword},
			TimeToCrack: "Instant",
		}
	}

	c := compose(password)
	entropy, penalties := entropyOf(password, c)
	score := scoreOf(c, entropy)
	level := LevelForScore(score)

	return Result{
		Score:       score,
		Level:       level,
		Color:       level.Color(),
		Entropy:     entropy,
		Feedback:    feedbackFor(password, c, entropy, penalties),
		TimeToCrack: EstimateCrackTime(entropy),
	}
}

// Entropy returns the adjusted entropy of password in bits
func Entropy(password string) float64 {
	if password == "" {
		return 0
	}
	entropy, _ := entropyOf(password, compose(password))
	return entropy
}

// PenaltiesOf returns the deductions applied to password
func PenaltiesOf(password string) Penalties {
	_, p := entropyOf(password, compose(password))
	return p
}

func entropyOf(password string, c composition) (float64, Penalties) {
	raw := float64(c.length) * math.Log2(float64(c.charsetSize()))

	p := Penalties{
		RepeatedRuns:   c.repeatRuns,
		NumericRuns:    len(numericRunPattern.FindAllStringIndex(password, -1)),
		AlphabeticRuns: len(alphaRunPattern.FindAllStringIndex(password, -1)),
		WeakSubstrings: len(weakWordPattern.FindAllStringIndex(password, -1)),
	}
	matches := p.RepeatedRuns + p.NumericRuns + p.AlphabeticRuns + p.WeakSubstrings
	p.Pattern = float64(matches) * patternPenaltyBits

	counts := make(map[rune]int)
	for _, r := range password {
		counts[r]++
	}
	for _, n := range counts {
		if n > 1 {
			p.Repetition += float64(n-1) * repeatPenaltyBits
		}
	}

	return math.Max(0, raw-p.Pattern-p.Repetition), p
}

func scoreOf(c composition, entropy float64) int {
	score := math.Min(entropy*2, 60)

	if c.length >= 12 {
		score += 10
	}
	if c.length >= 16 {
		score += 10
	}

	score += float64(c.diversity() * 5)

	if c.length < 8 {
		score -= 20
	}
	if !c.hasLower && !c.hasUpper {
		score -= 15
	}
	if !c.hasDigit {
		score -= 10
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// LevelForScore maps a 0-100 score to its tier
func LevelForScore(score int) Level {
	switch {
	case score < 20:
		return LevelVeryWeak
	case score < 40:
		return LevelWeak
	case score < 60:
		return LevelFair
	case score < 80:
		return LevelGood
	case score < 90:
		return LevelStrong
	default:
		return LevelVeryStrong
	}
}

func feedbackFor(password string, c composition, entropy float64, p Penalties) []string {
	feedback := make([]string, 0, 4)

	if c.length < 8 {
		feedback = append(feedback, FeedbackMinLength)
	}
	if c.length < 12 {
		feedback = append(feedback, FeedbackLongerLength)
	}
	if !c.hasLower {
		feedback = append(feedback, FeedbackAddLowercase)
	}
	if !c.hasUpper {
		feedback = append(feedback, FeedbackAddUppercase)
	}
	if !c.hasDigit {
		feedback = append(feedback, FeedbackAddNumbers)
	}
	if !c.hasSymbol {
		feedback = append(feedback, FeedbackAddSymbols)
	}
	if p.RepeatedRuns > 0 {
		feedback = append(feedback, FeedbackRepeated)
	}
	if p.NumericRuns > 0 {
		feedback = append(feedback, FeedbackSequentialNums)
	}
	if p.AlphabeticRuns > 0 {
		feedback = append(feedback, FeedbackSequentialAlph)
	}
	if entropy < 50 {
		feedback = append(feedback, FeedbackLowEntropy)
	}

	if len(feedback) == 0 {
		feedback = append(feedback, FeedbackExcellent)
	}
	return feedback
}

// EstimateCrackTime buckets the average brute-force time for the given
// entropy at GuessesPerSecond
func EstimateCrackTime(entropy float64) string {
	seconds := math.Pow(2, entropy) / 2 / GuessesPerSecond

	switch {
	case seconds < 1:
		return "Instant"
	case seconds < secondsPerMinute:
		return fmt.Sprintf("%.0f seconds", math.Round(seconds))
	case seconds < secondsPerHour:
		return fmt.Sprintf("%.0f minutes", math.Round(seconds/secondsPerMinute))
	case seconds < secondsPerDay:
		return fmt.Sprintf("%.0f hours", math.Round(seconds/secondsPerHour))
	case seconds < secondsPerYear:
		return fmt.Sprintf("%.0f days", math.Round(seconds/secondsPerDay))
	case seconds < secondsThousandYr:
		return fmt.Sprintf("%.0f years", math.Round(seconds/secondsPerYear))
	default:
		return CenturiesLabel
	}
}
