package strength

import (
	zxcvbn "github.com/ccojocar/zxcvbn-go"
)

// maxCrossCheckLength bounds the input handed to zxcvbn, whose matchers
// slow down sharply on long inputs.
const maxCrossCheckLength = 50

// CrossCheck runs zxcvbn over password as a dictionary-aware second opinion.
// userInputs are words (names, emails) that should be treated as guessable.
func CrossCheck(password string, userInputs []string) Estimate {
	if password == "" {
		return Estimate{CrackTimeDisplay: "instant"}
	}

	checked := []rune(password)
	if len(checked) > maxCrossCheckLength {
		checked = checked[:maxCrossCheckLength]
	}

	match := zxcvbn.PasswordStrength(string(checked), userInputs)
	return Estimate{
		Score:            match.Score,
		Entropy:          match.Entropy,
		CrackTimeSeconds: match.CrackTime,
		CrackTimeDisplay: match.CrackTimeDisplay,
	}
}
