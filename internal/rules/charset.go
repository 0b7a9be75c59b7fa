package rules

import (
	"strings"
	"unicode/utf8"
)

// Class identifies one of the four generator character classes
type Class int

const (
	Uppercase Class = iota
	Lowercase
	Digits
	Symbols
)

// Character classes exclude look-alikes (I, O, l, i, o, 0, 1). The symbol
// set is kept small so generated passwords stay easy to type.
const (
	UppercaseChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	LowercaseChars = "abcdefghjkmnpqrstuvwxyz"
	DigitChars     = "23456789"
	SymbolChars    = "@#$%&*+=-"

	// FallbackChars is sampled when a rule set enables no class at all
	FallbackChars = LowercaseChars + UppercaseChars + DigitChars
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case Uppercase:
		return "uppercase"
	case Lowercase:
		return "lowercase"
	case Digits:
		return "numbers"
	case Symbols:
		return "symbols"
	default:
		return "unknown"
	}
}

// Chars returns the characters belonging to the class
func (c Class) Chars() string {
	switch c {
	case Uppercase:
		return UppercaseChars
	case Lowercase:
		return LowercaseChars
	case Digits:
		return DigitChars
	case Symbols:
		return SymbolChars
	default:
		return ""
	}
}

// ClassSet pairs an enabled class with the characters it may contribute
type ClassSet struct {
	Class Class
	Chars string
}

// Charset is the sampling plan derived from a RuleSet: Pool feeds filler
// characters, Required holds one entry per enabled class.
type Charset struct {
	Pool     string
	Required []ClassSet
	Fallback bool
}

// Resolve maps a rule set to its sampling plan. It never returns an empty
// pool: a rule set without classes falls back to FallbackChars.
func Resolve(r RuleSet) Charset {
	var pool strings.Builder
	classes := r.Classes()
	required := make([]ClassSet, 0, len(classes))

	for _, class := range classes {
		pool.WriteString(class.Chars())
		required = append(required, ClassSet{Class: class, Chars: class.Chars()})
	}

	if pool.Len() == 0 {
		return Charset{Pool: FallbackChars, Fallback: true}
	}

	return Charset{Pool: pool.String(), Required: required}
}

// Conforms reports whether password satisfies the length bounds and
// contains at least one character of every enabled class. It is used to
// vet candidates that were not produced by the local generator.
func Conforms(r RuleSet, password string) bool {
	r = r.Normalize()
	length := utf8.RuneCountInString(password)
	if length < r.MinLength || length > r.MaxLength {
		return false
	}

	for _, class := range r.Classes() {
		if !strings.ContainsAny(password, class.Chars()) {
			return false
		}
	}
	return true
}
