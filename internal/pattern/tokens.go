package pattern

import "strings"

// TokenKind is the character class bound to a pattern token
type TokenKind int

const (
	KindUppercase TokenKind = iota
	KindLowercase
	KindDigit
	KindSymbol
	KindAlphanumeric
	KindConsonantUpper
	KindConsonantLower
	KindVowelUpper
	KindVowelLower
)

// Token describes one template symbol
type Token struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Symbol      rune      `json:"-"`
	Pattern     string    `json:"pattern"`
	Description string    `json:"description"`
	Example     string    `json:"example"`
	Kind        TokenKind `json:"-"`
	Chars       string    `json:"chars"`
}

// Preset is a named, ready to use template
type Preset struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

const (
	upperChars          = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars          = "abcdefghjkmnpqrstuvwxyz"
	digitChars          = "23456789"
	symbolChars         = "!@#$%^&*+-="
	alphanumericChars   = upperChars + digitChars + lowerChars
	consonantUpperChars = "BCDFGHJKLMNPQRSTVWXYZ"
	consonantLowerChars = "bcdfghjklmnpqrstvwxyz"
	vowelUpperChars     = "AEIOU"
	vowelLowerChars     = "aeiou"
)

// literalChars lists the characters a template may carry verbatim besides tokens
const literalChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" +
	"@!#$%^&*()_+-=[]{};':\"\\|,.<>/?~`"

var tokens = []Token{
	{ID: "uppercase", Name: "Uppercase Letter", Symbol: 'A', Description: "A random uppercase letter (A-Z)", Example: "M", Kind: KindUppercase, Chars: upperChars},
	{ID: "lowercase", Name: "Lowercase Letter", Symbol: 'a', Description: "A random lowercase letter (a-z)", Example: "k", Kind: KindLowercase, Chars: lowerChars},
	{ID: "number", Name: "Number", Symbol: '1', Description: "A random number (2-9)", Example: "7", Kind: KindDigit, Chars: digitChars},
	{ID: "symbol", Name: "Symbol", Symbol: '@', Description: "A random symbol (!@#$%^&*+-=)", Example: "#", Kind: KindSymbol, Chars: symbolChars},
	{ID: "alphanumeric", Name: "Alphanumeric", Symbol: 'X', Description: "A random letter or number", Example: "F", Kind: KindAlphanumeric, Chars: alphanumericChars},
	{ID: "consonant", Name: "Consonant", Symbol: 'C', Description: "A random uppercase consonant", Example: "B", Kind: KindConsonantUpper, Chars: consonantUpperChars},
	{ID: "consonant_lower", Name: "Lowercase Consonant", Symbol: 'c', Description: "A random lowercase consonant", Example: "t", Kind: KindConsonantLower, Chars: consonantLowerChars},
	{ID: "vowel", Name: "Vowel", Symbol: 'V', Description: "A random uppercase vowel", Example: "E", Kind: KindVowelUpper, Chars: vowelUpperChars},
	{ID: "vowel_lower", Name: "Lowercase Vowel", Symbol: 'v', Description: "A random lowercase vowel", Example: "a", Kind: KindVowelLower, Chars: vowelLowerChars},
}

var tokenBySymbol = func() map[rune]Token {
	m := make(map[rune]Token, len(tokens))
	for _, tok := range tokens {
		tok.Pattern = string(tok.Symbol)
		m[tok.Symbol] = tok
	}
	return m
}()

var presets = []Preset{
	{Name: "Basic Strong", Pattern: "Aa1@Aa1@", Description: "Uppercase, lowercase, number, symbol pattern"},
	{Name: "Memorable", Pattern: "CvcCvc11", Description: "Consonant-vowel-consonant pattern with numbers"},
	{Name: "Corporate", Pattern: "Aa1@Aa1@Aa1@", Description: "Extended pattern for corporate policies"},
	{Name: "Secure Plus", Pattern: "A1@a1@A1@a", Description: "Alternating case with symbols and numbers"},
	{Name: "Pronounceable", Pattern: "CvcCvc@1", Description: "Pronounceable with security suffix"},
}

// Tokens returns the token catalogue in display order
func Tokens() []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		out[i] = tokenBySymbol[tok.Symbol]
	}
	return out
}

// Presets returns the built-in templates
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Lookup returns the token bound to symbol, if any
func Lookup(symbol rune) (Token, bool) {
	tok, ok := tokenBySymbol[symbol]
	return tok, ok
}

func isAllowedLiteral(r rune) bool {
	return strings.ContainsRune(literalChars, r)
}
