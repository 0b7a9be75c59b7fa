package pattern

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/raaihank/passforge/internal/generator"
	"github.com/raaihank/passforge/internal/random"
)

// Length bounds for a template
const (
	MinLength = 4
	MaxLength = 32
)

// ValidationError lists every structural problem found in a template
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid pattern: " + strings.Join(e.Errors, "; ")
}

// ValidationResult is the outcome of Validate
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Complexity is the static structural score of a template
type Complexity struct {
	Score        int  `json:"score"`
	HasUppercase bool `json:"hasUppercase"`
	HasLowercase bool `json:"hasLowercase"`
	HasNumbers   bool `json:"hasNumbers"`
	HasSymbols   bool `json:"hasSymbols"`
	Length       int  `json:"length"`
}

// Element is one compiled template position: a character class to draw
// from, or a literal emitted as is
type Element struct {
	Chars   []rune
	Literal rune
}

// IsLiteral reports whether the element is passed through unchanged
func (e Element) IsLiteral() bool {
	return e.Chars == nil
}

// Compiled is the reusable form of a template
type Compiled struct {
	Pattern  string
	Elements []Element
}

// Validate checks a template without side effects
func Validate(pattern string) ValidationResult {
	errs := make([]string, 0)

	if strings.TrimSpace(pattern) == "" {
		errs = append(errs, "Pattern cannot be empty")
	}

	length := utf8.RuneCountInString(pattern)
	if length < MinLength {
		errs = append(errs, fmt.Sprintf("Pattern should be at least %d characters long", MinLength))
	}
	if length > MaxLength {
		errs = append(errs, fmt.Sprintf("Pattern should not exceed %d characters", MaxLength))
	}

	var invalid []string
	for _, r := range pattern {
		if _, ok := tokenBySymbol[r]; ok {
			continue
		}
		if !isAllowedLiteral(r) {
			invalid = append(invalid, string(r))
		}
	}
	if len(invalid) > 0 {
		errs = append(errs, "Invalid pattern characters: "+strings.Join(invalid, ", "))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Compile scans the template left to right, binding token characters to
// their class and keeping everything else as a literal. It does not
// validate; callers run Validate first.
func Compile(pattern string) Compiled {
	elements := make([]Element, 0, len(pattern))
	for _, r := range pattern {
		if tok, ok := tokenBySymbol[r]; ok {
			elements = append(elements, Element{Chars: []rune(tok.Chars)})
			continue
		}
		elements = append(elements, Element{Literal: r})
	}
	return Compiled{Pattern: pattern, Elements: elements}
}

// Generate emits one string matching the compiled template. A random source
// fault is reported as a *generator.GenerationFailure.
func (c Compiled) Generate(src *random.Source) (string, error) {
	var b strings.Builder
	b.Grow(len(c.Elements))

	for i, el := range c.Elements {
		if el.IsLiteral() {
			b.WriteRune(el.Literal)
			continue
		}
		r, err := src.Pick(el.Chars)
		if err != nil {
			return "", &generator.GenerationFailure{Op: fmt.Sprintf("draw pattern position %d", i), Err: err}
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// GetComplexity scores the template structure: two points per character,
// ten each for uppercase, lowercase and digit tokens, twenty for a symbol
// token, capped at 100
func GetComplexity(pattern string) Complexity {
	c := Complexity{
		HasUppercase: strings.ContainsAny(pattern, "ACV"),
		HasLowercase: strings.ContainsAny(pattern, "acv"),
		HasNumbers:   strings.ContainsRune(pattern, '1'),
		HasSymbols:   strings.ContainsRune(pattern, '@'),
		Length:       utf8.RuneCountInString(pattern),
	}

	score := c.Length * 2
	if c.HasUppercase {
		score += 10
	}
	if c.HasLowercase {
		score += 10
	}
	if c.HasNumbers {
		score += 10
	}
	if c.HasSymbols {
		score += 20
	}
	c.Score = min(score, 100)

	return c
}

// Compiler validates templates and keeps their compiled form
type Compiler struct {
	source   *random.Source
	compiled map[string]Compiled
	maxSize  int
	mu       sync.RWMutex
}

// NewCompiler creates a compiler drawing from src. A nil src uses crypto/rand.
func NewCompiler(src *random.Source) *Compiler {
	if src == nil {
		src = random.Default()
	}
	return &Compiler{
		source:   src,
		compiled: make(map[string]Compiled),
		maxSize:  256,
	}
}

// Compile returns the cached compiled form of pattern, or a
// *ValidationError when the template is invalid
func (c *Compiler) Compile(pattern string) (Compiled, error) {
	c.mu.RLock()
	compiled, ok := c.compiled[pattern]
	c.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	if result := Validate(pattern); !result.Valid {
		return Compiled{}, &ValidationError{Errors: result.Errors}
	}

	compiled = Compile(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.compiled) >= c.maxSize {
		c.compiled = make(map[string]Compiled)
	}
	c.compiled[pattern] = compiled

	return compiled, nil
}

// Generate validates, compiles and expands pattern once
func (c *Compiler) Generate(pattern string) (string, error) {
	compiled, err := c.Compile(pattern)
	if err != nil {
		return "", err
	}
	return compiled.Generate(c.source)
}

// GenerateBatch expands pattern count times from a single compilation
func (c *Compiler) GenerateBatch(pattern string, count int) ([]string, error) {
	compiled, err := c.Compile(pattern)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := compiled.Generate(c.source)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
