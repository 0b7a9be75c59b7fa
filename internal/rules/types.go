package rules

// MinAllowedLength is the shortest password the generators will ever emit
const MinAllowedLength = 4

// MaxAllowedLength is the longest password the generators will ever emit
const MaxAllowedLength = 128

const (
	defaultMinLength = 8
	defaultMaxLength = 16
)

// RuleSet is the generation contract handed to a generator. It is a plain
// value: changing a rule means building a new RuleSet.
type RuleSet struct {
	MinLength         int  `json:"minLength" yaml:"min_length" mapstructure:"min_length"`
	MaxLength         int  `json:"maxLength" yaml:"max_length" mapstructure:"max_length"`
	IncludeUppercase  bool `json:"includeUppercase" yaml:"include_uppercase" mapstructure:"include_uppercase"`
	IncludeLowercase  bool `json:"includeLowercase" yaml:"include_lowercase" mapstructure:"include_lowercase"`
	IncludeNumbers    bool `json:"includeNumbers" yaml:"include_numbers" mapstructure:"include_numbers"`
	IncludeSymbols    bool `json:"includeSymbols" yaml:"include_symbols" mapstructure:"include_symbols"`
	AvoidCommonWords  bool `json:"avoidCommonWords" yaml:"avoid_common_words" mapstructure:"avoid_common_words"`
	AvoidPersonalInfo bool `json:"avoidPersonalInfo" yaml:"avoid_personal_info" mapstructure:"avoid_personal_info"`
}

// Default returns the rule set used when a caller supplies none
func Default() RuleSet {
	return RuleSet{
		MinLength:         12,
		MaxLength:         16,
		IncludeUppercase:  true,
		IncludeLowercase:  true,
		IncludeNumbers:    true,
		IncludeSymbols:    true,
		AvoidCommonWords:  true,
		AvoidPersonalInfo: true,
	}
}

// Normalize returns a copy whose length bounds are usable by a generator.
// Unset bounds take the defaults (8 and 16), both bounds are kept within
// MinAllowedLength and MaxAllowedLength and the maximum is clamped up to
// the minimum.
func (r RuleSet) Normalize() RuleSet {
	if r.MinLength <= 0 {
		r.MinLength = defaultMinLength
	}
	if r.MaxLength <= 0 {
		r.MaxLength = defaultMaxLength
	}
	r = r.CapLength(MaxAllowedLength)
	if r.MinLength < MinAllowedLength {
		r.MinLength = MinAllowedLength
	}
	if r.MaxLength < r.MinLength {
		r.MaxLength = r.MinLength
	}
	return r
}

// CapLength returns a copy with neither bound above limit
func (r RuleSet) CapLength(limit int) RuleSet {
	r.MinLength = min(r.MinLength, limit)
	r.MaxLength = min(r.MaxLength, limit)
	return r
}

// HasClass reports whether at least one character-class flag is set
func (r RuleSet) HasClass() bool {
	return r.IncludeUppercase || r.IncludeLowercase || r.IncludeNumbers || r.IncludeSymbols
}

// Classes returns the enabled classes in their canonical order
func (r RuleSet) Classes() []Class {
	classes := make([]Class, 0, 4)
	if r.IncludeUppercase {
		classes = append(classes, Uppercase)
	}
	if r.IncludeLowercase {
		classes = append(classes, Lowercase)
	}
	if r.IncludeNumbers {
		classes = append(classes, Digits)
	}
	if r.IncludeSymbols {
		classes = append(classes, Symbols)
	}
	return classes
}

// FlagCount counts every boolean flag that is set, soft flags included
func (r RuleSet) FlagCount() int {
	count := len(r.Classes())
	if r.AvoidCommonWords {
		count++
	}
	if r.AvoidPersonalInfo {
		count++
	}
	return count
}
