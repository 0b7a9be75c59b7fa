package remote

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raaihank/passforge/internal/rules"
)

const (
	candidateSystemPrompt = "You are a secure password generation assistant. Generate exactly the requested number of unique, secure passwords based on the user requirements. Return only the passwords, one per line, without any additional text or formatting."

	policySystemPrompt = "You are a password policy analyzer. Read the password policy and answer with a single JSON object only."
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// RenderPrompt renders the request for count candidates satisfying r
func RenderPrompt(r rules.RuleSet, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate %d secure passwords with the following requirements:\n\n", count)
	fmt.Fprintf(&b, "- Length: between %d and %d characters\n", r.MinLength, r.MaxLength)
	fmt.Fprintf(&b, "- Include uppercase letters: %s\n", yesNo(r.IncludeUppercase))
	fmt.Fprintf(&b, "- Include lowercase letters: %s\n", yesNo(r.IncludeLowercase))
	fmt.Fprintf(&b, "- Include numbers: %s\n", yesNo(r.IncludeNumbers))
	fmt.Fprintf(&b, "- Include symbols: %s\n", yesNo(r.IncludeSymbols))
	fmt.Fprintf(&b, "- Avoid common words: %s\n", yesNo(r.AvoidCommonWords))
	fmt.Fprintf(&b, "- Avoid personal info: %s\n", yesNo(r.AvoidPersonalInfo))
	b.WriteString("\nMake sure all passwords are:\n")
	b.WriteString("- Randomly generated\n")
	b.WriteString("- Secure and unpredictable\n")
	b.WriteString("- User-friendly (avoid confusing characters like l and 1, or O and 0)\n")
	b.WriteString("- Unique from each other\n")
	fmt.Fprintf(&b, "\nReturn exactly %d passwords, one per line.", count)

	return b.String()
}

// RenderPolicyPrompt renders the rule-extraction request for a policy text
func RenderPolicyPrompt(policyText string) string {
	var b strings.Builder

	b.WriteString("Extract the password requirements from this policy:\n\n")
	b.WriteString(policyText)
	b.WriteString("\n\nAnswer with JSON using exactly these fields: ")
	b.WriteString(`{"minLength": number, "maxLength": number, "includeUppercase": bool, `)
	b.WriteString(`"includeLowercase": bool, "includeNumbers": bool, "includeSymbols": bool, `)
	b.WriteString(`"avoidCommonWords": bool, "avoidPersonalInfo": bool}`)

	return b.String()
}

// ParseCandidates splits a response into trimmed, non-empty lines and keeps
// at most limit of them. A non-positive limit keeps every line.
func ParseCandidates(text string, limit int) []string {
	lines := strings.Split(text, "\n")
	candidates := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		candidates = append(candidates, line)
		if limit > 0 && len(candidates) == limit {
			break
		}
	}

	return candidates
}

// ParseRuleSet decodes a JSON rule set from a model answer. Surrounding prose
// and code fences are tolerated; the first {...} block is decoded.
func ParseRuleSet(text string) (rules.RuleSet, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return rules.RuleSet{}, fmt.Errorf("no JSON object in response: %w", ErrEmptyResponse)
	}

	var r rules.RuleSet
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return rules.RuleSet{}, fmt.Errorf("failed to decode rule set: %w", err)
	}

	return r.Normalize(), nil
}
