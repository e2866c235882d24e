// Package sanitize strips prompt-injection patterns from user-authored text
// before it is embedded in an LLM request.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLength is the maximum number of characters kept after sanitization.
const MaxLength = 10000

var (
	rolePattern = regexp.MustCompile(`(?i)\b(?:system|assistant|developer)[ \t]*:`)
	// "user:" is only a role marker at the start of a line.
	userRolePattern = regexp.MustCompile(`(?im)^[ \t]*user[ \t]*:`)

	overridePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:ignore|disregard|forget)\s+(?:all\s+)?(?:of\s+)?(?:the\s+|your\s+)?(?:previous|prior|above|earlier)(?:\s+(?:instructions?|prompts?|messages?|rules?))?`),
		regexp.MustCompile(`(?i)\bnew\s+instructions?\b[ \t]*:?`),
	}

	templatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)\{\{.*?\}\}`),
		regexp.MustCompile(`\$\{[^}]*\}`),
		regexp.MustCompile(`<\|[^|>]*\|>`),
		regexp.MustCompile(`(?i)\[/?INST\]`),
		regexp.MustCompile(`(?i)<</?SYS>>`),
	}

	blankRunPattern = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// Sanitize removes role-spoofing tokens, instruction-override phrases,
// template-injection syntax and excessive blank lines, then caps the result
// at MaxLength characters. It never fails; empty input yields "".
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	out := text
	// Removing one match can splice a new one together, so repeat until
	// nothing changes. Every pass that changes the text shortens it.
	for {
		next := strip(out)
		if next == out {
			break
		}
		out = next
	}

	out = strings.TrimSpace(out)
	if runes := []rune(out); len(runes) > MaxLength {
		out = strings.TrimSpace(string(runes[:MaxLength]))
	}

	return out
}

func strip(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = rolePattern.ReplaceAllString(s, "")
	s = userRolePattern.ReplaceAllString(s, "")
	for _, p := range overridePatterns {
		s = p.ReplaceAllString(s, "")
	}
	for _, p := range templatePatterns {
		s = p.ReplaceAllString(s, "")
	}
	return blankRunPattern.ReplaceAllString(s, "\n\n")
}

// All sanitizes each element of texts, dropping those that end up empty.
func All(texts ...string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := Sanitize(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}
