package quality

import (
	"regexp"
	"strings"

	"github.com/paultaki/whisperprompts/internal/model"
)

// RoboticPhrases are canned continuations that make a prompt sound like a form.
var RoboticPhrases = []string{
	"in your story about",
	"in your story",
	"tell me more",
	"what else do you remember",
	"can you tell me",
	"could you tell me",
	"can you share",
	"could you share",
	"share more about",
	"can you describe",
	"could you describe",
	"you mentioned",
	"elaborate on",
	"expand on",
	"talk more about",
	"anything else",
}

// TherapyPhrases are introspective or clinical framings the product avoids.
var TherapyPhrases = []string{
	"how did that make you feel",
	"how did it make you feel",
	"how does that make you feel",
	"how does it make you feel",
	"how do you feel about",
	"what's the clearest memory you have",
	"what is the clearest memory you have",
	"clearest memory",
	"what emotions",
	"how did you process",
	"what does that mean to you",
	"what did that mean to you",
	"what did you learn about yourself",
	"how did you cope",
	"healing",
	"trauma",
}

// yesNoRe matches questions that open with an auxiliary or modal verb.
var yesNoRe = regexp.MustCompile(`(?i)^\s*(?:did|was|were|do|does|is|are|have|has|had|can|could|would|will|should|am)\b`)

// Rejection reasons returned by Check.
const (
	ReasonEmpty          = "empty"
	ReasonTooLong        = "too_long"
	ReasonRobotic        = "robotic_phrase"
	ReasonTherapy        = "therapy_speak"
	ReasonYesNo          = "yes_no_question"
	ReasonGenericSubject = "generic_subject"
)

// Verdict is the outcome of validating a prompt.
type Verdict struct {
	Valid  bool
	Reason string
	Match  string
}

// Validate reports whether promptText passes every hard acceptance rule.
func Validate(promptText string) bool {
	return Check(promptText).Valid
}

// Check validates promptText and explains the first rule it breaks.
func Check(promptText string) Verdict {
	text := strings.TrimSpace(promptText)
	if text == "" {
		return Verdict{Reason: ReasonEmpty}
	}

	if model.WordCount(text) > model.MaxPromptWords {
		return Verdict{Reason: ReasonTooLong}
	}

	lower := normalizeQuotes(strings.ToLower(text))

	for _, p := range RoboticPhrases {
		if strings.Contains(lower, p) {
			return Verdict{Reason: ReasonRobotic, Match: p}
		}
	}

	for _, p := range TherapyPhrases {
		if strings.Contains(lower, p) {
			return Verdict{Reason: ReasonTherapy, Match: p}
		}
	}

	if m := yesNoRe.FindString(text); m != "" {
		return Verdict{Reason: ReasonYesNo, Match: strings.TrimSpace(m)}
	}

	if m := genericSubjectRe.FindString(text); m != "" {
		return Verdict{Reason: ReasonGenericSubject, Match: m}
	}

	return Verdict{Valid: true}
}

func normalizeQuotes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(s)
}
