package quality

import (
	"regexp"
	"strings"

	"github.com/paultaki/whisperprompts/internal/model"
)

// Signals carries what the generator knows about a prompt beyond its text.
type Signals struct {
	UsesExactPhrase           bool
	ReferencesMultipleStories bool
	AsksAboutAbsence          bool
	AcknowledgesContradiction bool
}

// Score weights. Positive weights sum below 100 so flags are never masked
// by clamping.
const (
	baseScore            = 50
	exactPhraseBonus     = 15
	quotedTextBonus      = 8
	multipleStoriesBonus = 8
	absenceBonus         = 8
	contradictionBonus   = 8
	depthWordBonus       = 2
	maxDepthBonus        = 4
	properNounBonus      = 4
	genericNounPenalty   = 15
	wordyPenalty         = 5
	missingQuestionMark  = 5
	wordyThreshold       = 25
)

var depthWords = []string{"felt", "learned", "realized", "taught", "meant", "changed", "decided", "chose"}

var (
	quotedRe        = regexp.MustCompile(`["“][^"”]+\s[^"”]+["”]`)
	absenceRe       = regexp.MustCompile(`(?i)\b(?:never|missing|absent|without|wasn't there|weren't there|didn't|left out|no longer|gone)\b`)
	contradictionRe = regexp.MustCompile(`(?i)\b(?:yet|even though|although|but still|despite|instead)\b`)
	multipleRe      = regexp.MustCompile(`(?i)\b(?:again and again|every time|each time|keeps? coming up|in several|across your stories|more than once|both times)\b`)
	depthRe         = regexp.MustCompile(`(?i)\b(?:` + strings.Join(depthWords, "|") + `)\b`)
	sentenceStartRe = regexp.MustCompile(`(?:^|[.!?]\s+)\S+`)
)

// Score returns a 0–100 desirability score for promptText. Scoring is
// advisory: it ranks prompts that have already passed Validate.
func Score(promptText string, signals *Signals) int {
	text := strings.TrimSpace(promptText)
	if text == "" {
		return 0
	}

	var s Signals
	if signals != nil {
		s = *signals
	}

	score := baseScore

	switch {
	case s.UsesExactPhrase:
		score += exactPhraseBonus
	case quotedRe.MatchString(text):
		score += quotedTextBonus
	}

	if s.ReferencesMultipleStories || multipleRe.MatchString(text) {
		score += multipleStoriesBonus
	}
	if s.AsksAboutAbsence || absenceRe.MatchString(text) {
		score += absenceBonus
	}
	if s.AcknowledgesContradiction || contradictionRe.MatchString(text) {
		score += contradictionBonus
	}

	depth := len(depthRe.FindAllString(text, -1)) * depthWordBonus
	if depth > maxDepthBonus {
		depth = maxDepthBonus
	}
	score += depth

	if hasMidSentenceProperNoun(text) {
		score += properNounBonus
	}

	if ContainsGenericNoun(text) {
		score -= genericNounPenalty
	}
	if model.WordCount(text) > wordyThreshold {
		score -= wordyPenalty
	}
	if !strings.HasSuffix(text, "?") {
		score -= missingQuestionMark
	}

	return clamp(score, 0, 100)
}

// hasMidSentenceProperNoun ignores the first word of each sentence so that
// ordinary capitalisation does not count as specificity.
func hasMidSentenceProperNoun(text string) bool {
	stripped := sentenceStartRe.ReplaceAllString(text, " ")
	return hasProperNoun(stripped)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
