package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/paultaki/whisperprompts/internal/llm"
	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/quality"
	"github.com/paultaki/whisperprompts/internal/sanitize"
	"github.com/paultaki/whisperprompts/internal/timeline"
)

// ErrParse is returned when the milestone response is not the expected JSON.
var ErrParse = errors.New("parse milestone response")

// ErrNoStories is returned when a milestone is analyzed without any stories.
var ErrNoStories = errors.New("no stories to analyze")

// PaywallMilestone is the story count at which only the first prompt of the
// batch is unlocked.
const PaywallMilestone = 3

const (
	milestoneTemperature = 0.7
	milestoneMaxTokens   = 4000
	deepMaxTokens        = 8000
	maxGapsInContext     = 3
)

// targetCounts maps a milestone to how many prompts to request. Early
// milestones get more prompts to build momentum.
var targetCounts = map[int]int{
	1: 3, 2: 3, 3: 5, 4: 4, 7: 4,
	10: 3, 15: 3, 20: 2, 30: 2,
	50: 1, 100: 1,
}

// TargetCount returns the number of prompts requested at storyCount.
func TargetCount(storyCount int) int {
	if n, ok := targetCounts[storyCount]; ok {
		return n
	}
	switch {
	case storyCount < 10:
		return 3
	case storyCount < 50:
		return 2
	default:
		return 1
	}
}

// MilestoneResult is the outcome of one milestone analysis.
type MilestoneResult struct {
	Prompts           []model.Prompt
	CharacterInsights *model.CharacterInsight
	Timeline          timeline.Report
	ModelVersion      string
	Usage             llm.Usage
	Rejected          int
	Fallback          bool
}

// Analyzer runs whole-corpus milestone analysis.
type Analyzer struct {
	gateway  llm.Gateway
	selector llm.Selector
	Now      func() time.Time
}

// NewAnalyzer creates a milestone analyzer.
func NewAnalyzer(gateway llm.Gateway, selector llm.Selector) *Analyzer {
	return &Analyzer{gateway: gateway, selector: selector, Now: time.Now}
}

// Analyze sends every story to the model and returns validated prompts.
// The result always holds at least one prompt; when every candidate fails
// validation a deterministic fallback is synthesized. Gateway and parse
// failures are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, stories []model.Story, storyCount int, birthYear *int) (*MilestoneResult, error) {
	if len(stories) == 0 {
		return nil, ErrNoStories
	}

	now := a.Now()
	deep := a.selector.DeepInsights
	target := TargetCount(storyCount)
	report := timeline.DetectGaps(stories, birthYear, now)

	stage, maxTokens := llm.StageTier3, milestoneMaxTokens
	insightBlock, insightSchema := "", ""
	if deep {
		stage, maxTokens = llm.StageDeep, deepMaxTokens
		insightBlock, insightSchema = InsightInstructions, InsightSchema
	}
	sel := a.selector.Select(stage, storyCount)

	system := fmt.Sprintf(MilestoneSystemPrompt, target, insightBlock, insightSchema)
	user := fmt.Sprintf(MilestoneUserPrompt, storyCount, timelineContext(report), formatCorpus(stories))

	resp, err := a.gateway.Complete(ctx, llm.Request{
		Model: sel.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		ReasoningEffort: sel.ReasoningEffort,
		Temperature:     milestoneTemperature,
		MaxTokens:       maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("milestone completion: %w", err)
	}

	parsed, err := ParseAnalysis(resp.Text)
	if err != nil {
		return nil, err
	}

	result := &MilestoneResult{
		Timeline:     report,
		ModelVersion: resp.Model,
		Usage:        resp.Usage,
	}

	seen := make(map[string]bool)
	for _, c := range parsed.Prompts {
		p, ok := c.toPrompt()
		if !ok {
			result.Rejected++
			continue
		}
		if seen[p.AnchorHash] {
			continue
		}
		seen[p.AnchorHash] = true
		result.Prompts = append(result.Prompts, p)
		if len(result.Prompts) == target {
			break
		}
	}

	if len(result.Prompts) == 0 {
		slog.Info("all milestone candidates rejected, using fallback",
			"story_count", storyCount,
			"rejected", result.Rejected)
		result.Prompts = []model.Prompt{FallbackPrompt(stories[0])}
		result.Fallback = true
	}

	userID := stories[0].UserID
	for i := range result.Prompts {
		p := &result.Prompts[i]
		p.ID = model.NewPromptID()
		p.UserID = userID
		p.Tier = model.TierThree
		p.ModelVersion = resp.Model
		p.CreatedAt = now
		p.ExpiresAt = model.ExpiryFor(model.TierThree, now)
	}

	if storyCount == PaywallMilestone {
		for i := range result.Prompts {
			result.Prompts[i].IsLocked = i > 0
		}
	}

	if deep && parsed.CharacterInsights != nil {
		ci := parsed.CharacterInsights
		ci.UserID = userID
		ci.StoryCount = storyCount
		ci.AnalyzedAt = now
		for i := range ci.Traits {
			ci.Traits[i].Confidence = clampConfidence(ci.Traits[i].Confidence)
		}
		result.CharacterInsights = ci
	}

	return result, nil
}

// Candidate is one prompt as the model returns it.
type Candidate struct {
	Prompt                    string       `json:"prompt"`
	MemoryType                string       `json:"memoryType"`
	AnchorEntity              string       `json:"anchorEntity"`
	AnchorYear                flexibleYear `json:"anchorYear"`
	ContextNote               string       `json:"contextNote"`
	UsesExactPhrase           bool         `json:"usesExactPhrase"`
	ReferencesMultipleStories bool         `json:"referencesMultipleStories"`
	AsksAboutAbsence          bool         `json:"asksAboutAbsence"`
	AcknowledgesContradiction bool         `json:"acknowledgesContradiction"`
}

// Analysis is the parsed milestone response.
type Analysis struct {
	Prompts           []Candidate             `json:"prompts"`
	CharacterInsights *model.CharacterInsight `json:"characterInsights"`
}

func (c Candidate) toPrompt() (model.Prompt, bool) {
	text := strings.TrimSpace(c.Prompt)
	if v := quality.Check(text); !v.Valid {
		slog.Debug("milestone prompt rejected", "prompt", text, "reason", v.Reason, "match", v.Match)
		return model.Prompt{}, false
	}

	mt := model.MemoryType(c.MemoryType)
	if !model.ValidMemoryTypes[mt] || mt == model.MemoryEcho {
		mt = model.MemoryEventAdjacent
	}

	anchor := strings.TrimSpace(c.AnchorEntity)
	if anchor == "" {
		anchor = text
	}
	year := c.AnchorYear.ptr()

	return model.Prompt{
		PromptText:   text,
		MemoryType:   mt,
		AnchorEntity: anchor,
		AnchorYear:   year,
		AnchorHash:   model.AnchorHash(string(mt), anchor, year),
		ContextNote:  strings.TrimSpace(c.ContextNote),
		Score: quality.Score(text, &quality.Signals{
			UsesExactPhrase:           c.UsesExactPhrase,
			ReferencesMultipleStories: c.ReferencesMultipleStories,
			AsksAboutAbsence:          c.AsksAboutAbsence,
			AcknowledgesContradiction: c.AcknowledgesContradiction,
		}),
	}, true
}

// flexibleYear accepts a number, a numeric string or null.
type flexibleYear struct {
	year  int
	valid bool
}

func (y *flexibleYear) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Free-text years ("the fifties") carry no anchor year.
		return nil
	}
	y.year, y.valid = n, true
	return nil
}

func (y flexibleYear) ptr() *int {
	if !y.valid {
		return nil
	}
	v := y.year
	return &v
}

// StripFences removes a leading and trailing Markdown code fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseAnalysis decodes a milestone response. Text around the JSON object
// is tolerated; anything else wraps ErrParse.
func ParseAnalysis(text string) (*Analysis, error) {
	body := StripFences(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParse)
	}

	var a Analysis
	err := json.Unmarshal([]byte(body), &a)
	if err != nil {
		start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}')
		if start == -1 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object found", ErrParse)
		}
		a = Analysis{}
		if err := json.Unmarshal([]byte(body[start:end+1]), &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	if a.Prompts == nil {
		return nil, fmt.Errorf("%w: missing prompts", ErrParse)
	}
	return &a, nil
}

// FallbackPrompt builds one valid prompt from the first story without a
// model call. Name-shaped anchors are preferred, then any other extracted
// anchor, then the story year, then a fixed question.
func FallbackPrompt(story model.Story) model.Prompt {
	entities := ExtractEntities(sanitize.Sanitize(story.Transcript))

	for _, pass := range []func(model.CandidateEntity) bool{
		func(e model.CandidateEntity) bool { return e.Kind == model.EntityPerson || e.Kind == model.EntityPlace },
		func(e model.CandidateEntity) bool { return e.Kind == model.EntityPhrase || e.Kind == model.EntityObject },
	} {
		for _, e := range entities {
			if !pass(e) {
				continue
			}
			if p, ok := renderTemplate(e, story.StoryYear); ok {
				p.ContextNote = "fallback anchored to " + e.Text
				return p
			}
		}
	}

	if story.StoryYear != nil {
		text := fmt.Sprintf(yearFallback, *story.StoryYear)
		if quality.Validate(text) {
			anchor := strconv.Itoa(*story.StoryYear)
			return model.Prompt{
				PromptText:   text,
				MemoryType:   model.MemoryTimelineGap,
				AnchorEntity: anchor,
				AnchorYear:   story.StoryYear,
				AnchorHash:   model.AnchorHash(string(model.MemoryTimelineGap), anchor, story.StoryYear),
				ContextNote:  "fallback anchored to story year",
				Score:        quality.Score(text, nil),
			}
		}
	}

	return model.Prompt{
		PromptText:   lastResortFallback,
		MemoryType:   model.MemoryPersonExpansion,
		AnchorEntity: "childhood neighbor",
		AnchorHash:   model.AnchorHash(string(model.MemoryPersonExpansion), "childhood neighbor", nil),
		ContextNote:  "fallback with no anchor in story",
		Score:        quality.Score(lastResortFallback, nil),
	}
}

const (
	yearFallback       = "Where were you living in %d, and who lived nearby?"
	lastResortFallback = "Who was your closest neighbor growing up, and what was their kitchen like?"
)

func timelineContext(r timeline.Report) string {
	var b strings.Builder
	if r.EstimatedBirthYear == nil {
		b.WriteString("Birth year unknown; no timeline gaps computed.")
		return b.String()
	}

	fmt.Fprintf(&b, "Estimated birth year: %d\n", *r.EstimatedBirthYear)
	if len(r.CoveredPhases) > 0 {
		fmt.Fprintf(&b, "Phases with stories: %s\n", strings.Join(r.CoveredPhases, ", "))
	}
	if len(r.Gaps) == 0 {
		b.WriteString("No uncovered life phases.")
		return b.String()
	}

	b.WriteString("Life phases with no stories yet (most promising first):\n")
	for i, g := range r.Gaps {
		if i == maxGapsInContext {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", g.Phase, g.EstimatedYears)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatCorpus renders every story with user-authored fields sanitized.
func formatCorpus(stories []model.Story) string {
	var b strings.Builder
	for i, s := range stories {
		year := ""
		if s.StoryYear != nil {
			year = fmt.Sprintf(" (%d)", *s.StoryYear)
		}
		fmt.Fprintf(&b, "--- Story %d%s ---\n", i+1, year)
		if title := sanitize.Sanitize(s.Title); title != "" {
			fmt.Fprintf(&b, "Title: %s\n", title)
		}
		b.WriteString(sanitize.Sanitize(s.Transcript))
		b.WriteString("\n")
		if lesson := sanitize.Sanitize(s.LessonLearned); lesson != "" {
			fmt.Fprintf(&b, "Lesson learned: %s\n", lesson)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
