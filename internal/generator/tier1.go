package generator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/quality"
)

// maxTier1Entities caps how many anchors one story contributes.
const maxTier1Entities = 3

// Tier1ModelVersion marks prompts produced without a model call.
const Tier1ModelVersion = "template-v1"

type template struct {
	memoryType model.MemoryType
	text       string
	needsYear  bool
}

// tier1Templates are tried in order; the first that validates wins.
var tier1Templates = map[model.EntityKind][]template{
	model.EntityPhrase: {
		{memoryType: model.MemoryEventAdjacent, text: `Who first said "%s", and what was going on that day?`},
		{memoryType: model.MemoryEventAdjacent, text: `Where were you the first time you heard "%s"?`},
	},
	model.EntityPerson: {
		{memoryType: model.MemoryPersonExpansion, text: "What's one habit of %s that nobody else in the family had?"},
		{memoryType: model.MemoryRelationshipMoment, text: "Where would you usually find %s on an ordinary Saturday?"},
	},
	model.EntityPlace: {
		{memoryType: model.MemoryPlaceMemory, text: "What did %s look like back in %d?", needsYear: true},
		{memoryType: model.MemoryPlaceMemory, text: "Who else comes to mind when you picture %s?"},
	},
	model.EntityObject: {
		{memoryType: model.MemoryObjectStory, text: "Where did %s end up, and who has it now?"},
		{memoryType: model.MemoryObjectStory, text: "Who else was allowed near %s?"},
	},
}

// Tier1 generates template prompts anchored to entities in a single story.
// It makes no network calls.
type Tier1 struct {
	Now func() time.Time
}

// NewTier1 creates a Tier-1 generator.
func NewTier1() *Tier1 {
	return &Tier1{Now: time.Now}
}

// Generate returns zero or more validated prompts for storyText. An empty
// result is expected for stories with nothing specific in them.
func (g *Tier1) Generate(storyText string, storyYear *int) []model.Prompt {
	now := g.now()
	prompts := []model.Prompt{}

	entities := ExtractEntities(storyText)
	if len(entities) > maxTier1Entities {
		entities = entities[:maxTier1Entities]
	}

	for _, e := range entities {
		p, ok := renderTemplate(e, storyYear)
		if !ok {
			slog.Debug("no valid tier-1 template", "entity", e.Text, "kind", e.Kind)
			continue
		}

		p.ID = model.NewPromptID()
		p.Tier = model.TierOne
		p.ModelVersion = Tier1ModelVersion
		p.CreatedAt = now
		p.ExpiresAt = model.ExpiryFor(model.TierOne, now)
		prompts = append(prompts, p)
	}

	return prompts
}

func (g *Tier1) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// renderTemplate fills the first template for e's kind that passes the
// validator.
func renderTemplate(e model.CandidateEntity, year *int) (model.Prompt, bool) {
	display := displayEntity(e)

	for _, t := range tier1Templates[e.Kind] {
		var text string
		if t.needsYear {
			if year == nil {
				continue
			}
			text = fmt.Sprintf(t.text, display, *year)
		} else {
			text = fmt.Sprintf(t.text, display)
		}

		if v := quality.Check(text); !v.Valid {
			slog.Debug("tier-1 template rejected", "prompt", text, "reason", v.Reason)
			continue
		}

		return model.Prompt{
			PromptText:   text,
			MemoryType:   t.memoryType,
			AnchorEntity: e.Text,
			AnchorYear:   year,
			AnchorHash:   model.AnchorHash(string(t.memoryType), e.Text, year),
			ContextNote:  fmt.Sprintf("%s from story", e.Kind),
			Score: quality.Score(text, &quality.Signals{
				UsesExactPhrase: e.Kind == model.EntityPhrase,
			}),
		}, true
	}
	return model.Prompt{}, false
}
