// Package model defines the records the prompt engine consumes and produces.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier identifies which generator produced a prompt.
type Tier string

const (
	TierOne   Tier = "1"
	TierThree Tier = "3"
	TierEcho  Tier = "echo"
)

// MemoryType is the retrieval strategy a prompt uses.
type MemoryType string

const (
	MemoryPersonExpansion    MemoryType = "person_expansion"
	MemoryPlaceMemory        MemoryType = "place_memory"
	MemoryTimelineGap        MemoryType = "timeline_gap"
	MemoryEventAdjacent      MemoryType = "event_adjacent"
	MemoryObjectStory        MemoryType = "object_story"
	MemoryRelationshipMoment MemoryType = "relationship_moment"
	MemoryEcho               MemoryType = "echo"
)

// ValidMemoryTypes are the memory types accepted from model output.
var ValidMemoryTypes = map[MemoryType]bool{
	MemoryPersonExpansion:    true,
	MemoryPlaceMemory:        true,
	MemoryTimelineGap:        true,
	MemoryEventAdjacent:      true,
	MemoryObjectStory:        true,
	MemoryRelationshipMoment: true,
	MemoryEcho:               true,
}

// EntityKind classifies an extracted candidate entity.
type EntityKind string

const (
	EntityPerson EntityKind = "person"
	EntityPlace  EntityKind = "place"
	EntityObject EntityKind = "object"
	EntityPhrase EntityKind = "phrase"
)

// Lifetimes for unanswered prompts. Echo prompts are not expiry-tracked.
const (
	TierOneTTL   = 7 * 24 * time.Hour
	TierThreeTTL = 30 * 24 * time.Hour
)

// MaxPromptWords is the hard ceiling on persisted prompt length.
const MaxPromptWords = 30

// Story is a recorded narrative owned by the caller.
type Story struct {
	ID            string
	UserID        string
	Title         string
	Transcript    string
	LessonLearned string
	StoryYear     *int
	CreatedAt     time.Time
}

// CandidateEntity is an extracted anchor candidate. It is never persisted.
type CandidateEntity struct {
	Text string
	Kind EntityKind
}

// Prompt is a follow-up question handed to the persistence layer.
type Prompt struct {
	ID           string
	UserID       string
	PromptText   string
	Tier         Tier
	MemoryType   MemoryType
	AnchorEntity string
	AnchorYear   *int
	AnchorHash   string
	ContextNote  string
	Score        int
	IsLocked     bool
	ExpiresAt    *time.Time
	ShownCount   int
	ModelVersion string
	CreatedAt    time.Time
}

// Expired reports whether the prompt is past its expiry at now.
// Expiry is derived at read time and never written.
func (p *Prompt) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Trait is a character trait with supporting evidence.
type Trait struct {
	Trait      string   `json:"trait"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// Contradiction is a gap between a stated value and lived behaviour.
type Contradiction struct {
	Stated  string `json:"stated"`
	Lived   string `json:"lived"`
	Tension string `json:"tension"`
}

// CharacterInsight is produced by milestone analysis. One record exists per
// (user, story count); re-analysis overwrites it.
type CharacterInsight struct {
	UserID         string          `json:"-"`
	Traits         []Trait         `json:"traits"`
	InvisibleRules []string        `json:"invisibleRules"`
	Contradictions []Contradiction `json:"contradictions"`
	CoreLessons    []string        `json:"coreLessons"`
	StoryCount     int             `json:"storyCount"`
	AnalyzedAt     time.Time       `json:"analyzedAt"`
}

// TimelineGap is a life phase with no recorded story.
type TimelineGap struct {
	Phase           string `json:"phase"`
	AgeRange        [2]int `json:"ageRange"`
	EstimatedYears  string `json:"estimatedYears"`
	SuggestedPrompt string `json:"suggestedPrompt"`
	Priority        int    `json:"priority"`
}

// Milestones are the story counts that trigger milestone analysis.
var Milestones = []int{1, 2, 3, 4, 7, 10, 15, 20, 30, 50, 100}

// IsMilestone reports whether count is in the milestone set.
func IsMilestone(count int) bool {
	for _, m := range Milestones {
		if m == count {
			return true
		}
	}
	return false
}

// AnchorHash returns a stable hash of the anchor tuple used for deduplication.
func AnchorHash(kind, entity string, year *int) string {
	y := ""
	if year != nil {
		y = strconv.Itoa(*year)
	}
	key := strings.ToLower(strings.TrimSpace(kind)) + "|" +
		strings.ToLower(strings.TrimSpace(entity)) + "|" + y
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:32]
}

// NewPromptID returns a fresh prompt identifier.
func NewPromptID() string {
	return uuid.NewString()
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ExpiryFor returns the expiry time for a prompt of the given tier created at t.
func ExpiryFor(tier Tier, t time.Time) *time.Time {
	var ttl time.Duration
	switch tier {
	case TierOne:
		ttl = TierOneTTL
	case TierThree:
		ttl = TierThreeTTL
	default:
		return nil
	}
	exp := t.Add(ttl)
	return &exp
}
