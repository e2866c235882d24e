// Package quality holds the pure text heuristics that gate and rank prompts:
// the entity worthiness filter, the hard validator and the scorer.
package quality

import (
	"regexp"
	"strings"
	"unicode"
)

// GenericNouns are bare nouns too vague to anchor a prompt on. They are also
// rejected when they appear as the subject of a prompt.
var GenericNouns = []string{
	"girl", "boy", "man", "woman", "lady", "guy", "kid", "child", "baby",
	"person", "people", "house", "room", "chair", "table", "place", "thing",
	"things", "stuff", "door", "window", "floor", "wall", "bed", "building",
	"car", "area", "spot", "object", "item",
}

// vagueWords are rejected as standalone anchors but are fine inside prompts
// ("the day your father left").
var vagueWords = []string{
	"day", "time", "year", "years", "life", "world", "way", "family",
	"friend", "friends", "home", "school", "street", "road", "town", "city",
	"someone", "something", "somebody", "everyone", "everything", "nothing",
	"anything", "it", "part", "kind", "lot", "moment", "memory", "story",
}

// RelationalRoles are nouns that become specific once possessed ("my father").
var RelationalRoles = []string{
	"father", "mother", "dad", "mom", "daddy", "mommy", "mama", "papa",
	"grandfather", "grandmother", "grandpa", "grandma", "granddad", "nana",
	"brother", "sister", "son", "daughter", "uncle", "aunt", "cousin",
	"husband", "wife", "fiance", "fiancee", "boyfriend", "girlfriend",
	"best friend", "neighbor", "neighbour", "teacher", "coach", "boss",
	"mentor", "pastor", "stepfather", "stepmother", "stepdad", "stepmom",
	"nephew", "niece", "grandson", "granddaughter", "partner", "godfather",
	"godmother", "roommate", "sergeant",
}

// functionWords are capitalised tokens that do not make a proper noun.
var functionWords = []string{
	"i", "he", "she", "it", "we", "they", "you", "me", "him", "us", "them",
	"the", "a", "an", "this", "that", "these", "those", "then", "when",
	"and", "but", "so", "or", "my", "his", "her", "our", "their", "your",
	"there", "here", "what", "where", "who", "why", "how", "well", "oh",
	"yes", "no", "after", "before", "one", "once", "if", "because", "as",
	"at", "in", "on", "of", "to", "for", "with", "from", "just", "now",
}

// PossessiveModifiers may sit between a possessive and its noun
// ("Dad's old truck").
var PossessiveModifiers = []string{
	"old", "new", "little", "big", "first", "favorite", "favourite", "best",
	"oldest", "youngest", "red", "blue", "green", "black", "white", "brown", "yellow", "gray", "grey",
}

// predicateWords follow "'s" when it contracts "is" or "has": "Dad's sick",
// "Mom's been", "Ray's finally home".
var predicateWords = []string{
	"gone", "been", "got", "going", "gonna", "not", "always", "never", "still",
	"very", "really", "coming", "done", "right", "wrong", "back", "over", "again",
	"sick", "ill", "fine", "okay", "ok", "well", "happy", "sad", "mad", "angry",
	"upset", "sorry", "sure", "ready", "busy", "late", "early", "alive", "dead",
	"home", "away", "out", "up", "down", "off", "about", "almost", "already",
	"also", "probably", "maybe", "like", "too", "good", "bad", "better", "worse",
	"worst", "great", "nice", "hard", "easy", "true", "free", "broke",
	"afraid", "awake", "asleep", "alone", "cold", "hot", "warm", "proud",
	"pregnant", "young", "small", "tall", "short", "all", "had", "such",
	"quite", "pretty", "gotten", "thinking", "talking",
}

// nounExceptions end like participles or adverbs but are nouns.
var nounExceptions = []string{
	"ring", "string", "wedding", "painting", "stocking", "pudding", "clothing",
	"bedding", "ceiling", "sibling", "duckling", "offspring", "steed", "seed",
	"family", "butterfly", "belly", "jelly", "lily", "holly", "dolly",
}

var (
	modifierSet   = toSet(PossessiveModifiers)
	predicateSet  = toSet(append(append([]string(nil), predicateWords...), PossessiveModifiers...))
	nounExcSet    = toSet(nounExceptions)
	genericSet    = toSet(GenericNouns)
	vagueSet      = toSet(vagueWords)
	roleSet       = toSet(RelationalRoles)
	functionSet   = toSet(functionWords)
	articleRe     = regexp.MustCompile(`(?i)^(?:the|a|an|this|that|some|these|those)\s+`)
	pronounPossRe = regexp.MustCompile(`(?i)^(?:my|his|her|their|our|your)\s+(.+)$`)
	possessiveRe  = regexp.MustCompile(`(?i)^(.+?)['’]s\s+(.+)$`)
	wordRe        = regexp.MustCompile(`[\p{L}\p{N}'’-]+`)
)

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// IsWorthyEntity reports whether candidate is specific enough to anchor a
// prompt. It is a deterministic pattern classifier: false negatives only
// lose a prompt, false positives produce a generic one.
func IsWorthyEntity(candidate string) bool {
	text := strings.Join(strings.Fields(candidate), " ")
	if text == "" {
		return false
	}

	text = strings.Trim(text, `"'“”‘’.,;:!?()`)
	if text == "" {
		return false
	}

	// Possessive pronoun constructions: "my father" yes, "my room" no.
	if m := pronounPossRe.FindStringSubmatch(text); m != nil {
		rest := strings.ToLower(m[1])
		if roleSet[rest] {
			return true
		}
		// "her father's chair" is judged as "father's chair".
		if possessiveRe.MatchString(rest) {
			return IsWorthyEntity(rest)
		}
		return isSpecificPhrase(rest)
	}

	// Article + anything is judged on the remainder.
	bare := articleRe.ReplaceAllString(text, "")
	if bare == "" {
		return false
	}
	lower := strings.ToLower(bare)
	if isBareGeneric(lower) {
		return false
	}

	// Noun possessives: "father's workshop", "Coach's whistle".
	if m := possessiveRe.FindStringSubmatch(bare); m != nil {
		owner := strings.ToLower(articleRe.ReplaceAllString(m[1], ""))
		if isBareGeneric(owner) || functionSet[owner] {
			return false
		}
		return possessedHead(m[2])
	}

	if hasProperNoun(bare) {
		return true
	}

	if roleSet[lower] {
		return false
	}

	return isSpecificPhrase(lower)
}

// IsFunctionWord reports whether w is a pronoun, article or other word
// that never names anything on its own.
func IsFunctionWord(w string) bool {
	return functionSet[strings.ToLower(w)]
}

// IsNounLike reports whether w can be the thing owned in a possessive. It
// rejects function words, common predicate adjectives and adverbs, and
// -ed, -ing and -ly forms, so the contractions in "Dad's sick" and
// "Mom's worried" are not read as possessives.
func IsNounLike(w string) bool {
	lw := strings.ToLower(w)
	if functionSet[lw] || predicateSet[lw] {
		return false
	}
	if nounExcSet[lw] {
		return true
	}
	switch {
	case len(lw) > 4 && strings.HasSuffix(lw, "ed"),
		len(lw) > 5 && strings.HasSuffix(lw, "ing"),
		len(lw) > 5 && strings.HasSuffix(lw, "ly"):
		return false
	}
	return true
}

// possessedHead checks what follows "'s", skipping leading modifiers.
func possessedHead(rest string) bool {
	words := wordRe.FindAllString(strings.ToLower(rest), -1)
	for len(words) > 1 && modifierSet[words[0]] {
		words = words[1:]
	}
	return len(words) > 0 && IsNounLike(words[0])
}

// IsRole reports whether w is a relational role such as "father".
func IsRole(w string) bool {
	return roleSet[strings.ToLower(w)]
}

func isBareGeneric(lower string) bool {
	return genericSet[lower] || vagueSet[lower] || functionSet[lower]
}

// isSpecificPhrase accepts lowercase compounds whose head noun is not
// generic, e.g. "old workbench". Single lowercase words never pass.
func isSpecificPhrase(lower string) bool {
	words := wordRe.FindAllString(lower, -1)
	if len(words) < 2 {
		return false
	}
	head := words[len(words)-1]
	if isBareGeneric(head) {
		return false
	}
	for _, w := range words[:len(words)-1] {
		if !functionSet[w] {
			return true
		}
	}
	return false
}

// hasProperNoun reports whether any token is capitalised and is not a
// function word or a generic noun.
func hasProperNoun(text string) bool {
	for _, w := range wordRe.FindAllString(text, -1) {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			continue
		}
		lw := strings.ToLower(w)
		if functionSet[lw] || genericSet[lw] || vagueSet[lw] {
			continue
		}
		return true
	}
	return false
}

// genericSubjectRe matches an article, demonstrative or possessive pronoun
// followed by a generic noun, e.g. "the girl", "that room" or "his house".
var genericSubjectRe = regexp.MustCompile(`(?i)\b(?:the|a|an|that|this|some|my|your|his|her|their|our)\s+(?:` +
	strings.Join(GenericNouns, "|") + `)\b`)

// bareGenericRe matches any generic noun as a whole word.
var bareGenericRe = regexp.MustCompile(`(?i)\b(?:` + strings.Join(GenericNouns, "|") + `)\b`)

// HasGenericSubject reports whether text leans on an unspecific noun phrase.
func HasGenericSubject(text string) bool {
	return genericSubjectRe.MatchString(text)
}

// ContainsGenericNoun reports whether any generic noun appears in text.
func ContainsGenericNoun(text string) bool {
	return bareGenericRe.MatchString(text)
}
