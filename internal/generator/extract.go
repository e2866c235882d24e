package generator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/quality"
)

var (
	quotedRe     = regexp.MustCompile(`["“]([^"”\n]{3,80})["”]`)
	possessiveRe = regexp.MustCompile(`(?i)\b([a-z]+)['’]s\s+((?:` + strings.Join(quality.PossessiveModifiers, "|") + `)\s+)?([a-z]+)\b`)
	properRe     = regexp.MustCompile(`\b\p{Lu}\p{Ll}+(?:[ \t]+\p{Lu}\p{Ll}+)*\b`)
	pronounRole  = regexp.MustCompile(`(?i)\b(?:my|his|her|our|their)\s+(?:` + rolePattern() + `)\b`)
)

// calendarWords are capitalised but never anchors.
var calendarWords = map[string]bool{
	"january": true, "february": true, "march": true, "april": true, "may": true,
	"june": true, "july": true, "august": true, "september": true, "october": true,
	"november": true, "december": true, "monday": true, "tuesday": true,
	"wednesday": true, "thursday": true, "friday": true, "saturday": true,
	"sunday": true, "christmas": true, "easter": true, "thanksgiving": true,
}

// determiners open a capitalised run at the start of a sentence without
// being part of a name.
var determiners = map[string]bool{
	"every": true, "each": true, "all": true, "some": true, "any": true,
	"last": true, "next": true, "most": true, "many": true, "both": true,
	"another": true, "even": true, "only": true, "still": true,
}

// ownerWords before a possessive are kept in the anchor because they say
// whose it is. "my" and "our" are dropped and later read as "your".
var ownerWords = map[string]bool{
	"his": true, "her": true, "their": true, "the": true, "a": true, "an": true,
	"that": true, "this": true,
}

var placePrepositions = map[string]bool{
	"in": true, "at": true, "to": true, "from": true, "near": true,
	"across": true, "into": true, "outside": true, "behind": true,
}

var placeWords = map[string]bool{
	"street": true, "avenue": true, "road": true, "lake": true, "river": true,
	"park": true, "school": true, "church": true, "diner": true, "high": true,
	"county": true, "city": true, "beach": true, "hospital": true, "farm": true,
}

// rolePattern joins the relational roles longest first so that multi-word
// roles win the alternation.
func rolePattern() string {
	roles := append([]string(nil), quality.RelationalRoles...)
	sort.SliceStable(roles, func(i, j int) bool { return len(roles[i]) > len(roles[j]) })
	for i, r := range roles {
		roles[i] = regexp.QuoteMeta(r)
	}
	return strings.Join(roles, "|")
}

type extracted struct {
	model.CandidateEntity
	pos   int
	count int
	weak  bool // a lone capitalised word at the start of a sentence
}

// ExtractEntities pulls anchor candidates out of a story and returns the
// worthy ones, quoted phrases first and then by prominence.
func ExtractEntities(text string) []model.CandidateEntity {
	found := make(map[string]*extracted)
	var order []*extracted

	add := func(s string, kind model.EntityKind, pos int, weak bool) {
		key := strings.ToLower(s)
		if e, ok := found[key]; ok {
			e.count++
			e.weak = e.weak && weak
			return
		}
		e := &extracted{
			CandidateEntity: model.CandidateEntity{Text: s, Kind: kind},
			pos:             pos,
			count:           1,
			weak:            weak,
		}
		found[key] = e
		order = append(order, e)
	}

	for _, m := range quotedRe.FindAllStringSubmatchIndex(text, -1) {
		phrase := strings.TrimSpace(text[m[2]:m[3]])
		if n := model.WordCount(phrase); n >= 2 && n <= 8 {
			add(phrase, model.EntityPhrase, m[0], false)
		}
	}

	for _, m := range pronounRole.FindAllStringIndex(text, -1) {
		add(strings.ToLower(text[m[0]:m[1]]), model.EntityPerson, m[0], false)
	}

	for _, m := range possessiveRe.FindAllStringSubmatchIndex(text, -1) {
		owner, noun := text[m[2]:m[3]], text[m[6]:m[7]]
		if quality.IsFunctionWord(owner) || strings.EqualFold(owner, "let") || !quality.IsNounLike(noun) {
			continue
		}
		anchor := text[m[0]:m[1]]
		if prev := strings.ToLower(previousWord(text, m[0])); ownerWords[prev] {
			anchor = prev + " " + anchor
		}
		add(anchor, model.EntityObject, m[0], false)
	}

	for _, m := range properRe.FindAllStringIndex(text, -1) {
		start := m[0]
		tokens := strings.Fields(text[m[0]:m[1]])

		initial := sentenceInitial(text, start)
		for len(tokens) > 0 && skippable(tokens[0]) {
			tokens = tokens[1:]
			initial = false
		}
		if len(tokens) == 0 {
			continue
		}

		name := strings.Join(tokens, " ")

		kind := model.EntityPerson
		if placePrepositions[strings.ToLower(previousWord(text, start))] ||
			placeWords[strings.ToLower(tokens[0])] ||
			placeWords[strings.ToLower(tokens[len(tokens)-1])] {
			kind = model.EntityPlace
		}

		add(name, kind, start, initial && len(tokens) == 1)
	}

	var kept []*extracted
	for _, e := range order {
		if e.weak && e.count < 2 {
			continue
		}
		if !quality.IsWorthyEntity(e.Text) {
			continue
		}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		pi, pj := kept[i].Kind == model.EntityPhrase, kept[j].Kind == model.EntityPhrase
		if pi != pj {
			return pi
		}
		if kept[i].count != kept[j].count {
			return kept[i].count > kept[j].count
		}
		return kept[i].pos < kept[j].pos
	})

	out := make([]model.CandidateEntity, len(kept))
	for i, e := range kept {
		out[i] = e.CandidateEntity
	}
	return out
}

func skippable(token string) bool {
	lower := strings.ToLower(token)
	return quality.IsFunctionWord(lower) || determiners[lower] || calendarWords[lower]
}

// sentenceInitial reports whether the token at pos opens a sentence.
func sentenceInitial(text string, pos int) bool {
	before := strings.TrimRight(text[:pos], " \t\"'“‘(")
	if before == "" {
		return true
	}
	switch before[len(before)-1] {
	case '.', '!', '?', ':', '\n':
		return true
	}
	return false
}

func previousWord(text string, pos int) string {
	fields := strings.Fields(text[:pos])
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], `"'“”‘’,;(`)
}

// displayEntity rewrites an anchor for a question addressed to the
// storyteller: "my father" becomes "your father", "her father's chair"
// stays hers.
func displayEntity(e model.CandidateEntity) string {
	text := e.Text
	lower := strings.ToLower(text)

	for _, p := range []string{"my ", "our "} {
		if strings.HasPrefix(lower, p) {
			return "your " + text[len(p):]
		}
	}

	first, _, _ := strings.Cut(lower, " ")
	if ownerWords[first] || first == "your" {
		return text
	}

	if e.Kind == model.EntityObject {
		if m := possessiveRe.FindStringSubmatch(text); m != nil && quality.IsRole(m[1]) && m[1] == strings.ToLower(m[1]) {
			return "your " + text
		}
	}
	return text
}
