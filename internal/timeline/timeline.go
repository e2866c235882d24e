// Package timeline infers which life phases a storyteller has not yet
// recorded a story about.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/paultaki/whisperprompts/internal/model"
)

// Phase is one entry of the fixed life-phase table.
type Phase struct {
	Name     string
	Start    int
	End      int // inclusive
	Priority int
	Prompt   string
}

// maxAge closes the last, open-ended phase.
const maxAge = 120

// Phases is ordered by age. Priority favours the phases people tend to
// under-record.
var Phases = []Phase{
	{"Early Childhood", 0, 6, 2, "What's the first kitchen you can picture from when you were little?"},
	{"Grade School", 7, 12, 3, "Who was your favorite teacher in grade school, and what did they teach you?"},
	{"Teenage Years", 13, 17, 5, "What song takes you straight back to being sixteen?"},
	{"Early Twenties", 18, 24, 5, "Where were you living at twenty-one, and who lived there with you?"},
	{"Late Twenties", 25, 29, 4, "What job were you working at twenty-seven?"},
	{"Thirties", 30, 39, 3, "What did a typical Saturday look like in your thirties?"},
	{"Forties", 40, 49, 3, "Who were your closest friends in your forties?"},
	{"Fifties", 50, 59, 2, "What changed for you in your fifties that surprised you?"},
	{"Sixties", 60, 69, 2, "What did you start doing in your sixties that you never had time for before?"},
	{"70s and Beyond", 70, maxAge, 1, "Who do you see most often these days, and where?"},
}

// Report is the result of DetectGaps.
type Report struct {
	CoveredPhases      []string            `json:"coveredPhases"`
	Gaps               []model.TimelineGap `json:"gaps"`
	EstimatedBirthYear *int                `json:"estimatedBirthYear"`
}

// DetectGaps reports the life phases with no dated story. knownBirthYear
// takes precedence over the estimate. Without any birth year the report has
// no gaps.
func DetectGaps(stories []model.Story, knownBirthYear *int, now time.Time) Report {
	report := Report{
		CoveredPhases: []string{},
		Gaps:          []model.TimelineGap{},
	}

	years := storyYears(stories)

	birth := knownBirthYear
	if birth == nil {
		birth = EstimateBirthYear(years)
	}
	if birth == nil {
		return report
	}
	by := *birth
	report.EstimatedBirthYear = &by

	currentAge := now.Year() - by

	for _, p := range Phases {
		if p.Start > currentAge {
			continue
		}

		if covered(p, by, years) {
			report.CoveredPhases = append(report.CoveredPhases, p.Name)
			continue
		}

		report.Gaps = append(report.Gaps, model.TimelineGap{
			Phase:           p.Name,
			AgeRange:        [2]int{p.Start, p.End},
			EstimatedYears:  yearRange(p, by),
			SuggestedPrompt: p.Prompt,
			Priority:        p.Priority,
		})
	}

	sort.SliceStable(report.Gaps, func(i, j int) bool {
		return report.Gaps[i].Priority > report.Gaps[j].Priority
	})

	return report
}

// EstimateBirthYear guesses a birth year from the spread of story years.
// A wide spread implies the oldest story is from childhood.
func EstimateBirthYear(years []int) *int {
	if len(years) == 0 {
		return nil
	}

	oldest, newest := years[0], years[0]
	for _, y := range years[1:] {
		if y < oldest {
			oldest = y
		}
		if y > newest {
			newest = y
		}
	}

	span := newest - oldest
	var age int
	switch {
	case span > 40:
		age = 10
	case span > 20:
		age = 25
	default:
		age = 30
	}

	birth := oldest - age
	return &birth
}

func storyYears(stories []model.Story) []int {
	var years []int
	for _, s := range stories {
		if s.StoryYear != nil {
			years = append(years, *s.StoryYear)
		}
	}
	return years
}

func covered(p Phase, birth int, years []int) bool {
	lo := birth + p.Start
	for _, y := range years {
		if y < lo {
			continue
		}
		if y <= birth+p.End {
			return true
		}
	}
	return false
}

func yearRange(p Phase, birth int) string {
	if p.End == maxAge {
		return fmt.Sprintf("%d+", birth+p.Start)
	}
	return fmt.Sprintf("%d-%d", birth+p.Start, birth+p.End)
}
