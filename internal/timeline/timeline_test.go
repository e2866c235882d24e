package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/quality"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func yearPtr(y int) *int { return &y }

func storiesIn(years ...int) []model.Story {
	stories := make([]model.Story, 0, len(years))
	for _, y := range years {
		stories = append(stories, model.Story{StoryYear: yearPtr(y)})
	}
	return stories
}

func TestDetectGaps_NoData(t *testing.T) {
	stories := []model.Story{
		{Transcript: "We drove to the lake."},
		{Transcript: "Chewy ran off again."},
	}

	report := DetectGaps(stories, nil, now)
	assert.Nil(t, report.EstimatedBirthYear)
	assert.NotNil(t, report.Gaps)
	assert.Empty(t, report.Gaps)
	assert.Empty(t, report.CoveredPhases)

	report = DetectGaps(nil, nil, now)
	assert.Nil(t, report.EstimatedBirthYear)
	assert.Empty(t, report.Gaps)
}

func TestDetectGaps_EstimatedBirthYear(t *testing.T) {
	report := DetectGaps(storiesIn(1960, 1975, 2005), nil, now)

	require.NotNil(t, report.EstimatedBirthYear)
	assert.Equal(t, 1950, *report.EstimatedBirthYear)
	assert.Equal(t, []string{"Grade School", "Late Twenties", "Fifties"}, report.CoveredPhases)

	var phases []string
	for _, g := range report.Gaps {
		phases = append(phases, g.Phase)
	}
	assert.Equal(t, []string{
		"Teenage Years",
		"Early Twenties",
		"Thirties",
		"Forties",
		"Early Childhood",
		"Sixties",
		"70s and Beyond",
	}, phases)

	teen := report.Gaps[0]
	assert.Equal(t, [2]int{13, 17}, teen.AgeRange)
	assert.Equal(t, "1963-1967", teen.EstimatedYears)
	assert.Equal(t, 5, teen.Priority)
	assert.Equal(t, "2020+", report.Gaps[len(report.Gaps)-1].EstimatedYears)
}

func TestDetectGaps_KnownBirthYearSkipsFuturePhases(t *testing.T) {
	report := DetectGaps(nil, yearPtr(2000), now)

	require.NotNil(t, report.EstimatedBirthYear)
	assert.Equal(t, 2000, *report.EstimatedBirthYear)

	var phases []string
	for _, g := range report.Gaps {
		phases = append(phases, g.Phase)
	}
	assert.Equal(t, []string{
		"Teenage Years",
		"Early Twenties",
		"Late Twenties",
		"Grade School",
		"Early Childhood",
	}, phases)
}

func TestDetectGaps_KnownBirthYearWins(t *testing.T) {
	report := DetectGaps(storiesIn(1990, 2000), yearPtr(1945), now)
	require.NotNil(t, report.EstimatedBirthYear)
	assert.Equal(t, 1945, *report.EstimatedBirthYear)
	assert.Contains(t, report.CoveredPhases, "Forties")
	assert.Contains(t, report.CoveredPhases, "Fifties")
}

func TestDetectGaps_SortedByPriority(t *testing.T) {
	report := DetectGaps(storiesIn(1985), yearPtr(1940), now)
	for i := 1; i < len(report.Gaps); i++ {
		assert.GreaterOrEqual(t, report.Gaps[i-1].Priority, report.Gaps[i].Priority)
	}
}

func TestEstimateBirthYear(t *testing.T) {
	tests := []struct {
		name  string
		years []int
		want  *int
	}{
		{"none", nil, nil},
		{"narrow span", []int{1990, 2000}, yearPtr(1960)},
		{"medium span", []int{2005, 1980}, yearPtr(1955)},
		{"wide span", []int{1960, 2010, 1985}, yearPtr(1950)},
		{"single year", []int{1972}, yearPtr(1942)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateBirthYear(tt.years))
		})
	}
}

func TestPhasePromptsPassValidation(t *testing.T) {
	for _, p := range Phases {
		assert.True(t, quality.Validate(p.Prompt), p.Name)
	}
}
