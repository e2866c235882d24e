package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWorthyEntity(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"   ", false},
		{"girl", false},
		{"the girl", false},
		{"a man", false},
		{"The Girl", false},
		{"an object", false},
		{"He", false},
		{"my house", false},
		{"the girl's chair", false},
		{"it's raining", false},
		{"father", false},
		{"his house", false},
		{"your room", false},
		{"Dad's sick", false},
		{"Mom's worried", false},
		{"Ray's finally", false},
		{"Dad's old", false},
		{"Grandpa's been", false},
		{"Dad's old truck", true},
		{"Dad's best friend", true},
		{"her father's chair", true},
		{"Mom's wedding ring", true},
		{"my father", true},
		{"his mother", true},
		{"my best friend", true},
		{"father's workshop", true},
		{"Coach's whistle", true},
		{"old workbench", true},
		{"Chevy Camaro", true},
		{"Chewy", true},
		{"Lake Erie", true},
		{"housebroken by love", true},
		{`"housebroken by love"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsWorthyEntity(tt.input))
		})
	}
}

func TestIsWorthyEntity_Stoplist(t *testing.T) {
	for _, noun := range GenericNouns {
		assert.False(t, IsWorthyEntity(noun), noun)
		for _, article := range []string{"the ", "a ", "an ", "The ", "A "} {
			assert.False(t, IsWorthyEntity(article+noun), article+noun)
		}
	}
}

func TestHasGenericSubject(t *testing.T) {
	assert.True(t, HasGenericSubject("What did the girl say?"))
	assert.True(t, HasGenericSubject("Who lived in that house?"))
	assert.False(t, HasGenericSubject("What did the day your father left look like?"))
	assert.False(t, HasGenericSubject("What was in your father's workshop?"))
	for _, det := range []string{"my", "your", "his", "her", "their", "our"} {
		assert.True(t, HasGenericSubject("Who came to "+det+" house on Sundays?"), det)
	}
}

func TestIsNounLike(t *testing.T) {
	for _, w := range []string{"workshop", "truck", "ring", "wedding", "shed", "watch", "Barn"} {
		assert.True(t, IsNounLike(w), w)
	}
	for _, w := range []string{"sick", "worried", "tired", "getting", "finally", "been", "the", "old"} {
		assert.False(t, IsNounLike(w), w)
	}
}
