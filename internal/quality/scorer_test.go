package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Bounds(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"?",
		"the girl the boy the man the house the room the chair " + strings.Repeat("word ", 60),
		`"housebroken by love" felt learned realized taught meant every time never yet Chewy?`,
	}

	for _, in := range inputs {
		s := Score(in, &Signals{
			UsesExactPhrase:           true,
			ReferencesMultipleStories: true,
			AsksAboutAbsence:          true,
			AcknowledgesContradiction: true,
		})
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)

		s = Score(in, nil)
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
	}

	assert.Equal(t, 0, Score("", nil))
}

func TestScore_ExactPhraseIsHigher(t *testing.T) {
	prompts := []string{
		`Who first called Chewy "housebroken by love"?`,
		"Who first noticed how much Chewy had changed?",
		"What did the house sound like at night?",
	}

	for _, p := range prompts {
		with := Score(p, &Signals{UsesExactPhrase: true})
		without := Score(p, &Signals{UsesExactPhrase: false})
		assert.Greater(t, with, without, p)
		assert.Greater(t, with, Score(p, nil), p)
	}
}

func TestScore_Signals(t *testing.T) {
	base := "What song was playing at Lakeview Diner?"
	plain := Score(base, nil)

	assert.Greater(t, Score(base, &Signals{ReferencesMultipleStories: true}), plain)
	assert.Greater(t, Score(base, &Signals{AsksAboutAbsence: true}), plain)
	assert.Greater(t, Score(base, &Signals{AcknowledgesContradiction: true}), plain)
}

func TestScore_Penalties(t *testing.T) {
	specific := Score("What did Marty keep in his glovebox?", nil)
	generic := Score("What did the man keep in his car?", nil)
	assert.Greater(t, specific, generic)

	question := Score("What did Marty keep in his glovebox?", nil)
	statement := Score("What did Marty keep in his glovebox.", nil)
	assert.Greater(t, question, statement)
}

func TestScore_DepthWords(t *testing.T) {
	flat := Score("What did Grandma Rose say at the station?", nil)
	deep := Score("What had Grandma Rose learned by the time she reached the station?", nil)
	assert.Greater(t, deep, flat)
}
