package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnchorHash(t *testing.T) {
	year := 1962

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, AnchorHash("person_expansion", "Coach", &year), AnchorHash("person_expansion", "Coach", &year))
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, AnchorHash("person_expansion", "Coach", &year), AnchorHash("PERSON_EXPANSION", "  coach ", &year))
	})

	t.Run("year matters", func(t *testing.T) {
		assert.NotEqual(t, AnchorHash("place_memory", "Lake Erie", &year), AnchorHash("place_memory", "Lake Erie", nil))
	})

	t.Run("kind matters", func(t *testing.T) {
		assert.NotEqual(t, AnchorHash("place_memory", "Chewy", nil), AnchorHash("echo", "Chewy", nil))
	})

	t.Run("length", func(t *testing.T) {
		assert.Len(t, AnchorHash("echo", "x", nil), 32)
	})
}

func TestIsMilestone(t *testing.T) {
	for _, m := range []int{1, 2, 3, 4, 7, 10, 15, 20, 30, 50, 100} {
		assert.True(t, IsMilestone(m), "milestone %d", m)
	}
	for _, n := range []int{0, 5, 6, 8, 11, 49, 99, 101} {
		assert.False(t, IsMilestone(n), "non-milestone %d", n)
	}
}

func TestExpiryFor(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	exp := ExpiryFor(TierOne, created)
	if assert.NotNil(t, exp) {
		assert.Equal(t, created.Add(7*24*time.Hour), *exp)
	}

	exp = ExpiryFor(TierThree, created)
	if assert.NotNil(t, exp) {
		assert.Equal(t, created.Add(30*24*time.Hour), *exp)
	}

	assert.Nil(t, ExpiryFor(TierEcho, created))
}

func TestPrompt_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Prompt{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Prompt{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Prompt{}).Expired(now))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount(" one  two\tthree\n"))
}
