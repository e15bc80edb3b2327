package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"Podcast", "podcast", 0},
		{"café", "cafe", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevenshteinDistance(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestLevenshteinDistance_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[a-z ]{0,12}`).Draw(t, "a")
		b := rapid.StringMatching(`[a-z ]{0,12}`).Draw(t, "b")

		if d := LevenshteinDistance(a, a); d != 0 {
			t.Fatalf("distance to self = %d", d)
		}
		if LevenshteinDistance(a, b) != LevenshteinDistance(b, a) {
			t.Fatalf("distance not symmetric for %q %q", a, b)
		}
	})
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, FuzzyMatch("podcst", "Invitation to our podcast", 2))
	assert.True(t, FuzzyMatch("spon", "Sponsorship request", 1))
	assert.False(t, FuzzyMatch("wedding", "Sponsorship request", 2))
	assert.False(t, FuzzyMatch("", "anything", 2))
}

func TestScore(t *testing.T) {
	exact := Score("nike", Field{Text: "Nike partnership", Weight: 100})
	typo := Score("nkie", Field{Text: "Nike partnership", Weight: 100})
	none := Score("wedding", Field{Text: "Nike partnership", Weight: 100})

	assert.Greater(t, exact, typo)
	assert.Greater(t, typo, 0.0)
	assert.Equal(t, 0.0, none)

	weighted := Score("nike", Field{Text: "nike", Weight: 10}, Field{Text: "nike", Weight: 100})
	assert.Equal(t, 165.0, weighted)
}
