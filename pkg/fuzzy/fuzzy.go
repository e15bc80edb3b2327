package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance returns the number of single-rune insertions,
// deletions or substitutions needed to turn s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))
	m, n := len(r1), len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

// Threshold is the typo tolerance for a query of the given length
func Threshold(query string) int {
	switch l := len([]rune(query)); {
	case l <= 3:
		return 1
	case l >= 8:
		return 3
	default:
		return 2
	}
}

// FuzzyMatch checks if query fuzzy-matches text within threshold edits
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" {
		return false
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return true
		}
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}
	return false
}

// Field is one weighted searchable attribute
type Field struct {
	Text   string
	Weight float64
}

// Score rates how well query matches fields. Exact substring matches score
// the full weight, whole-word matches earn a bonus, near misses a fraction.
// Zero means no match.
func Score(query string, fields ...Field) float64 {
	query = normalizeString(query)
	if query == "" {
		return 0
	}
	threshold := Threshold(query)

	score := 0.0
	for _, f := range fields {
		text := normalizeString(f.Text)
		if text == "" {
			continue
		}
		if strings.Contains(text, query) {
			score += f.Weight
			if containsWord(text, query) {
				score += f.Weight / 2
			}
			continue
		}

		best := 0.0
		for _, word := range strings.Fields(text) {
			if strings.HasPrefix(word, query) {
				best = max(best, f.Weight*0.4)
			}
			if dist := LevenshteinDistance(query, word); dist <= threshold {
				best = max(best, f.Weight*0.5-float64(dist)*f.Weight*0.15)
			}
		}
		score += best
	}
	return score
}

// normalizeString lowercases, strips diacritics and collapses whitespace
func normalizeString(s string) string {
	s = strings.ToLower(removeAccents(s))
	return strings.Join(strings.Fields(s), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if strings.Trim(word, ".,!?;:\"'()") == query {
			return true
		}
	}
	return false
}

// removeAccents decomposes s and drops nonspacing marks, so "café" matches "cafe".
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(out, "đ", "d"), "Đ", "D")
}
