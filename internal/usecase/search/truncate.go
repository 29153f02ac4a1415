package search

import (
	"strings"
	"unicode"
)

// minKeptRatio is the share of the budget a word-preserving cut must keep.
const minKeptRatio = 0.6

// Truncate shortens s to at most n characters, preferring to cut at a word boundary
// as long as at least 60% of n is kept. The result is trimmed.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return strings.TrimSpace(s)
	}

	wordEnded := unicode.IsSpace(r[n])
	cut := r[:n]
	if !wordEnded {
		pos := -1
		for i := len(cut) - 1; i >= 0; i-- {
			if unicode.IsSpace(cut[i]) {
				pos = i
				break
			}
		}
		if pos >= 0 && pos >= int(minKeptRatio*float64(n)) {
			cut = cut[:pos]
		}
	}
	return strings.TrimSpace(string(cut))
}
