package utils

import (
	"strings"
)

// NormalizePlate returns the canonical form of a license plate used for
// equality and uniqueness checks: trimmed, uppercased, internal spaces
// removed.
func NormalizePlate(plate string) string {
	normalized := strings.ToUpper(strings.TrimSpace(plate))
	return strings.ReplaceAll(normalized, " ", "")
}

// Levenshtein computes the edit distance between two strings. Used to rank
// registry plates against a partially recognized read.
func Levenshtein(a, b string) int {
	m, n := len(a), len(b)
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
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = 1 + min3(prev[j], curr[j-1], prev[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
