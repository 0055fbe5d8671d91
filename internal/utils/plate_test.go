package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "29A-12345", NormalizePlate(" 29a-12345 "))
	assert.Equal(t, "29X1-12345", NormalizePlate("29 x1 - 12345"))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"29A-12345", "29A-12345", 0},
		{"29A-12345", "29A-12346", 1},
		{"29A-1234", "29A-12345", 1},
		{"29A-12345", "30B-99999", 8},
		{"", "abc", 3},
		{"abc", "", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "Levenshtein(%q, %q)", tt.a, tt.b)
	}
}
