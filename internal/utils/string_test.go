package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindClosestString(t *testing.T) {
	candidates := []string{"build", "builtins", "tokenize"}

	closest, distance, ok := FindClosestString(candidates, "buidl", 2)
	assert.True(t, ok)
	assert.Equal(t, "build", closest)
	assert.Equal(t, 2, distance)

	closest, _, ok = FindClosestString(candidates, "tokenise", 2)
	assert.True(t, ok)
	assert.Equal(t, "tokenize", closest)

	_, _, ok = FindClosestString(candidates, "xyz", 2)
	assert.False(t, ok)
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("", ""))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
	assert.Equal(t, 1, levenshteinDistance("kitten", "sitten"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}
