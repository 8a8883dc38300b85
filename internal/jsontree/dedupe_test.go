package jsontree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicate_GroupsByExactValue(t *testing.T) {
	occs := []Occurrence{
		{Path: []string{"a"}, Value: "Hello"},
		{Path: []string{"b", "0"}, Value: "Hello"},
		{Path: []string{"b", "1"}, Value: "World"},
		{Path: []string{"c"}, Value: "hello"},
		{Path: []string{"d"}, Value: "Hello "},
	}

	uniques := Deduplicate(occs)
	require.Len(t, uniques, 4)

	assert.Equal(t, "Hello", uniques[0].Value)
	assert.Equal(t, []string{"a"}, uniques[0].Path)
	assert.Equal(t, []int{0, 1}, uniques[0].Occurrences)

	// Case and trailing whitespace are significant.
	assert.Equal(t, "hello", uniques[2].Value)
	assert.Equal(t, "Hello ", uniques[3].Value)
}

func TestDeduplicate_ExactPartition(t *testing.T) {
	occs := []Occurrence{
		{Path: []string{"x"}, Value: "One"},
		{Path: []string{"y"}, Value: "Two"},
		{Path: []string{"z"}, Value: "One"},
		{Path: []string{"w"}, Value: "Three"},
		{Path: []string{"v"}, Value: "Two"},
	}

	uniques := Deduplicate(occs)

	seen := make(map[int]int)
	for _, u := range uniques {
		for _, idx := range u.Occurrences {
			seen[idx]++
		}
	}
	require.Len(t, seen, len(occs), "union of occurrence indices must cover all occurrences")
	for idx, count := range seen {
		assert.Equal(t, 1, count, "occurrence %d assigned to more than one unique string", idx)
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}
