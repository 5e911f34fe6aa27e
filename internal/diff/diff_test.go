package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_NoChanges(t *testing.T) {
	result := Compare("same\n", "same\n", "a", "b")
	assert.False(t, result.HasChanges)
	assert.Empty(t, result.Lines)
	assert.Empty(t, result.Unified)
}

func TestCompare_Modification(t *testing.T) {
	left := "one\ntwo\nthree\n"
	right := "one\n2\nthree\nfour\n"

	result := Compare(left, right, "x.py @ cafe", "x.py @ dead")
	require.True(t, result.HasChanges)

	assert.Equal(t, Stats{LinesAdded: 2, LinesRemoved: 1, LinesChanged: 1}, result.Stats)
	assert.Equal(t, "--- x.py @ cafe\n+++ x.py @ dead\n one\n-two\n+2\n three\n+four\n", result.Unified)

	require.Len(t, result.Lines, 5)
	assert.Equal(t, Line{Type: LineContext, OldLineNum: 1, NewLineNum: 1, Content: "one"}, result.Lines[0])
	assert.Equal(t, Line{Type: LineRemoved, OldLineNum: 2, Content: "two"}, result.Lines[1])
	assert.Equal(t, Line{Type: LineAdded, NewLineNum: 2, Content: "2"}, result.Lines[2])
	assert.Equal(t, Line{Type: LineAdded, NewLineNum: 4, Content: "four"}, result.Lines[4])
}

func TestCompare_FromEmpty(t *testing.T) {
	result := Compare("", "a\nb\n", "empty", "full")
	assert.Equal(t, 2, result.Stats.LinesAdded)
	assert.Equal(t, 0, result.Stats.LinesRemoved)
	assert.Equal(t, 0, result.Stats.LinesChanged)
}
