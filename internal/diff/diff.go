package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Result is a line diff of two snapshots
type Result struct {
	// Unified is the diff in unified format with the sides' labels as headers
	Unified    string `json:"unified"`
	Lines      []Line `json:"lines"`
	Stats      Stats  `json:"stats"`
	HasChanges bool   `json:"has_changes"`
}

// Line is a single line of the diff
type Line struct {
	Type       LineType `json:"type"`
	OldLineNum int      `json:"old_line_num,omitempty"`
	NewLineNum int      `json:"new_line_num,omitempty"`
	Content    string   `json:"content"`
}

// LineType marks a line as shared, added or removed
type LineType string

const (
	LineContext LineType = "context"
	LineAdded   LineType = "added"
	LineRemoved LineType = "removed"
)

// Stats summarises a diff
type Stats struct {
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
	LinesChanged int `json:"lines_changed"`
}

// Compare diffs two snapshots line by line. Labels name the left and right
// sides in the unified output.
func Compare(left, right, leftLabel, rightLabel string) *Result {
	result := &Result{Lines: []Line{}}
	if left == right {
		return result
	}
	result.HasChanges = true

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	result.Lines, result.Stats = lineDiff(diffs)
	result.Unified = unified(result.Lines, leftLabel, rightLabel)
	return result
}

// lineDiff expands diffmatchpatch runs into numbered lines
func lineDiff(diffs []diffmatchpatch.Diff) ([]Line, Stats) {
	lines := []Line{}
	var stats Stats

	oldNum, newNum := 1, 1
	for _, d := range diffs {
		for _, content := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Type: LineContext, OldLineNum: oldNum, NewLineNum: newNum, Content: content})
				oldNum++
				newNum++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Type: LineRemoved, OldLineNum: oldNum, Content: content})
				oldNum++
				stats.LinesRemoved++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Type: LineAdded, NewLineNum: newNum, Content: content})
				newNum++
				stats.LinesAdded++
			}
		}
	}

	// a removal followed by an addition counts as a change
	stats.LinesChanged = min(stats.LinesAdded, stats.LinesRemoved)
	return lines, stats
}

func unified(lines []Line, leftLabel, rightLabel string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n", leftLabel)
	fmt.Fprintf(&sb, "+++ %s\n", rightLabel)
	for _, l := range lines {
		switch l.Type {
		case LineContext:
			sb.WriteString(" ")
		case LineRemoved:
			sb.WriteString("-")
		case LineAdded:
			sb.WriteString("+")
		}
		sb.WriteString(l.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// splitLines drops the empty element left by a trailing newline
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
