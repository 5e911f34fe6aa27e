package history

import (
	"fmt"
	"path"
)

// WorkspaceLabel names the live working-tree side of a workspace comparison
const WorkspaceLabel = "Working Tree"

// FormatTitle labels a comparison of two snapshots. The right side repeats its
// file name only when it differs from the left one.
func FormatTitle(left, right Side) string {
	leftName := baseName(left.Path)
	rightName := baseName(right.Path)
	if leftName == rightName {
		return fmt.Sprintf("%s (%s ↔ %s)", leftName, left.Revision.Short, right.Revision.Short)
	}
	return fmt.Sprintf("%s (%s ↔ %s %s)", leftName, left.Revision.Short, rightName, right.Revision.Short)
}

// FormatWorkspaceTitle labels a comparison of a snapshot with the workspace file
func FormatWorkspaceTitle(side Side) string {
	return fmt.Sprintf("%s (%s ↔ %s)", baseName(side.Path), side.Revision.Short, WorkspaceLabel)
}

// baseName splits on "/" only; a backslash is a legal character in a git path
func baseName(p string) string {
	return path.Base(p)
}
