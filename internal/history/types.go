package history

import (
	"fmt"
	"strings"
)

// shortHashLen matches git's default abbreviation length
const shortHashLen = 7

// RevisionID identifies a commit by its content hash
type RevisionID struct {
	// Full is the complete hash used for lookups
	Full string `json:"full"`
	// Short is the abbreviated hash used for display
	Short string `json:"short"`
}

// NewRevisionID derives the display form from a full hash
func NewRevisionID(full string) RevisionID {
	short := full
	if len(short) > shortHashLen {
		short = short[:shortHashLen]
	}
	return RevisionID{Full: full, Short: short}
}

// ParseRevisionID builds a RevisionID from an externally abbreviated hash.
// An empty short form is derived from full.
func ParseRevisionID(full, short string) (RevisionID, error) {
	if full == "" {
		return RevisionID{}, fmt.Errorf("revision hash is required")
	}
	if short == "" {
		return NewRevisionID(full), nil
	}
	if !strings.HasPrefix(full, short) {
		return RevisionID{}, fmt.Errorf("short hash %q is not a prefix of %q", short, full)
	}
	return RevisionID{Full: full, Short: short}, nil
}

// IsZero reports whether the revision is unset
func (r RevisionID) IsZero() bool {
	return r.Full == ""
}

func (r RevisionID) String() string {
	return r.Short
}

// ChangeStatus is how a file changed within a commit
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
	StatusRenamed  ChangeStatus = "renamed"
	StatusOther    ChangeStatus = "other"
)

// ParseChangeStatus maps git name-status letters (A, M, D, R100, C75, T...)
// and long status names onto a ChangeStatus. Unknown values map to StatusOther.
func ParseChangeStatus(s string) ChangeStatus {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case string(StatusAdded):
		return StatusAdded
	case string(StatusModified):
		return StatusModified
	case string(StatusDeleted):
		return StatusDeleted
	case string(StatusRenamed):
		return StatusRenamed
	}
	if s == "" {
		return StatusOther
	}
	switch s[0] {
	case 'A':
		return StatusAdded
	case 'M':
		return StatusModified
	case 'D':
		return StatusDeleted
	case 'R':
		return StatusRenamed
	default:
		return StatusOther
	}
}

// FileReference points at a file in the repository.
// PreviousPath is set only when the file was renamed or moved.
type FileReference struct {
	Path         string `json:"path"`
	PreviousPath string `json:"previous_path,omitempty"`
}

// PathAtPredecessor returns the path the file had before this change
func (f FileReference) PathAtPredecessor() string {
	if f.PreviousPath != "" {
		return f.PreviousPath
	}
	return f.Path
}

// FileChangeEntry is a single file touched by a commit
type FileChangeEntry struct {
	Revision RevisionID    `json:"revision"`
	File     FileReference `json:"file"`
	Status   ChangeStatus  `json:"status"`
}

// Intent is the user action that triggered a comparison
type Intent string

const (
	IntentViewFile               Intent = "view_file"
	IntentCompareWithWorkspace   Intent = "compare_with_workspace"
	IntentCompareWithPrevious    Intent = "compare_with_previous"
	IntentViewPrevious           Intent = "view_previous"
	IntentCompareAcrossRevisions Intent = "compare_across_revisions"
)

// ParseIntent validates an intent name
func ParseIntent(s string) (Intent, error) {
	switch i := Intent(strings.ToLower(strings.TrimSpace(s))); i {
	case IntentViewFile, IntentCompareWithWorkspace, IntentCompareWithPrevious,
		IntentViewPrevious, IntentCompareAcrossRevisions:
		return i, nil
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// ComparisonRequest carries everything the resolver needs to decide a plan.
// Predecessor and WorkspaceExists are facts looked up by the caller beforehand;
// NeedsPredecessor and NeedsWorkspaceCheck report which of them apply.
type ComparisonRequest struct {
	Intent Intent
	Entry  FileChangeEntry
	// Right is the right-hand revision of IntentCompareAcrossRevisions
	Right           RevisionID
	Predecessor     RevisionID
	WorkspaceExists bool
}

// NeedsPredecessor reports whether resolving the request requires the
// revision preceding Entry for this file.
func (r ComparisonRequest) NeedsPredecessor() bool {
	switch r.Intent {
	case IntentCompareWithPrevious, IntentViewPrevious:
		return r.Entry.Status != StatusAdded
	}
	return false
}

// NeedsWorkspaceCheck reports whether resolving the request requires knowing
// if the file exists in the workspace.
func (r ComparisonRequest) NeedsWorkspaceCheck() bool {
	return r.Intent == IntentCompareWithWorkspace && r.Entry.Status != StatusDeleted
}

// Fetch is a single snapshot to retrieve
type Fetch struct {
	Revision RevisionID    `json:"revision"`
	File     FileReference `json:"file"`
}

// Side is one half of a comparison title
type Side struct {
	Path     string     `json:"path"`
	Revision RevisionID `json:"revision"`
}

// TitleInputs holds the left and right sides of a two-snapshot comparison
type TitleInputs struct {
	Left  Side `json:"left"`
	Right Side `json:"right"`
}

// Outcome is what the caller should present for a plan
type Outcome string

const (
	// OutcomeView shows a single snapshot
	OutcomeView Outcome = "view"
	// OutcomeDiff compares two snapshots
	OutcomeDiff Outcome = "diff"
	// OutcomeWorkspaceDiff compares one snapshot with the live workspace file
	OutcomeWorkspaceDiff Outcome = "workspace_diff"
	// OutcomeDegradedView shows a single snapshot alongside a non-fatal warning
	OutcomeDegradedView Outcome = "degraded_view"
	// OutcomeRefused shows only the warning
	OutcomeRefused Outcome = "refused"
)

// FetchPlan is the resolver's decision. Fetches are ordered left then right.
type FetchPlan struct {
	Outcome Outcome      `json:"outcome"`
	Fetches []Fetch      `json:"fetches"`
	Warning string       `json:"warning,omitempty"`
	Title   *TitleInputs `json:"title,omitempty"`
}
