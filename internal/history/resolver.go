package history

// User-facing messages for comparisons that cannot run as requested
const (
	MsgViewDeleted            = "File cannot be viewed as it was deleted."
	MsgCompareDeleted         = "File cannot be compared with, as it was deleted."
	MsgWorkspaceMissing       = "Corresponding workspace file does not exist."
	MsgPreviousDeleted        = "File cannot be compared with, as it was deleted. Showing deleted version."
	MsgPreviousAdded          = "File cannot be compared with previous, as this is a new file. Showing it."
	MsgViewPreviousAdded      = "Previous version of the file cannot be opened, as this is a new file."
	MsgAcrossDeleted          = "File cannot be compared with, as it was deleted"
	MsgAcrossAdded            = "File cannot be compared, as this is a new file."
	MsgPredecessorUnavailable = "Previous version of the file could not be resolved."
)

// Resolve decides which snapshots a comparison request needs. It performs no
// I/O and never fails: requests that cannot run as asked come back refused or
// degraded with a warning.
func Resolve(req ComparisonRequest) FetchPlan {
	entry := req.Entry

	switch req.Intent {
	case IntentViewFile:
		if entry.Status == StatusDeleted {
			return refused(MsgViewDeleted)
		}
		return view(entry.Revision, entry.File)

	case IntentCompareWithWorkspace:
		if entry.Status == StatusDeleted {
			return refused(MsgCompareDeleted)
		}
		if !req.WorkspaceExists {
			return refused(MsgWorkspaceMissing)
		}
		return FetchPlan{
			Outcome: OutcomeWorkspaceDiff,
			Fetches: []Fetch{{Revision: entry.Revision, File: entry.File}},
		}

	case IntentCompareWithPrevious:
		if entry.Status == StatusAdded {
			plan := view(entry.Revision, entry.File)
			plan.Outcome = OutcomeDegradedView
			plan.Warning = MsgPreviousAdded
			return plan
		}
		if req.Predecessor.IsZero() {
			return refused(MsgPredecessorUnavailable)
		}
		previous := previousFetch(req.Predecessor, entry.File)
		if entry.Status == StatusDeleted {
			return FetchPlan{
				Outcome: OutcomeDegradedView,
				Fetches: []Fetch{previous},
				Warning: MsgPreviousDeleted,
			}
		}
		current := Fetch{Revision: entry.Revision, File: entry.File}
		return diff(previous, current)

	case IntentViewPrevious:
		if entry.Status == StatusAdded {
			return refused(MsgViewPreviousAdded)
		}
		if req.Predecessor.IsZero() {
			return refused(MsgPredecessorUnavailable)
		}
		previous := previousFetch(req.Predecessor, entry.File)
		return FetchPlan{Outcome: OutcomeView, Fetches: []Fetch{previous}}

	case IntentCompareAcrossRevisions:
		switch entry.Status {
		case StatusDeleted:
			return refused(MsgAcrossDeleted)
		case StatusAdded:
			return refused(MsgAcrossAdded)
		}
		// Both sides use the entry's current path; renames between the two
		// revisions are not followed.
		file := FileReference{Path: entry.File.Path}
		left := Fetch{Revision: entry.Revision, File: file}
		right := Fetch{Revision: req.Right, File: file}
		return diff(left, right)
	}

	return refused("Unsupported action: " + string(req.Intent))
}

func refused(msg string) FetchPlan {
	return FetchPlan{Outcome: OutcomeRefused, Fetches: []Fetch{}, Warning: msg}
}

func view(rev RevisionID, file FileReference) FetchPlan {
	return FetchPlan{
		Outcome: OutcomeView,
		Fetches: []Fetch{{Revision: rev, File: file}},
	}
}

// previousFetch targets the file as it was at the predecessor revision,
// following a recorded rename.
func previousFetch(predecessor RevisionID, file FileReference) Fetch {
	return Fetch{
		Revision: predecessor,
		File:     FileReference{Path: file.PathAtPredecessor()},
	}
}

func diff(left, right Fetch) FetchPlan {
	return FetchPlan{
		Outcome: OutcomeDiff,
		Fetches: []Fetch{left, right},
		Title: &TitleInputs{
			Left:  Side{Path: left.File.Path, Revision: left.Revision},
			Right: Side{Path: right.File.Path, Revision: right.Revision},
		},
	}
}
