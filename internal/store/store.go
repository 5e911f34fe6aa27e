package store

import (
	"time"

	"github.com/history-lens/internal/history"
)

// Commit is an imported history entry
type Commit struct {
	Hash        string    `json:"hash"`
	ShortHash   string    `json:"short_hash"`
	Author      string    `json:"author"`
	CommittedAt time.Time `json:"committed_at"`
	Subject     string    `json:"subject"`
	FileCount   int       `json:"file_count"`
}

// Revision returns the commit's revision identifier
func (c Commit) Revision() history.RevisionID {
	return history.RevisionID{Full: c.Hash, Short: c.ShortHash}
}

// FileChange is a file touched by a commit
type FileChange struct {
	CommitHash   string               `json:"commit_hash"`
	Path         string               `json:"path"`
	PreviousPath string               `json:"previous_path,omitempty"`
	Status       history.ChangeStatus `json:"status"`
}

// CommitWithChanges bundles a commit with its file changes
type CommitWithChanges struct {
	Commit
	Changes []FileChange `json:"changes"`
}

// Store defines the interface for the history cache
type Store interface {
	// Commit operations
	UpsertCommit(commit *Commit, changes []FileChange) error
	GetCommit(hash string) (*Commit, error)
	HasCommit(hash string) (bool, error)
	ListCommits(limit int) ([]Commit, error)
	LatestCommit() (*Commit, error)

	// File change operations
	GetFileChanges(commitHash string) ([]FileChange, error)
	GetFileChange(commitHash, path string) (*FileChange, error)

	// Utility
	Close() error
}

// Entry converts a stored change into the resolver's entry type
func Entry(commit *Commit, change *FileChange) history.FileChangeEntry {
	return history.FileChangeEntry{
		Revision: commit.Revision(),
		File:     history.FileReference{Path: change.Path, PreviousPath: change.PreviousPath},
		Status:   change.Status,
	}
}
