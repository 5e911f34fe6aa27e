package vcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/history-lens/internal/config"
	"github.com/history-lens/internal/history"
)

var (
	// ErrGitOperation wraps failures of the underlying git backend
	ErrGitOperation = errors.New("git operation failed")
	// ErrNotFound is returned when a path did not exist at a revision
	ErrNotFound = errors.New("file not found at revision")
	// ErrNoPredecessor is returned when a file has no earlier recorded version
	ErrNoPredecessor = errors.New("no previous revision")
)

// Commit is a history entry together with the files it touched
type Commit struct {
	Revision history.RevisionID
	Author   string
	When     time.Time
	Subject  string
	Changes  []history.FileChangeEntry
}

// Client provides the read-only git queries used by the service.
// Implementations may use the git binary or a pure-Go library.
type Client interface {
	// Snapshot extracts file as it was at rev into a temporary file.
	Snapshot(ctx context.Context, rev history.RevisionID, file history.FileReference) (*Handle, error)
	// Predecessor returns the latest revision before rev that touched file.
	Predecessor(ctx context.Context, rev history.RevisionID, file history.FileReference) (history.RevisionID, error)
	// ResolveRevision expands a ref, branch or abbreviated hash.
	ResolveRevision(ctx context.Context, rev string) (history.RevisionID, error)
	// Log returns up to limit commits reachable from ref, newest first.
	Log(ctx context.Context, ref string, limit int) ([]Commit, error)
	// Root returns the repository work tree root.
	Root() string
}

// NewClient opens the repository with the configured backend
func NewClient(ctx context.Context, cfg config.RepositoryConfig) (Client, error) {
	switch cfg.Backend {
	case "", "exec":
		return NewExecClient(ctx, cfg.Path, cfg.GitBin)
	case "gogit":
		return NewGoGitClient(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown git backend %q", cfg.Backend)
	}
}

// gitErrorf returns a formatted error that wraps ErrGitOperation
func gitErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrGitOperation}, args...)...)
}
