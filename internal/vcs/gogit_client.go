package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/history-lens/internal/history"
)

// GoGitClient implements Client in pure Go. go-git's filesystem storage
// loads packfile indexes lazily and is not safe for concurrent reads, so
// object access is serialized.
type GoGitClient struct {
	mu   sync.Mutex
	repo *git.Repository
	root string
}

// NewGoGitClient opens the repository containing path
func NewGoGitClient(path string) (*GoGitClient, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, gitErrorf("open repository at %s: %v", path, err)
	}

	root := path
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &GoGitClient{repo: repo, root: root}, nil
}

// Root returns the work tree root
func (g *GoGitClient) Root() string {
	return g.root
}

// Snapshot extracts file at rev from the commit tree
func (g *GoGitClient) Snapshot(ctx context.Context, rev history.RevisionID, file history.FileReference) (*Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	commit, err := g.repo.CommitObject(plumbing.NewHash(rev.Full))
	if err != nil {
		return nil, gitErrorf("commit %s: %v", rev.Short, err)
	}

	f, err := commit.File(file.Path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s at %s: %w", file.Path, rev.Short, ErrNotFound)
		}
		return nil, gitErrorf("read %s at %s: %v", file.Path, rev.Short, err)
	}

	r, err := f.Reader()
	if err != nil {
		return nil, gitErrorf("read %s at %s: %v", file.Path, rev.Short, err)
	}
	defer r.Close()

	return NewHandle(rev, file, r)
}

// Predecessor walks history from the first parent of rev and returns the
// first commit that touched file.Path.
func (g *GoGitClient) Predecessor(ctx context.Context, rev history.RevisionID, file history.FileReference) (history.RevisionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	commit, err := g.repo.CommitObject(plumbing.NewHash(rev.Full))
	if err != nil {
		return history.RevisionID{}, gitErrorf("commit %s: %v", rev.Short, err)
	}
	if commit.NumParents() == 0 {
		return history.RevisionID{}, fmt.Errorf("%s at %s: %w", file.Path, rev.Short, ErrNoPredecessor)
	}

	name := file.Path
	iter, err := g.repo.Log(&git.LogOptions{From: commit.ParentHashes[0], FileName: &name})
	if err != nil {
		return history.RevisionID{}, gitErrorf("log %s: %v", rev.Short, err)
	}
	defer iter.Close()

	prev, err := iter.Next()
	if err == io.EOF {
		return history.RevisionID{}, fmt.Errorf("%s at %s: %w", file.Path, rev.Short, ErrNoPredecessor)
	}
	if err != nil {
		return history.RevisionID{}, gitErrorf("log %s: %v", rev.Short, err)
	}
	return history.NewRevisionID(prev.Hash.String()), nil
}

// ResolveRevision expands a ref or abbreviated hash
func (g *GoGitClient) ResolveRevision(ctx context.Context, rev string) (history.RevisionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return history.RevisionID{}, fmt.Errorf("revision %q: %w", rev, ErrNotFound)
	}
	return history.NewRevisionID(hash.String()), nil
}

// Log lists commits reachable from ref with rename-aware file changes
func (g *GoGitClient) Log(ctx context.Context, ref string, limit int) ([]Commit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hash, err := g.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, gitErrorf("resolve %s: %v", ref, err)
	}

	iter, err := g.repo.Log(&git.LogOptions{From: *hash})
	if err != nil {
		return nil, gitErrorf("log %s: %v", ref, err)
	}
	defer iter.Close()

	var commits []Commit
	for len(commits) < limit {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, gitErrorf("log %s: %v", ref, err)
		}

		commit := Commit{
			Revision: history.NewRevisionID(c.Hash.String()),
			Author:   c.Author.Name,
			When:     c.Author.When.UTC(),
			Subject:  subject(c.Message),
		}
		changes, err := g.changes(ctx, c)
		if err != nil {
			return nil, err
		}
		for _, ch := range changes {
			ch.Revision = commit.Revision
			commit.Changes = append(commit.Changes, ch)
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// changes diffs c against its first parent, like `git log --name-status -M`.
// Merge commits report no changes.
func (g *GoGitClient) changes(ctx context.Context, c *object.Commit) ([]history.FileChangeEntry, error) {
	if c.NumParents() > 1 {
		return nil, nil
	}

	tree, err := c.Tree()
	if err != nil {
		return nil, gitErrorf("tree of %s: %v", c.Hash, err)
	}

	var parentTree *object.Tree
	if c.NumParents() == 1 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, gitErrorf("parent of %s: %v", c.Hash, err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, gitErrorf("tree of %s: %v", parent.Hash, err)
		}
	}

	diffs, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, gitErrorf("diff %s: %v", c.Hash, err)
	}

	entries := make([]history.FileChangeEntry, 0, len(diffs))
	for _, d := range diffs {
		action, err := d.Action()
		if err != nil {
			return nil, gitErrorf("diff %s: %v", c.Hash, err)
		}
		var entry history.FileChangeEntry
		switch action {
		case merkletrie.Insert:
			entry.Status = history.StatusAdded
			entry.File.Path = d.To.Name
		case merkletrie.Delete:
			entry.Status = history.StatusDeleted
			entry.File.Path = d.From.Name
		default:
			entry.File.Path = d.To.Name
			entry.Status = history.StatusModified
			if d.From.Name != d.To.Name {
				entry.Status = history.StatusRenamed
				entry.File.PreviousPath = d.From.Name
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func subject(message string) string {
	for i, r := range message {
		if r == '\n' {
			return message[:i]
		}
	}
	return message
}
