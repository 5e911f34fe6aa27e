package vcs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/history-lens/internal/history"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x00"
	// header line of every commit in Log output
	logFormat = "--format=%x1e%H%x00%an%x00%at%x00%s"
)

// ExecClient implements Client using the git binary
type ExecClient struct {
	r    Runner
	root string
}

// NewExecClient resolves the work tree root of path using the git binary
func NewExecClient(ctx context.Context, path, gitBin string) (*ExecClient, error) {
	return newExecClient(ctx, NewExecRunner(gitBin), path)
}

func newExecClient(ctx context.Context, r Runner, path string) (*ExecClient, error) {
	out, err := r.Run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, gitErrorf("not a git repository: %s: %v", path, err)
	}
	return &ExecClient{r: r, root: strings.TrimSpace(out)}, nil
}

// Root returns the work tree root
func (c *ExecClient) Root() string {
	return c.root
}

// Snapshot extracts file at rev with `git show rev:path`
func (c *ExecClient) Snapshot(ctx context.Context, rev history.RevisionID, file history.FileReference) (*Handle, error) {
	var buf bytes.Buffer
	err := c.r.Stream(ctx, c.root, &buf, "show", rev.Full+":"+file.Path)
	if err != nil {
		if isMissingPath(err) {
			return nil, fmt.Errorf("%s at %s: %w", file.Path, rev.Short, ErrNotFound)
		}
		return nil, gitErrorf("show %s at %s: %v", file.Path, rev.Short, err)
	}
	return NewHandle(rev, file, &buf)
}

// Predecessor returns the last commit before rev that touched file.Path
func (c *ExecClient) Predecessor(ctx context.Context, rev history.RevisionID, file history.FileReference) (history.RevisionID, error) {
	out, err := c.r.Run(ctx, c.root, "rev-list", "-n", "1", rev.Full+"^", "--", file.Path)
	if err != nil {
		if isUnknownRevision(err) {
			return history.RevisionID{}, fmt.Errorf("%s at %s: %w", file.Path, rev.Short, ErrNoPredecessor)
		}
		return history.RevisionID{}, gitErrorf("rev-list %s: %v", rev.Short, err)
	}
	full := strings.TrimSpace(out)
	if full == "" {
		return history.RevisionID{}, fmt.Errorf("%s at %s: %w", file.Path, rev.Short, ErrNoPredecessor)
	}
	return history.NewRevisionID(full), nil
}

// ResolveRevision expands rev to a full commit hash
func (c *ExecClient) ResolveRevision(ctx context.Context, rev string) (history.RevisionID, error) {
	// revisions come from API callers and must not be read as options
	if rev == "" || strings.HasPrefix(rev, "-") {
		return history.RevisionID{}, fmt.Errorf("revision %q: %w", rev, ErrNotFound)
	}
	out, err := c.r.Run(ctx, c.root, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return history.RevisionID{}, fmt.Errorf("revision %q: %w", rev, ErrNotFound)
	}
	return history.NewRevisionID(strings.TrimSpace(out)), nil
}

// Log lists commits with their name-status changes, following renames
func (c *ExecClient) Log(ctx context.Context, ref string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 1
	}
	out, err := c.r.Run(ctx, c.root, "log", "-n", strconv.Itoa(limit), logFormat, "--name-status", "-M", ref, "--")
	if err != nil {
		return nil, gitErrorf("log %s: %v", ref, err)
	}
	return parseLog(out)
}

// parseLog parses output of `git log --name-status` produced with logFormat
func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for _, record := range strings.Split(out, recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}

		scanner := bufio.NewScanner(strings.NewReader(record))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		if !scanner.Scan() {
			continue
		}
		commit, err := parseHeader(scanner.Text())
		if err != nil {
			return nil, err
		}

		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			change, ok := parseNameStatus(line)
			if !ok {
				continue
			}
			change.Revision = commit.Revision
			commit.Changes = append(commit.Changes, change)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan git log: %w", err)
		}

		commits = append(commits, commit)
	}
	return commits, nil
}

func parseHeader(line string) (Commit, error) {
	fields := strings.SplitN(line, fieldSep, 4)
	if len(fields) != 4 {
		return Commit{}, fmt.Errorf("malformed log header %q", line)
	}
	commit := Commit{
		Revision: history.NewRevisionID(fields[0]),
		Author:   fields[1],
		Subject:  fields[3],
	}
	if secs, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
		commit.When = time.Unix(secs, 0).UTC()
	}
	return commit, nil
}

// parseNameStatus parses "M\tpath" or "R100\told\tnew"
func parseNameStatus(line string) (history.FileChangeEntry, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return history.FileChangeEntry{}, false
	}
	status := history.ParseChangeStatus(parts[0])
	entry := history.FileChangeEntry{Status: status}

	switch {
	case len(parts) >= 3 && (status == history.StatusRenamed || strings.HasPrefix(parts[0], "C")):
		entry.File.Path = unquotePath(parts[2])
		if status == history.StatusRenamed {
			entry.File.PreviousPath = unquotePath(parts[1])
		}
	default:
		entry.File.Path = unquotePath(parts[1])
	}
	return entry, entry.File.Path != ""
}

func unquotePath(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "\"") {
		if decoded, err := strconv.Unquote(p); err == nil {
			return decoded
		}
	}
	return p
}

func isMissingPath(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return strings.Contains(cmdErr.Stderr, "does not exist") ||
		strings.Contains(cmdErr.Stderr, "exists on disk, but not in")
}

func isUnknownRevision(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return strings.Contains(cmdErr.Stderr, "unknown revision") ||
		strings.Contains(cmdErr.Stderr, "bad revision")
}
