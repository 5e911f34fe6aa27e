package vcs

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/history-lens/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a repository with four commits:
// add a.txt+b.txt, modify a.txt, rename b.txt->c.txt, delete a.txt
type fixture struct {
	dir     string
	commits []history.RevisionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	f := &fixture{dir: dir}
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	commit := func(msg string) {
		when = when.Add(time.Hour)
		hash, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: when},
		})
		require.NoError(t, err)
		f.commits = append(f.commits, history.NewRevisionID(hash.String()))
	}
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	write("a.txt", "one\n")
	write("b.txt", "stable content\nthat is renamed later\n")
	commit("initial")

	write("a.txt", "one\ntwo\n")
	commit("extend a")

	_, err = wt.Move("b.txt", "c.txt")
	require.NoError(t, err)
	commit("rename b")

	_, err = wt.Remove("a.txt")
	require.NoError(t, err)
	commit("drop a")

	return f
}

func readHandle(t *testing.T, h *Handle) string {
	t.Helper()
	data, err := h.ReadAll()
	require.NoError(t, err)
	return string(data)
}

func TestGoGitClient_Snapshot(t *testing.T) {
	f := newFixture(t)
	client, err := NewGoGitClient(f.dir)
	require.NoError(t, err)
	ctx := context.Background()

	h, err := client.Snapshot(ctx, f.commits[1], history.FileReference{Path: "a.txt"})
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "one\ntwo\n", readHandle(t, h))
	assert.Equal(t, f.commits[1], h.Revision)

	_, err = client.Snapshot(ctx, f.commits[3], history.FileReference{Path: "a.txt"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoGitClient_Predecessor(t *testing.T) {
	f := newFixture(t)
	client, err := NewGoGitClient(f.dir)
	require.NoError(t, err)
	ctx := context.Background()

	// a.txt deleted in commit 3 was last touched by commit 1
	prev, err := client.Predecessor(ctx, f.commits[3], history.FileReference{Path: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, f.commits[1], prev)

	// renamed file is looked up by its previous path
	prev, err = client.Predecessor(ctx, f.commits[2], history.FileReference{Path: "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, f.commits[0], prev)

	_, err = client.Predecessor(ctx, f.commits[0], history.FileReference{Path: "a.txt"})
	assert.ErrorIs(t, err, ErrNoPredecessor)
}

func TestGoGitClient_Log(t *testing.T) {
	f := newFixture(t)
	client, err := NewGoGitClient(f.dir)
	require.NoError(t, err)

	commits, err := client.Log(context.Background(), "HEAD", 10)
	require.NoError(t, err)
	require.Len(t, commits, 4)

	assert.Equal(t, f.commits[3], commits[0].Revision)
	assert.Equal(t, "drop a", commits[0].Subject)
	assert.Equal(t, "Dev", commits[0].Author)
	require.Len(t, commits[0].Changes, 1)
	assert.Equal(t, history.StatusDeleted, commits[0].Changes[0].Status)
	assert.Equal(t, "a.txt", commits[0].Changes[0].File.Path)
	assert.Equal(t, f.commits[3], commits[0].Changes[0].Revision)

	require.Len(t, commits[1].Changes, 1)
	assert.Equal(t, history.StatusRenamed, commits[1].Changes[0].Status)
	assert.Equal(t, history.FileReference{Path: "c.txt", PreviousPath: "b.txt"}, commits[1].Changes[0].File)

	require.Len(t, commits[2].Changes, 1)
	assert.Equal(t, history.StatusModified, commits[2].Changes[0].Status)

	assert.Len(t, commits[3].Changes, 2)
	for _, ch := range commits[3].Changes {
		assert.Equal(t, history.StatusAdded, ch.Status)
	}

	limited, err := client.Log(context.Background(), "HEAD", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGoGitClient_ResolveRevision(t *testing.T) {
	f := newFixture(t)
	client, err := NewGoGitClient(f.dir)
	require.NoError(t, err)

	rev, err := client.ResolveRevision(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.Equal(t, f.commits[3], rev)

	_, err = client.ResolveRevision(context.Background(), "no-such-branch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecClient_AgainstFixture(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	f := newFixture(t)
	ctx := context.Background()

	client, err := NewExecClient(ctx, f.dir, "")
	require.NoError(t, err)

	h, err := client.Snapshot(ctx, f.commits[0], history.FileReference{Path: "a.txt"})
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "one\n", readHandle(t, h))

	_, err = client.Snapshot(ctx, f.commits[3], history.FileReference{Path: "a.txt"})
	assert.ErrorIs(t, err, ErrNotFound)

	prev, err := client.Predecessor(ctx, f.commits[3], history.FileReference{Path: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, f.commits[1], prev)

	_, err = client.Predecessor(ctx, f.commits[0], history.FileReference{Path: "a.txt"})
	assert.ErrorIs(t, err, ErrNoPredecessor)

	commits, err := client.Log(ctx, "HEAD", 10)
	require.NoError(t, err)
	require.Len(t, commits, 4)
	assert.Equal(t, history.FileReference{Path: "c.txt", PreviousPath: "b.txt"}, commits[1].Changes[0].File)
}

func TestParseLog(t *testing.T) {
	out := "\x1eaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\x00Ann\x001709294400\x00rename and edit\n" +
		"\n" +
		"R087\tsrc/old.go\tsrc/new.go\n" +
		"M\tREADME.md\n" +
		"A\t\"sp ace\\tname.txt\"\n" +
		"\x1ebbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb\x00Bob\x001709290800\x00initial\n" +
		"\n" +
		"D\tgone.txt\n" +
		"C100\ta.txt\tcopy.txt\n"

	commits, err := parseLog(out)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	first := commits[0]
	assert.Equal(t, "aaaaaaa", first.Revision.Short)
	assert.Equal(t, "Ann", first.Author)
	assert.Equal(t, "rename and edit", first.Subject)
	assert.Equal(t, time.Unix(1709294400, 0).UTC(), first.When)
	require.Len(t, first.Changes, 3)
	assert.Equal(t, history.FileChangeEntry{
		Revision: first.Revision,
		File:     history.FileReference{Path: "src/new.go", PreviousPath: "src/old.go"},
		Status:   history.StatusRenamed,
	}, first.Changes[0])
	assert.Equal(t, history.StatusModified, first.Changes[1].Status)
	assert.Equal(t, "sp ace\tname.txt", first.Changes[2].File.Path)

	second := commits[1]
	require.Len(t, second.Changes, 2)
	assert.Equal(t, history.StatusDeleted, second.Changes[0].Status)
	assert.Equal(t, history.FileReference{Path: "copy.txt"}, second.Changes[1].File)
	assert.Equal(t, history.StatusOther, second.Changes[1].Status)
}

func TestParseLog_MalformedHeader(t *testing.T) {
	_, err := parseLog("\x1eonly-a-hash\n")
	assert.Error(t, err)
}

func TestSanitizeArgsAndRedact(t *testing.T) {
	assert.Equal(t, "rev-list", sanitizeArgs([]string{"rev-list", "-n", "1"}))
	assert.Equal(t, "show", sanitizeArgs([]string{"show", "abc:secret/path"}))
	assert.Equal(t, "<redacted>", sanitizeArgs([]string{"--version"}))
	assert.Equal(t, "<no-args>", sanitizeArgs(nil))

	assert.Equal(t, "fetch https://<redacted>@host/repo", redactTokens("fetch https://user:pw@host/repo"))
	assert.Equal(t, "token=<redacted> ok", redactTokens("token=abc123 ok"))
}

func TestWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "x.go"), []byte("package pkg\n"), 0o644))

	ws := NewWorkspace(dir)

	ok, err := ws.Exists("pkg/x.go")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ws.Exists("pkg/missing.go")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ws.Exists("pkg")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, filepath.Join(dir, "pkg", "x.go"), ws.Path("pkg/x.go"))
}

func TestHandle(t *testing.T) {
	rev := history.NewRevisionID("0123456789")
	h, err := NewHandle(rev, history.FileReference{Path: "dir/na*me.txt"}, strings.NewReader("content"))
	require.NoError(t, err)

	assert.Equal(t, ".txt", filepath.Ext(h.Path))
	assert.Equal(t, "content", readHandle(t, h))

	require.NoError(t, h.Close())
	_, err = os.Stat(h.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, h.Close())
}

type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	r.calls = append(r.calls, args)
	if len(args) > 1 && args[0] == "rev-parse" && args[1] == "--show-toplevel" {
		return "/repo\n", nil
	}
	return "0123456789abcdef0123456789abcdef01234567\n", nil
}

func (r *recordingRunner) Stream(_ context.Context, _ string, _ io.Writer, args ...string) error {
	r.calls = append(r.calls, args)
	return nil
}

func TestExecClient_ResolveRevisionRejectsOptions(t *testing.T) {
	r := &recordingRunner{}
	client, err := newExecClient(context.Background(), r, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "/repo", client.Root())

	for _, rev := range []string{"-h", "--output=/tmp/x", ""} {
		_, err := client.ResolveRevision(context.Background(), rev)
		assert.ErrorIs(t, err, ErrNotFound, rev)
	}
	assert.Len(t, r.calls, 1, "only the toplevel lookup reaches git")

	got, err := client.ResolveRevision(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, "0123456", got.Short)
	assert.Equal(t, []string{"rev-parse", "--verify", "--quiet", "main^{commit}"}, r.calls[1])
}

func TestGoGitClient_ConcurrentSnapshots(t *testing.T) {
	f := newFixture(t)
	client, err := NewGoGitClient(f.dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rev := f.commits[i%2]
			h, err := client.Snapshot(context.Background(), rev, history.FileReference{Path: "a.txt"})
			if err != nil {
				errs <- err
				return
			}
			h.Close()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
