package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/history-lens/internal/config"
	"github.com/history-lens/internal/history"
	"github.com/history-lens/internal/store"
	"github.com/history-lens/internal/vcs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	commits []vcs.Commit
	err     error
	calls   int
	ref     string
	limit   int
}

func (f *fakeHistory) Log(_ context.Context, ref string, limit int) ([]vcs.Commit, error) {
	f.calls++
	f.ref = ref
	f.limit = limit
	return f.commits, f.err
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func commit(hash string, changes ...history.FileChangeEntry) vcs.Commit {
	rev := history.NewRevisionID(hash)
	for i := range changes {
		changes[i].Revision = rev
	}
	return vcs.Commit{
		Revision: rev,
		Author:   "Ann",
		When:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Subject:  "subject " + hash[:4],
		Changes:  changes,
	}
}

func TestSyncNow_ImportsNewCommits(t *testing.T) {
	st := newStore(t)
	h := &fakeHistory{commits: []vcs.Commit{
		commit("1111111111aaaa", history.FileChangeEntry{
			File:   history.FileReference{Path: "new.go", PreviousPath: "old.go"},
			Status: history.StatusRenamed,
		}),
		commit("2222222222bbbb", history.FileChangeEntry{
			File:   history.FileReference{Path: "a.txt"},
			Status: history.StatusAdded,
		}),
	}}
	s := New(h, st, config.SyncConfig{Ref: "main", Depth: 50}, zerolog.Nop())

	n, err := s.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "main", h.ref)
	assert.Equal(t, 50, h.limit)

	c, err := st.GetCommit("1111111")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "1111111", c.ShortHash)
	assert.Equal(t, 1, c.FileCount)

	ch, err := st.GetFileChange(c.Hash, "new.go")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "old.go", ch.PreviousPath)
	assert.Equal(t, history.StatusRenamed, ch.Status)

	// second pass skips what is already stored
	n, err = s.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSyncNow_LogError(t *testing.T) {
	h := &fakeHistory{err: errors.New("boom")}
	s := New(h, newStore(t), config.SyncConfig{Ref: "HEAD", Depth: 1}, zerolog.Nop())

	_, err := s.SyncNow(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestStart_SyncsOnTriggerAndStops(t *testing.T) {
	st := newStore(t)
	h := &fakeHistory{}
	trigger := make(chan struct{})
	s := New(h, st, config.SyncConfig{Ref: "HEAD", Depth: 10, Interval: time.Hour}, zerolog.Nop()).
		WithTrigger(trigger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	trigger <- struct{}{}
	// unbuffered send returns once the loop received it; the next send
	// can only complete after that sync finished
	trigger <- struct{}{}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("syncer did not stop")
	}
	assert.GreaterOrEqual(t, h.calls, 2)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/r/.git/HEAD"}))
	assert.True(t, relevant(fsnotify.Event{Name: "/r/.git/refs/heads/main"}))
	assert.False(t, relevant(fsnotify.Event{Name: "/r/.git/refs/heads/main.lock"}))
	assert.False(t, relevant(fsnotify.Event{Name: "/r/.git/index"}))
	assert.False(t, relevant(fsnotify.Event{Name: "/r/.git/ORIG_HEAD"}))
}

func TestRefWatcher_SignalsOnRefChange(t *testing.T) {
	root := t.TempDir()
	heads := filepath.Join(root, ".git", "refs", "heads")
	require.NoError(t, os.MkdirAll(heads, 0o755))

	w, err := NewRefWatcher(root, 20*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(heads, "main"), []byte("abc\n"), 0o644))

	select {
	case <-w.Changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signalled")
	}
}

func TestNewRefWatcher_NotARepository(t *testing.T) {
	_, err := NewRefWatcher(t.TempDir(), time.Millisecond, zerolog.Nop())
	assert.Error(t, err)
}
