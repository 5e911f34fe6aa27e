package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// RefWatcher signals when HEAD or any ref of a repository changes
type RefWatcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger
	Changes  chan struct{}
}

// NewRefWatcher watches .git, .git/refs and its subdirectories under root
func NewRefWatcher(root string, debounce time.Duration, logger zerolog.Logger) (*RefWatcher, error) {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat git dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory (worktrees and submodules are not watched)", gitDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsw.Add(gitDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", gitDir, err)
	}
	err = filepath.WalkDir(filepath.Join(gitDir, "refs"), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch refs: %w", err)
	}

	return &RefWatcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger.With().Str("component", "refwatcher").Logger(),
		Changes:  make(chan struct{}, 1),
	}, nil
}

// Run forwards debounced change notifications until ctx is cancelled
func (w *RefWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		case <-fire:
			fire = nil
			select {
			case w.Changes <- struct{}{}:
			default:
			}
		}
	}
}

// Close stops the watcher
func (w *RefWatcher) Close() error {
	return w.fsw.Close()
}

// relevant drops lock files and object writes
func relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if filepath.Ext(name) == ".lock" {
		return false
	}
	switch name {
	case "index", "objects", "logs", "FETCH_HEAD", "ORIG_HEAD", "COMMIT_EDITMSG":
		return false
	}
	return true
}
