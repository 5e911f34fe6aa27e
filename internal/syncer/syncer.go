package syncer

import (
	"context"
	"time"

	"github.com/history-lens/internal/config"
	"github.com/history-lens/internal/store"
	"github.com/history-lens/internal/vcs"
	"github.com/rs/zerolog"
)

// History is the part of the git client the syncer reads from
type History interface {
	Log(ctx context.Context, ref string, limit int) ([]vcs.Commit, error)
}

// Syncer periodically imports recent commits into the store
type Syncer struct {
	history History
	store   store.Store
	config  config.SyncConfig
	logger  zerolog.Logger
	trigger <-chan struct{}
}

// New creates a new Syncer instance
func New(history History, st store.Store, cfg config.SyncConfig, logger zerolog.Logger) *Syncer {
	return &Syncer{
		history: history,
		store:   st,
		config:  cfg,
		logger:  logger.With().Str("component", "syncer").Logger(),
	}
}

// WithTrigger makes every value received on trigger start a sync cycle
func (s *Syncer) WithTrigger(trigger <-chan struct{}) *Syncer {
	s.trigger = trigger
	return s
}

// Start runs the sync loop until ctx is cancelled
func (s *Syncer) Start(ctx context.Context) {
	// Run initial sync immediately
	s.sync(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Syncer stopping")
			return
		case <-ticker.C:
			s.sync(ctx)
		case <-s.trigger:
			s.logger.Debug().Msg("Repository changed, syncing")
			s.sync(ctx)
		}
	}
}

// SyncNow performs a single sync cycle and returns the number of imported commits
func (s *Syncer) SyncNow(ctx context.Context) (int, error) {
	commits, err := s.history.Log(ctx, s.config.Ref, s.config.Depth)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, c := range commits {
		known, err := s.store.HasCommit(c.Revision.Full)
		if err != nil {
			return imported, err
		}
		if known {
			continue
		}

		if err := s.store.UpsertCommit(toStoreCommit(c), toStoreChanges(c)); err != nil {
			s.logger.Error().Err(err).Str("commit", c.Revision.Short).Msg("Failed to import commit")
			continue
		}
		imported++
	}
	return imported, nil
}

// sync performs a single sync cycle, logging instead of returning errors
func (s *Syncer) sync(ctx context.Context) {
	start := time.Now()

	imported, err := s.SyncNow(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("ref", s.config.Ref).Msg("Sync cycle failed")
		return
	}

	ev := s.logger.Debug()
	if imported > 0 {
		ev = s.logger.Info()
	}
	ev.Int("imported", imported).Dur("took", time.Since(start)).Msg("Sync cycle complete")
}

func toStoreCommit(c vcs.Commit) *store.Commit {
	return &store.Commit{
		Hash:        c.Revision.Full,
		ShortHash:   c.Revision.Short,
		Author:      c.Author,
		CommittedAt: c.When,
		Subject:     c.Subject,
	}
}

func toStoreChanges(c vcs.Commit) []store.FileChange {
	changes := make([]store.FileChange, 0, len(c.Changes))
	for _, ch := range c.Changes {
		changes = append(changes, store.FileChange{
			CommitHash:   c.Revision.Full,
			Path:         ch.File.Path,
			PreviousPath: ch.File.PreviousPath,
			Status:       ch.Status,
		})
	}
	return changes
}
