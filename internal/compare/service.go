package compare

import (
	"context"
	"fmt"

	"github.com/history-lens/internal/history"
	"github.com/history-lens/internal/vcs"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Snapshotter retrieves file snapshots and predecessor revisions
type Snapshotter interface {
	Snapshot(ctx context.Context, rev history.RevisionID, file history.FileReference) (*vcs.Handle, error)
	Predecessor(ctx context.Context, rev history.RevisionID, file history.FileReference) (history.RevisionID, error)
}

// Workspace answers questions about the live working tree
type Workspace interface {
	Exists(path string) (bool, error)
	Path(rel string) string
}

// DiffOptions are presentation hints for a diff view
type DiffOptions struct {
	Preview bool
}

// Presenter shows the outcome of a comparison. Exactly one method is called
// per executed request.
type Presenter interface {
	// ShowFile shows a single snapshot. notice is a non-fatal warning to show
	// alongside it, empty when the request ran as asked.
	ShowFile(ctx context.Context, file *vcs.Handle, notice string) error
	// ShowDiff compares left and right. For workspace comparisons right is a
	// handle on the live workspace file with a zero Revision.
	ShowDiff(ctx context.Context, left, right *vcs.Handle, title string, opts DiffOptions) error
	// ShowWarning reports why the request cannot be shown
	ShowWarning(ctx context.Context, message string) error
}

// Service executes comparison requests coming from the front end
type Service struct {
	snapshots Snapshotter
	workspace Workspace
	logger    zerolog.Logger
}

// NewService creates a new comparison service
func NewService(snapshots Snapshotter, workspace Workspace, logger zerolog.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		workspace: workspace,
		logger:    logger.With().Str("component", "compare").Logger(),
	}
}

// Execute resolves and presents a single user action on a file change entry.
// right is only used by history.IntentCompareAcrossRevisions. Infrastructure
// failures are returned without invoking the presenter.
func (s *Service) Execute(ctx context.Context, intent history.Intent, entry history.FileChangeEntry, right history.RevisionID, p Presenter) error {
	req, err := s.buildRequest(ctx, intent, entry, right)
	if err != nil {
		return err
	}

	plan := history.Resolve(req)
	s.logger.Debug().
		Str("intent", string(intent)).
		Str("revision", entry.Revision.Full).
		Str("path", entry.File.Path).
		Str("status", string(entry.Status)).
		Str("outcome", string(plan.Outcome)).
		Int("fetches", len(plan.Fetches)).
		Msg("Resolved comparison")

	return s.present(ctx, plan, p)
}

// buildRequest gathers only the facts the request needs
func (s *Service) buildRequest(ctx context.Context, intent history.Intent, entry history.FileChangeEntry, right history.RevisionID) (history.ComparisonRequest, error) {
	req := history.ComparisonRequest{Intent: intent, Entry: entry, Right: right}

	if intent == history.IntentCompareAcrossRevisions && right.IsZero() {
		return req, fmt.Errorf("right revision is required for %s", intent)
	}

	if req.NeedsPredecessor() {
		prev, err := s.snapshots.Predecessor(ctx, entry.Revision, history.FileReference{Path: entry.File.PathAtPredecessor()})
		if err != nil {
			return req, fmt.Errorf("failed to resolve previous revision of %s: %w", entry.File.Path, err)
		}
		req.Predecessor = prev
	}

	if req.NeedsWorkspaceCheck() {
		exists, err := s.workspace.Exists(entry.File.Path)
		if err != nil {
			return req, fmt.Errorf("failed to check workspace file %s: %w", entry.File.Path, err)
		}
		req.WorkspaceExists = exists
	}

	return req, nil
}

func (s *Service) present(ctx context.Context, plan history.FetchPlan, p Presenter) error {
	switch plan.Outcome {
	case history.OutcomeRefused:
		s.logger.Info().Str("warning", plan.Warning).Msg("Comparison refused")
		return p.ShowWarning(ctx, plan.Warning)

	case history.OutcomeView, history.OutcomeDegradedView:
		h, err := s.fetch(ctx, plan.Fetches[0])
		if err != nil {
			return err
		}
		return p.ShowFile(ctx, h, plan.Warning)

	case history.OutcomeWorkspaceDiff:
		h, err := s.fetch(ctx, plan.Fetches[0])
		if err != nil {
			return err
		}
		live := &vcs.Handle{Path: s.workspace.Path(h.File.Path), File: h.File}
		title := history.FormatWorkspaceTitle(history.Side{Path: h.File.Path, Revision: h.Revision})
		return p.ShowDiff(ctx, h, live, title, DiffOptions{Preview: true})

	case history.OutcomeDiff:
		left, right, err := s.fetchPair(ctx, plan.Fetches[0], plan.Fetches[1])
		if err != nil {
			return err
		}
		title := history.FormatTitle(plan.Title.Left, plan.Title.Right)
		return p.ShowDiff(ctx, left, right, title, DiffOptions{Preview: true})
	}

	return fmt.Errorf("unsupported comparison outcome %q", plan.Outcome)
}

func (s *Service) fetch(ctx context.Context, f history.Fetch) (*vcs.Handle, error) {
	h, err := s.snapshots.Snapshot(ctx, f.Revision, f.File)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s at %s: %w", f.File.Path, f.Revision.Short, err)
	}
	return h, nil
}

// fetchPair retrieves both sides concurrently. Results are assigned by
// position, not completion order. If either side fails the other handle is
// released and the first error is returned.
func (s *Service) fetchPair(ctx context.Context, left, right history.Fetch) (*vcs.Handle, *vcs.Handle, error) {
	handles := make([]*vcs.Handle, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range []history.Fetch{left, right} {
		i, f := i, f
		g.Go(func() error {
			h, err := s.fetch(gctx, f)
			if err != nil {
				return err
			}
			handles[i] = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, h := range handles {
			if h != nil {
				if cerr := h.Close(); cerr != nil {
					s.logger.Warn().Err(cerr).Str("path", h.Path).Msg("Failed to remove snapshot")
				}
			}
		}
		return nil, nil, err
	}
	return handles[0], handles[1], nil
}
