package api

import (
	"context"
	"fmt"

	"github.com/history-lens/internal/compare"
	"github.com/history-lens/internal/diff"
	"github.com/history-lens/internal/history"
	"github.com/history-lens/internal/vcs"
)

// Response kinds of POST /api/compare
const (
	KindFile    = "file"
	KindDiff    = "diff"
	KindWarning = "warning"
)

// SideInfo describes one snapshot in a compare response
type SideInfo struct {
	Path      string `json:"path"`
	Revision  string `json:"revision,omitempty"`
	Short     string `json:"short,omitempty"`
	Workspace bool   `json:"workspace,omitempty"`
}

// CompareResponse is the body returned by POST /api/compare
type CompareResponse struct {
	Kind    string       `json:"kind"`
	Warning string       `json:"warning,omitempty"`
	Title   string       `json:"title,omitempty"`
	Preview bool         `json:"preview,omitempty"`
	Left    *SideInfo    `json:"left,omitempty"`
	Right   *SideInfo    `json:"right,omitempty"`
	Content string       `json:"content,omitempty"`
	Diff    *diff.Result `json:"diff,omitempty"`
}

// presenter renders comparison outcomes into a CompareResponse and
// releases every snapshot it is handed
type presenter struct {
	resp CompareResponse
}

var _ compare.Presenter = (*presenter)(nil)

func (p *presenter) ShowFile(_ context.Context, file *vcs.Handle, notice string) error {
	defer release(file)

	content, err := file.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	p.resp = CompareResponse{
		Kind:    KindFile,
		Warning: notice,
		Left:    side(file),
		Content: string(content),
	}
	return nil
}

func (p *presenter) ShowDiff(_ context.Context, left, right *vcs.Handle, title string, opts compare.DiffOptions) error {
	defer release(left)
	defer release(right)

	l, err := left.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read left snapshot: %w", err)
	}
	r, err := right.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read right snapshot: %w", err)
	}

	p.resp = CompareResponse{
		Kind:    KindDiff,
		Title:   title,
		Preview: opts.Preview,
		Left:    side(left),
		Right:   side(right),
		Diff:    diff.Compare(string(l), string(r), label(left), label(right)),
	}
	return nil
}

func (p *presenter) ShowWarning(_ context.Context, message string) error {
	p.resp = CompareResponse{Kind: KindWarning, Warning: message}
	return nil
}

func side(h *vcs.Handle) *SideInfo {
	return &SideInfo{
		Path:      h.File.Path,
		Revision:  h.Revision.Full,
		Short:     h.Revision.Short,
		Workspace: h.Revision.IsZero(),
	}
}

func label(h *vcs.Handle) string {
	if h.Revision.IsZero() {
		return history.WorkspaceLabel + ":" + h.File.Path
	}
	return h.Revision.Short + ":" + h.File.Path
}

// release removes extracted snapshots. Workspace handles point at the live
// file and are left alone.
func release(h *vcs.Handle) {
	if h == nil || h.Revision.IsZero() {
		return
	}
	_ = h.Close()
}
