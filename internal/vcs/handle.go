package vcs

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/history-lens/internal/history"
)

// Handle is a snapshot extracted into a temporary file
type Handle struct {
	Path     string
	Revision history.RevisionID
	File     history.FileReference
}

// NewHandle writes the content read from r into a new temporary file
func NewHandle(rev history.RevisionID, file history.FileReference, r io.Reader) (*Handle, error) {
	// keep the extension so viewers can pick a highlighter
	pattern := fmt.Sprintf("%s-*-%s", rev.Short, sanitizeName(path.Base(file.Path)))
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return &Handle{Path: f.Name(), Revision: rev, File: file}, nil
}

// ReadAll returns the snapshot content
func (h *Handle) ReadAll() ([]byte, error) {
	return os.ReadFile(h.Path)
}

// Close removes the temporary file
func (h *Handle) Close() error {
	if h == nil || h.Path == "" {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '/', '\\':
			return '_'
		}
		return r
	}, name)
}
