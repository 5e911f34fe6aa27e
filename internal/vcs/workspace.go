package vcs

import (
	"os"
	"path/filepath"
)

// Workspace is the checked-out working tree of the repository
type Workspace struct {
	root string
}

// NewWorkspace returns the working tree rooted at root
func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

// Path returns the on-disk location of a repository-relative path
func (w *Workspace) Path(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// Exists reports whether the repository-relative path exists as a regular file
func (w *Workspace) Exists(rel string) (bool, error) {
	info, err := os.Stat(w.Path(rel))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}
