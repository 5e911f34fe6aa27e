package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/history-lens/internal/history"
	"github.com/history-lens/internal/store"
	"github.com/history-lens/internal/vcs"
)

// APIError represents an error response
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CompareRequest is the body of POST /api/compare
type CompareRequest struct {
	Intent        string `json:"intent"`
	Revision      string `json:"revision"`
	Path          string `json:"path"`
	RightRevision string `json:"right_revision,omitempty"`
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error().Err(err).Msg("Error encoding JSON response")
		}
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, APIError{Error: http.StatusText(status), Message: message})
}

// handleHealth returns the health status of the service
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "healthy"}

	latest, err := s.store.LatestCommit()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading latest commit")
		s.respondError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	if latest != nil {
		resp["latest_commit"] = latest.ShortHash
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleListCommits returns the most recent imported commits
func (s *Server) handleListCommits(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	commits, err := s.store.ListCommits(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing commits")
		s.respondError(w, http.StatusInternalServerError, "Failed to list commits")
		return
	}

	if commits == nil {
		commits = []store.Commit{}
	}

	s.respondJSON(w, http.StatusOK, commits)
}

// handleGetCommit returns a commit with the files it touched
func (s *Server) handleGetCommit(w http.ResponseWriter, r *http.Request) {
	rev := chi.URLParam(r, "rev")

	commit, err := s.store.GetCommit(rev)
	if err != nil {
		s.logger.Error().Err(err).Str("rev", rev).Msg("Error getting commit")
		s.respondError(w, http.StatusInternalServerError, "Failed to get commit")
		return
	}
	if commit == nil {
		s.respondError(w, http.StatusNotFound, "Commit not found")
		return
	}

	changes, err := s.store.GetFileChanges(commit.Hash)
	if err != nil {
		s.logger.Error().Err(err).Str("rev", rev).Msg("Error getting file changes")
		s.respondError(w, http.StatusInternalServerError, "Failed to get file changes")
		return
	}
	if changes == nil {
		changes = []store.FileChange{}
	}

	s.respondJSON(w, http.StatusOK, store.CommitWithChanges{Commit: *commit, Changes: changes})
}

// handleCompare runs a comparison on a file change entry
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	intent, err := history.ParseIntent(req.Intent)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Revision == "" || req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "Revision and path are required")
		return
	}

	commit, err := s.store.GetCommit(req.Revision)
	if err != nil {
		s.logger.Error().Err(err).Str("rev", req.Revision).Msg("Error getting commit")
		s.respondError(w, http.StatusInternalServerError, "Failed to get commit")
		return
	}
	if commit == nil {
		s.respondError(w, http.StatusNotFound, "Commit not found")
		return
	}

	change, err := s.store.GetFileChange(commit.Hash, strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		s.logger.Error().Err(err).Str("rev", req.Revision).Str("path", req.Path).Msg("Error getting file change")
		s.respondError(w, http.StatusInternalServerError, "Failed to get file change")
		return
	}
	if change == nil {
		s.respondError(w, http.StatusNotFound, "File not changed in commit")
		return
	}

	var right history.RevisionID
	if intent == history.IntentCompareAcrossRevisions {
		if req.RightRevision == "" {
			s.respondError(w, http.StatusBadRequest, "right_revision is required")
			return
		}
		right, err = s.resolveRevision(r, req.RightRevision)
		if err != nil {
			s.respondCompareError(w, err)
			return
		}
	}

	p := &presenter{}
	if err := s.comparer.Execute(r.Context(), intent, store.Entry(commit, change), right, p); err != nil {
		s.logger.Error().Err(err).
			Str("intent", string(intent)).
			Str("rev", commit.ShortHash).
			Str("path", change.Path).
			Msg("Comparison failed")
		s.respondCompareError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, p.resp)
}

// resolveRevision looks a revision up in the store, then in the repository
func (s *Server) resolveRevision(r *http.Request, rev string) (history.RevisionID, error) {
	commit, err := s.store.GetCommit(rev)
	if err != nil {
		return history.RevisionID{}, err
	}
	if commit != nil {
		return commit.Revision(), nil
	}
	if s.revisions == nil {
		return history.RevisionID{}, vcs.ErrNotFound
	}
	return s.revisions.ResolveRevision(r.Context(), rev)
}

func (s *Server) respondCompareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vcs.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "Revision or file not found")
	case errors.Is(err, vcs.ErrNoPredecessor):
		s.respondError(w, http.StatusNotFound, "Previous revision not found")
	default:
		s.respondError(w, http.StatusInternalServerError, "Comparison failed")
	}
}
