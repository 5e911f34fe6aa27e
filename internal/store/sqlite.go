package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/history-lens/internal/history"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and initializes the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commits (
		hash TEXT PRIMARY KEY,
		short_hash TEXT NOT NULL,
		author TEXT,
		committed_at DATETIME,
		subject TEXT
	);

	CREATE TABLE IF NOT EXISTS file_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		commit_hash TEXT NOT NULL REFERENCES commits(hash) ON DELETE CASCADE,
		path TEXT NOT NULL,
		previous_path TEXT,
		status TEXT NOT NULL,
		UNIQUE(commit_hash, path)
	);

	CREATE INDEX IF NOT EXISTS idx_commits_committed_at ON commits(committed_at);
	CREATE INDEX IF NOT EXISTS idx_file_changes_commit ON file_changes(commit_hash);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertCommit stores a commit and replaces its file changes
func (s *SQLiteStore) UpsertCommit(commit *Commit, changes []FileChange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO commits (hash, short_hash, author, committed_at, subject)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			short_hash = excluded.short_hash,
			author = excluded.author,
			committed_at = excluded.committed_at,
			subject = excluded.subject
	`, commit.Hash, commit.ShortHash, commit.Author, commit.CommittedAt.UTC(), commit.Subject)
	if err != nil {
		return fmt.Errorf("failed to upsert commit: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM file_changes WHERE commit_hash = ?`, commit.Hash); err != nil {
		return fmt.Errorf("failed to clear file changes: %w", err)
	}

	for _, ch := range changes {
		_, err := tx.Exec(`
			INSERT INTO file_changes (commit_hash, path, previous_path, status)
			VALUES (?, ?, ?, ?)
		`, commit.Hash, ch.Path, nullString(ch.PreviousPath), string(ch.Status))
		if err != nil {
			return fmt.Errorf("failed to insert file change %s: %w", ch.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	commit.FileCount = len(changes)
	return nil
}

// GetCommit retrieves a commit by full hash or unique hash prefix
func (s *SQLiteStore) GetCommit(hash string) (*Commit, error) {
	if hash == "" {
		return nil, nil
	}

	rows, err := s.db.Query(commitSelect+`
		WHERE substr(c.hash, 1, length(?)) = ?
		GROUP BY c.hash
		LIMIT 2
	`, hash, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	defer rows.Close()

	commits, err := scanCommits(rows)
	if err != nil {
		return nil, err
	}

	for _, c := range commits {
		if c.Hash == hash {
			return &c, nil
		}
	}
	if len(commits) != 1 {
		// missing or ambiguous prefix
		return nil, nil
	}
	return &commits[0], nil
}

// HasCommit reports whether a commit is already stored
func (s *SQLiteStore) HasCommit(hash string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM commits WHERE hash = ?`, hash).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check commit: %w", err)
	}
	return n > 0, nil
}

// ListCommits returns the most recent commits with their file counts
func (s *SQLiteStore) ListCommits(limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(commitSelect+`
		GROUP BY c.hash
		ORDER BY c.committed_at DESC, c.hash
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	defer rows.Close()

	return scanCommits(rows)
}

// LatestCommit returns the most recently committed stored commit
func (s *SQLiteStore) LatestCommit() (*Commit, error) {
	commits, err := s.ListCommits(1)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}
	return &commits[0], nil
}

// GetFileChanges returns all files touched by a commit
func (s *SQLiteStore) GetFileChanges(commitHash string) ([]FileChange, error) {
	rows, err := s.db.Query(`
		SELECT commit_hash, path, previous_path, status
		FROM file_changes WHERE commit_hash = ?
		ORDER BY path
	`, commitHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get file changes: %w", err)
	}
	defer rows.Close()

	var changes []FileChange
	for rows.Next() {
		ch, err := scanFileChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *ch)
	}
	return changes, rows.Err()
}

// GetFileChange returns the change of a single path in a commit
func (s *SQLiteStore) GetFileChange(commitHash, path string) (*FileChange, error) {
	row := s.db.QueryRow(`
		SELECT commit_hash, path, previous_path, status
		FROM file_changes WHERE commit_hash = ? AND path = ?
	`, commitHash, path)

	ch, err := scanFileChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ch, err
}

const commitSelect = `
	SELECT c.hash, c.short_hash, c.author, c.committed_at, c.subject, COUNT(f.id)
	FROM commits c
	LEFT JOIN file_changes f ON f.commit_hash = c.hash
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFileChange(row scanner) (*FileChange, error) {
	var ch FileChange
	var previous sql.NullString
	var status string

	if err := row.Scan(&ch.CommitHash, &ch.Path, &previous, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan file change row: %w", err)
	}
	ch.PreviousPath = previous.String
	ch.Status = history.ChangeStatus(status)
	return &ch, nil
}

// scanCommits is a helper to scan multiple commit rows
func scanCommits(rows *sql.Rows) ([]Commit, error) {
	var commits []Commit
	for rows.Next() {
		var c Commit
		var author, subject, committedAt sql.NullString

		if err := rows.Scan(&c.Hash, &c.ShortHash, &author, &committedAt, &subject, &c.FileCount); err != nil {
			return nil, fmt.Errorf("failed to scan commit row: %w", err)
		}

		c.Author = author.String
		c.Subject = subject.String
		if committedAt.Valid {
			c.CommittedAt = parseTime(committedAt.String)
		}

		commits = append(commits, c)
	}
	return commits, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseTime parses a SQLite datetime string into time.Time
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	// go-sqlite3 stores time.Time in the first format
	formats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
