package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/history-lens/internal/compare"
	"github.com/history-lens/internal/history"
	"github.com/history-lens/internal/vcs"
	"github.com/rs/zerolog"
)

// Store is the subset of blob operations the cache needs
type Store interface {
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	Upload(ctx context.Context, name string, content []byte) error
}

// Cache serves snapshots from blob storage and fills it from the inner
// snapshotter on a miss. Snapshots are keyed by full revision hash, so
// stored entries are never invalidated.
type Cache struct {
	inner  compare.Snapshotter
	store  Store
	prefix string
	logger zerolog.Logger
}

var _ compare.Snapshotter = (*Cache)(nil)

// NewCache wraps inner with a blob-backed snapshot cache
func NewCache(inner compare.Snapshotter, store Store, prefix string, logger zerolog.Logger) *Cache {
	return &Cache{
		inner:  inner,
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With().Str("component", "blobcache").Logger(),
	}
}

// Snapshot returns the cached snapshot, fetching and uploading it on a miss
func (c *Cache) Snapshot(ctx context.Context, rev history.RevisionID, file history.FileReference) (*vcs.Handle, error) {
	key := c.key(rev, file)

	body, err := c.store.Download(ctx, key)
	switch {
	case err == nil:
		defer body.Close()
		h, err := vcs.NewHandle(rev, file, body)
		if err == nil {
			c.logger.Debug().Str("blob", key).Msg("Snapshot cache hit")
			return h, nil
		}
		c.logger.Warn().Err(err).Str("blob", key).Msg("Failed to read cached snapshot")
	case errors.Is(err, ErrBlobNotFound):
	default:
		c.logger.Warn().Err(err).Str("blob", key).Msg("Snapshot cache unavailable")
	}

	h, err := c.inner.Snapshot(ctx, rev, file)
	if err != nil {
		return nil, err
	}

	content, err := h.ReadAll()
	if err != nil {
		c.logger.Warn().Err(err).Str("path", h.Path).Msg("Failed to read snapshot for upload")
		return h, nil
	}
	if err := c.store.Upload(ctx, key, content); err != nil {
		c.logger.Warn().Err(err).Str("blob", key).Msg("Failed to cache snapshot")
	}
	return h, nil
}

// Predecessor is not cached
func (c *Cache) Predecessor(ctx context.Context, rev history.RevisionID, file history.FileReference) (history.RevisionID, error) {
	return c.inner.Predecessor(ctx, rev, file)
}

func (c *Cache) key(rev history.RevisionID, file history.FileReference) string {
	p := strings.TrimPrefix(file.Path, "/")
	if c.prefix == "" {
		return path.Join(rev.Full, p)
	}
	return path.Join(c.prefix, rev.Full, p)
}
