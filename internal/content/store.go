package content

import (
	"context"
	"io"
	"time"
)

// Lister is the read surface of a remote record store consumed by the
// syncer.
type Lister[T any] interface {
	List(ctx context.Context) ([]T, error)
}

// SnapshotStore is the fallback cache surface: a string blob per logical key.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// AssetRef identifies one stored asset.
type AssetRef struct {
	URL          string
	ThumbnailURL string
	FileID       string
}

// AssetStore is the upload/delete surface of the CDN bucket.
type AssetStore interface {
	Upload(ctx context.Context, folder, name, contentType string, body io.Reader) (AssetRef, error)
	Delete(ctx context.Context, fileID string) error
}
