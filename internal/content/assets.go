package content

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/mirelletran/fangallery-backend/pkg/storage/gcs"
)

// BucketAssets stores content assets in a Cloud Storage bucket, keyed by
// object path. The object path is the asset's file ID.
type BucketAssets struct {
	client *gcs.Client
	bucket string
}

// NewBucketAssets wires the asset store over a shared GCS client. An empty
// bucket uses the client's default.
func NewBucketAssets(client *gcs.Client, bucket string) (*BucketAssets, error) {
	if client == nil {
		return nil, errors.New("gcs client is required")
	}
	if bucket == "" {
		bucket = client.DefaultBucket()
	}
	return &BucketAssets{client: client, bucket: bucket}, nil
}

// Upload stores one asset under the taxonomy folder and returns its public
// URL and file ID.
func (b *BucketAssets) Upload(ctx context.Context, folder, name, contentType string, body io.Reader) (AssetRef, error) {
	object := objectPath(folder, name)
	result, err := b.client.Upload(ctx, b.bucket, object, contentType, body)
	if err != nil {
		return AssetRef{}, err
	}
	return AssetRef{URL: result.URL, FileID: result.FileID}, nil
}

// Delete removes the object behind a file ID. A file ID that is already
// gone is not an error.
func (b *BucketAssets) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return nil
	}
	return b.client.DeleteObject(ctx, b.bucket, fileID)
}

// objectPath builds a collision-free object name: the taxonomy folder, a
// short random prefix and the sanitized original filename.
func objectPath(folder, name string) string {
	prefix := uuid.NewString()[:8]
	clean := sanitizeFileName(name)
	if clean == "" {
		clean = "asset"
	}
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return prefix + "-" + clean
	}
	return folder + "/" + prefix + "-" + clean
}

// sanitizeFileName keeps object names flat and URL-safe.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}
	return strings.Trim(sb.String(), "._-")
}
