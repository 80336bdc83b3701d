package remote

import (
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"

	"github.com/rotacerta/rota-certa/internal/models"
)

// BlobStore holds receipt images. Upload failures are logged by callers and
// never block the owning record's save.
type BlobStore interface {
	Upload(ctx context.Context, path, filename string, source io.Reader) (models.Receipt, error)
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// GridFSBlobStore stores receipts in a GridFS bucket, keyed by their
// storage path.
type GridFSBlobStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSBlobStore creates a receipt store over the given database.
func NewGridFSBlobStore(db *mongo.Database) (*GridFSBlobStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create gridfs bucket: %w", err)
	}
	return &GridFSBlobStore{bucket: bucket}, nil
}

// Upload streams a receipt blob into the bucket under the given path.
func (s *GridFSBlobStore) Upload(ctx context.Context, path, filename string, source io.Reader) (models.Receipt, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetWriteDeadline(deadline)
	}
	if err := s.bucket.UploadFromStreamWithID(path, filename, source); err != nil {
		return models.Receipt{}, fmt.Errorf("failed to upload receipt %s: %w", path, err)
	}
	return models.Receipt{
		Filename: filename,
		Path:     path,
		URL:      "/api/receipts/" + path,
	}, nil
}

// Download opens a receipt blob for reading.
func (s *GridFSBlobStore) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetReadDeadline(deadline)
	}
	stream, err := s.bucket.OpenDownloadStream(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt %s: %w", path, err)
	}
	return stream, nil
}

// Delete removes a receipt blob.
func (s *GridFSBlobStore) Delete(ctx context.Context, path string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetWriteDeadline(deadline)
	}
	if err := s.bucket.Delete(path); err != nil {
		return fmt.Errorf("failed to delete receipt %s: %w", path, err)
	}
	return nil
}
