package storage

import (
	"context"
	"io"
)

// BlobStore is bucketed binary storage for original uploads, intermediate
// PDFs and assembled audio. Implementations: GridFS (default) and GCS.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (id string, err error)
	Get(ctx context.Context, id string) ([]byte, error)
	OpenRead(ctx context.Context, id string) (io.ReadCloser, error)
}
