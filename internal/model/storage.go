package model

import (
	"context"
	"io"
)

// BlobStorage keeps ciphertexts too large to be stored inline in the notes table.
type BlobStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
