package ports

import "context"

// UploadResult describes a stored object and its public URL.
type UploadResult struct {
	Key string
	URL string
}

// Uploader is the object storage capability the pipeline depends on. The
// storage client itself lives outside this core; the pipeline only uploads
// buffers and deletes by key or prefix.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (UploadResult, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	URL(key string) string
}
