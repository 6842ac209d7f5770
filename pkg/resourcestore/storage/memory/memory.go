package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// Backend is an in-memory implementation of the resourcestore.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

// UploadWithParams uploads content with parameters
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params resourcestore.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	b.mimeTypes[params.ObjectKey] = mimeType
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, resourcestore.ErrBlobNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return resourcestore.ErrBlobNotFound
	}

	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	return nil
}

// Len returns the number of stored blobs
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// MimeType returns the content type recorded for objectKey
func (b *Backend) MimeType(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.mimeTypes[objectKey]
	return m, ok
}
