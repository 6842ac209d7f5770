package resourcestore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// UploadWithParams uploads content under params.ObjectKey
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download opens the content stored under objectKey.
	// It returns ErrBlobNotFound when nothing is stored there.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes content. It returns ErrBlobNotFound when nothing is stored there.
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams carries the parameters of a blob upload.
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// ResourceQuery filters, orders and pages a repository listing.
type ResourceQuery struct {
	SemesterTag string
	Category    string
	// Terms are the normalized search tokens; any match qualifies.
	Terms  []string
	Sort   SortOrder
	Limit  int
	Offset int
}

// Repository defines the interface for resource metadata persistence
type Repository interface {
	// CreateResource stores a new record and sets its timestamps.
	CreateResource(ctx context.Context, resource *Resource) error
	GetResource(ctx context.Context, id uuid.UUID) (*Resource, error)
	// ListResources returns one page of matching records and the total match count.
	ListResources(ctx context.Context, query ResourceQuery) ([]*Resource, int64, error)
	// IncrementDownloadCount atomically adds one and returns the new count.
	IncrementDownloadCount(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteResource(ctx context.Context, id uuid.UUID) error
}

// EventSink receives resource lifecycle notifications
type EventSink interface {
	ResourceCreated(ctx context.Context, resource *Resource) error
	ResourceDownloaded(ctx context.Context, resource *Resource) error
	ResourceDeleted(ctx context.Context, resource *Resource) error
}
