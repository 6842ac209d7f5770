package resourcestore

import "context"

// Service is the resource store API.
type Service interface {
	// CreateResource validates and stores a file or link resource owned by req.CallerID.
	CreateResource(ctx context.Context, req CreateResourceRequest) (*Resource, error)

	// ListResources returns a filtered, ordered page of resources.
	ListResources(ctx context.Context, req ListResourcesRequest) (*ResourcePage, error)

	// GetResource returns one resource by id.
	GetResource(ctx context.Context, id string) (*Resource, error)

	// DownloadResource opens a file resource for reading and counts the download.
	DownloadResource(ctx context.Context, id string) (*Download, error)

	// DeleteResource removes a resource and its content. Only the uploader may delete.
	DeleteResource(ctx context.Context, id, callerID string) error
}
