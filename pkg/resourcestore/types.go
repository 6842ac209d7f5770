package resourcestore

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// ResourceType determines which of the file or link fields a Resource carries.
type ResourceType string

// Resource type constants (typed).
const (
	ResourceTypeFile ResourceType = "file"
	ResourceTypeLink ResourceType = "link"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	return t == ResourceTypeFile || t == ResourceTypeLink
}

// SortOrder selects the ordering of list results.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortOldest    SortOrder = "oldest"
	SortDownloads SortOrder = "downloads"
	// SortRelevance orders by text relevance; without a search query it
	// behaves like SortNewest.
	SortRelevance SortOrder = "relevance"
)

// ParseSortOrder maps a caller supplied value to a SortOrder, defaulting to SortNewest.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortOldest, SortDownloads, SortRelevance:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Resource is a stored reference to a file or a link, with metadata.
//
// File fields (BlobKey, OriginalFilename, FileSizeBytes, MimeType) are set iff
// ResourceType is ResourceTypeFile; LinkURL is set iff it is ResourceTypeLink.
type Resource struct {
	ID               uuid.UUID    `json:"id"`
	Title            string       `json:"title"`
	UploaderID       string       `json:"uploaderId"`
	ResourceType     ResourceType `json:"resourceType"`
	Category         string       `json:"category"`
	SemesterTag      string       `json:"semesterTag,omitempty"`
	Description      string       `json:"description,omitempty"`
	Tags             []string     `json:"tags"`
	BlobKey          string       `json:"-"`
	OriginalFilename string       `json:"originalFilename,omitempty"`
	FileSizeBytes    int64        `json:"fileSizeBytes,omitempty"`
	MimeType         string       `json:"mimeType,omitempty"`
	LinkURL          string       `json:"linkUrl,omitempty"`
	DownloadCount    int64        `json:"downloadCount"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// IsFile reports whether the resource carries blob content.
func (r *Resource) IsFile() bool {
	return r.ResourceType == ResourceTypeFile && r.BlobKey != ""
}

// ResourcePage is one page of a list query.
type ResourcePage struct {
	Items      []*Resource
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
	Sort       SortOrder
}

// Download is an open blob stream for a file resource. Callers must close Body.
type Download struct {
	Body     io.ReadCloser
	FileName string
	MimeType string
	Size     int64
	Resource *Resource
}
