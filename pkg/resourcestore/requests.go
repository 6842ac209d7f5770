package resourcestore

import "io"

// FileUpload is the payload of a file resource.
type FileUpload struct {
	FileName string
	MimeType string
	// Size is the declared size, or 0 when unknown. The stored size is
	// always the number of bytes actually read.
	Size   int64
	Reader io.Reader
}

// CreateResourceRequest contains parameters for creating a resource.
// Field names in validation messages follow the form tags.
type CreateResourceRequest struct {
	CallerID     string       `form:"-" validate:"-"`
	Title        string       `form:"title" validate:"required,min=3"`
	ResourceType ResourceType `form:"resource_type" validate:"required,oneof=file link"`
	Description  string       `form:"description" validate:"max=1000"`
	SemesterTag  string       `form:"semester_tag"`
	Category     string       `form:"category" validate:"required"`
	Tags         []string     `form:"tags" validate:"-"`
	LinkURL      string       `form:"link_url"`
	File         *FileUpload  `form:"resourceFile" validate:"-"`
}

// ListResourcesRequest contains parameters for listing resources
type ListResourcesRequest struct {
	// SemesterTag filters by semester; empty or "all" disables the filter.
	SemesterTag string
	Category    string
	Query       string
	Sort        SortOrder
	Page        int
	PageSize    int
}
