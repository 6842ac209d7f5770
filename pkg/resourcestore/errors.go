package resourcestore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrResourceNotFound indicates a resource was not found
	ErrResourceNotFound = errors.New("resource not found")

	// ErrFileUnavailable indicates the resource is not a file or its blob is gone
	ErrFileUnavailable = fmt.Errorf("%w: file resource not found or invalid", ErrResourceNotFound)

	// ErrInvalidResourceID indicates the identifier is not a well-formed resource id
	ErrInvalidResourceID = errors.New("invalid resource id format")

	// ErrIdentityRequired indicates the call carried no authenticated principal
	ErrIdentityRequired = errors.New("caller identity required")

	// ErrForbidden indicates the caller may not perform the operation
	ErrForbidden = errors.New("not authorized to modify this resource")

	// ErrPayloadRequired indicates a file resource was declared without file content
	ErrPayloadRequired = errors.New(`file is required for resource type "file"`)

	// ErrDuplicateResource indicates a uniqueness constraint was violated
	ErrDuplicateResource = errors.New("resource already exists")

	// ErrBlobNotFound indicates a blob key has no content in the blob store
	ErrBlobNotFound = errors.New("blob not found")
)

// FieldViolation describes one invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of a request.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, ", ")
}

// Add appends a violation.
func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
}

// ResourceError represents an error related to resource metadata operations
type ResourceError struct {
	ResourceID uuid.UUID
	Op         string
	Err        error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource operation %s failed for resource %s: %v", e.Op, e.ResourceID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
