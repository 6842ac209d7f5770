package resourcestore

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slices"
)

// linkURLPattern accepts absolute http(s) URLs with a dotted host.
var linkURLPattern = regexp.MustCompile(`^https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?&/=]*$`)

// ValidLinkURL reports whether s is an acceptable link resource target.
func ValidLinkURL(s string) bool {
	return linkURLPattern.MatchString(s)
}

// Default upload policy values.
const (
	DefaultMaxUploadBytes int64 = 10 << 20
)

// DefaultAllowedExtensions is the default file extension allow-list.
var DefaultAllowedExtensions = []string{
	"pdf", "doc", "docx", "txt", "ppt", "pptx", "xls", "xlsx", "zip", "png", "jpg", "jpeg", "gif",
}

// UploadPolicy bounds what may be written to the blob store.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// DefaultUploadPolicy returns the policy used when none is configured.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes:          DefaultMaxUploadBytes,
		AllowedExtensions: slices.Clone(DefaultAllowedExtensions),
	}
}

// AllowsExtension reports whether fileName carries an allow-listed extension.
// An empty allow-list permits everything.
func (p UploadPolicy) AllowsExtension(fileName string) bool {
	if len(p.AllowedExtensions) == 0 {
		return true
	}
	ext := FileExtension(fileName)
	return ext != "" && slices.Contains(p.AllowedExtensions, ext)
}

// TooLargeMessage is the violation reported for oversized uploads.
func (p UploadPolicy) TooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %s.", formatBytes(p.MaxBytes))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(createResourceStructLevel, CreateResourceRequest{})
	return v
}

func createResourceStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateResourceRequest)
	if req.ResourceType != ResourceTypeLink {
		return
	}
	switch {
	case req.LinkURL == "":
		sl.ReportError(req.LinkURL, "link_url", "LinkURL", "required_link", "")
	case !ValidLinkURL(req.LinkURL):
		sl.ReportError(req.LinkURL, "link_url", "LinkURL", "link_url", "")
	}
}

var violationMessages = map[string]string{
	"title.required":         "Resource title is required.",
	"title.min":              "Title must be at least 3 characters long.",
	"resource_type.required": "resource_type field is missing from request.",
	"resource_type.oneof":    `Invalid resource_type. Must be "file" or "link".`,
	"description.max":        "Description cannot exceed 1000 characters.",
	"category.required":      "Category is required.",
	"link_url.required_link": `Link URL is required for resource type "link".`,
	"link_url.link_url":      "Please fill a valid URL",
}

// validateCreate checks every field of a normalized request and returns a
// *ValidationError listing all violations.
func (s *service) validateCreate(req CreateResourceRequest) error {
	verr := &ValidationError{}
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			msg, ok := violationMessages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = fmt.Sprintf("%s failed on the %s rule", fe.Field(), fe.Tag())
			}
			verr.Add(fe.Field(), msg)
		}
	}
	if req.File != nil && !s.policy.AllowsExtension(req.File.FileName) {
		verr.Add("resourceFile", fmt.Sprintf("File type not allowed! Allowed: %s",
			strings.Join(s.policy.AllowedExtensions, ", ")))
	}
	if req.File != nil && s.policy.MaxBytes > 0 && req.File.Size > s.policy.MaxBytes {
		verr.Add("resourceFile", s.policy.TooLargeMessage())
	}
	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}
