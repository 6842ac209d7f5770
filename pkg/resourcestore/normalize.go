package resourcestore

import (
	"mime"
	"path/filepath"
	"strings"
)

// SplitTags splits a comma-separated tag list and normalizes it.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims and lower-cases tags and drops empty entries. Order and
// repeats are kept.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NormalizeSemester maps the "all" sentinel and blank values to no filter.
func NormalizeSemester(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// FileExtension returns the lower-cased extension of name without the dot.
func FileExtension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// DetectMimeType returns declared when it is set and more specific than
// application/octet-stream, else the type registered for the file extension,
// else application/octet-stream.
func DetectMimeType(fileName, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" && declared != octetStream {
		return declared
	}
	if ext := filepath.Ext(fileName); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return t
		}
	}
	return octetStream
}

const octetStream = "application/octet-stream"

// normalizeCreate trims free-text fields and drops the fields that do not
// belong to the declared resource type.
func normalizeCreate(req CreateResourceRequest) CreateResourceRequest {
	req.CallerID = strings.TrimSpace(req.CallerID)
	req.Title = strings.TrimSpace(req.Title)
	req.ResourceType = ResourceType(strings.ToLower(strings.TrimSpace(string(req.ResourceType))))
	req.Description = strings.TrimSpace(req.Description)
	req.SemesterTag = strings.TrimSpace(req.SemesterTag)
	req.Category = strings.TrimSpace(req.Category)
	req.LinkURL = strings.TrimSpace(req.LinkURL)
	req.Tags = NormalizeTags(req.Tags)
	switch req.ResourceType {
	case ResourceTypeLink:
		req.File = nil
	case ResourceTypeFile:
		req.LinkURL = ""
	}
	return req
}
