package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

const (
	// multipartMemory is kept in memory while parsing uploads; the rest
	// spills to temporary files.
	multipartMemory = 8 << 20
	// formOverhead is allowed on top of the upload limit for the other
	// multipart fields.
	formOverhead = 1 << 20
	fileField    = "resourceFile"
)

// ResourceHandler serves the resource store under /resources.
type ResourceHandler struct {
	service    resourcestore.Service
	policy     resourcestore.UploadPolicy
	publicPath string
}

// ResourceHandlerOption configures a ResourceHandler
type ResourceHandlerOption func(*ResourceHandler)

// WithUploadPolicy bounds multipart request bodies by policy.MaxBytes.
func WithUploadPolicy(policy resourcestore.UploadPolicy) ResourceHandlerOption {
	return func(h *ResourceHandler) {
		h.policy = policy
	}
}

// WithPublicPath sets the path the handler is mounted at, used to render
// download URLs. Defaults to /api/v1/resources.
func WithPublicPath(path string) ResourceHandlerOption {
	return func(h *ResourceHandler) {
		h.publicPath = strings.TrimRight(path, "/")
	}
}

func NewResourceHandler(service resourcestore.Service, options ...ResourceHandlerOption) *ResourceHandler {
	h := &ResourceHandler{
		service:    service,
		policy:     resourcestore.DefaultUploadPolicy(),
		publicPath: "/api/v1/resources",
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// Routes returns the router for resource endpoints
func (h *ResourceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateResource)
	r.Get("/", h.ListResources)
	r.Get("/{id}", h.GetResource)
	r.Get("/{id}/download", h.DownloadResource)
	r.Delete("/{id}", h.DeleteResource)
	return r
}

// ResourceResponse is a Resource with its computed download URL.
type ResourceResponse struct {
	*resourcestore.Resource
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type resourceData struct {
	Resource ResourceResponse `json:"resource"`
}

// ResourceEnvelope wraps a single resource.
type ResourceEnvelope struct {
	Status string       `json:"status"`
	Data   resourceData `json:"data"`
}

// ListFilters echoes the filters of a list request
type ListFilters struct {
	Semester    string `json:"semester,omitempty"`
	Category    string `json:"category,omitempty"`
	SearchQuery string `json:"searchQuery,omitempty"`
}

// Pagination describes the page returned by a list request
type Pagination struct {
	TotalItems  int64       `json:"total_items"`
	TotalPages  int         `json:"total_pages"`
	CurrentPage int         `json:"current_page"`
	PerPage     int         `json:"per_page"`
	Filters     ListFilters `json:"filters"`
	SortBy      string      `json:"sort_by"`
}

// ListResponse is the body of GET /resources
type ListResponse struct {
	Status     string             `json:"status"`
	Data       []ResourceResponse `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

func (h *ResourceHandler) toResponse(res *resourcestore.Resource) ResourceResponse {
	resp := ResourceResponse{Resource: res}
	switch res.ResourceType {
	case resourcestore.ResourceTypeFile:
		resp.DownloadURL = fmt.Sprintf("%s/%s/download", h.publicPath, res.ID)
	case resourcestore.ResourceTypeLink:
		resp.DownloadURL = res.LinkURL
	}
	return resp
}

// CreateResource accepts multipart bodies for files and multipart, JSON or
// urlencoded bodies for links.
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	callerID := CallerID(r.Context())
	if callerID == "" {
		RenderFail(w, r, http.StatusUnauthorized, "User not authenticated for upload.")
		return
	}

	req, cleanup, err := h.decodeCreate(w, r)
	defer cleanup()
	if err != nil {
		RenderError(w, r, err)
		return
	}
	req.CallerID = callerID

	res, err := h.service.CreateResource(r.Context(), req)
	if err != nil {
		if !isClientError(err) {
			slog.Error("Failed to create resource", "caller_id", callerID, "err", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Status: StatusError, Message: "Failed to create resource."})
			return
		}
		RenderError(w, r, err)
		return
	}

	slog.Info("Resource created", "id", res.ID, "type", res.ResourceType, "caller_id", callerID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ResourceEnvelope{Status: StatusSuccess, Data: resourceData{Resource: h.toResponse(res)}})
}

func (h *ResourceHandler) decodeCreate(w http.ResponseWriter, r *http.Request) (resourcestore.CreateResourceRequest, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "multipart/form-data":
		return h.decodeMultipart(w, r)
	case render.GetContentType(mediaType) == render.ContentTypeJSON:
		var body createResourceBody
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			return resourcestore.CreateResourceRequest{}, noop, invalidBody("Invalid JSON body.")
		}
		return body.request(), noop, nil
	default:
		if err := r.ParseForm(); err != nil {
			return resourcestore.CreateResourceRequest{}, noop, invalidBody("Invalid form body.")
		}
		return formRequest(r), noop, nil
	}
}

func (h *ResourceHandler) decodeMultipart(w http.ResponseWriter, r *http.Request) (resourcestore.CreateResourceRequest, func(), error) {
	noop := func() {}
	if h.policy.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.policy.MaxBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			verr := &resourcestore.ValidationError{}
			verr.Add(fileField, h.policy.TooLargeMessage())
			return resourcestore.CreateResourceRequest{}, noop, verr
		}
		return resourcestore.CreateResourceRequest{}, noop, invalidBody("Invalid multipart body.")
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("Failed to remove multipart files", "err", err)
		}
	}

	req := formRequest(r)
	file, header, err := r.FormFile(fileField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return req, cleanup, invalidBody("Invalid multipart body.")
	default:
		req.File = &resourcestore.FileUpload{
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Reader:   file,
		}
		prev := cleanup
		cleanup = func() {
			file.Close()
			prev()
		}
	}
	return req, cleanup, nil
}

func formRequest(r *http.Request) resourcestore.CreateResourceRequest {
	return resourcestore.CreateResourceRequest{
		Title:        r.FormValue("title"),
		ResourceType: resourcestore.ResourceType(r.FormValue("resource_type")),
		Description:  r.FormValue("description"),
		SemesterTag:  r.FormValue("semester_tag"),
		Category:     r.FormValue("category"),
		Tags:         resourcestore.SplitTags(r.FormValue("tags")),
		LinkURL:      r.FormValue("link_url"),
	}
}

type createResourceBody struct {
	Title        string  `json:"title"`
	ResourceType string  `json:"resource_type"`
	Description  string  `json:"description"`
	SemesterTag  string  `json:"semester_tag"`
	Category     string  `json:"category"`
	Tags         tagList `json:"tags"`
	LinkURL      string  `json:"link_url"`
}

func (b createResourceBody) request() resourcestore.CreateResourceRequest {
	return resourcestore.CreateResourceRequest{
		Title:        b.Title,
		ResourceType: resourcestore.ResourceType(b.ResourceType),
		Description:  b.Description,
		SemesterTag:  b.SemesterTag,
		Category:     b.Category,
		Tags:         []string(b.Tags),
		LinkURL:      b.LinkURL,
	}
}

// tagList accepts either a JSON array of strings or a comma-separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tags must be a string or an array of strings")
	}
	*t = resourcestore.SplitTags(s)
	return nil
}

// ListResources returns a filtered page of resources.
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Semester:    q.Get("semester"),
		Category:    q.Get("category"),
		SearchQuery: q.Get("searchQuery"),
	}

	page, err := h.service.ListResources(r.Context(), resourcestore.ListResourcesRequest{
		SemesterTag: filters.Semester,
		Category:    filters.Category,
		Query:       filters.SearchQuery,
		Sort:        resourcestore.ParseSortOrder(q.Get("sortBy")),
		Page:        queryInt(q.Get("page")),
		PageSize:    queryInt(q.Get("limit")),
	})
	if err != nil {
		RenderError(w, r, err)
		return
	}

	data := make([]ResourceResponse, 0, len(page.Items))
	for _, res := range page.Items {
		data = append(data, h.toResponse(res))
	}
	render.JSON(w, r, ListResponse{
		Status: StatusSuccess,
		Data:   data,
		Pagination: Pagination{
			TotalItems:  page.Total,
			TotalPages:  page.TotalPages,
			CurrentPage: page.Page,
			PerPage:     page.PageSize,
			Filters:     filters,
			SortBy:      string(page.Sort),
		},
	})
}

// queryInt parses a positive integer, returning 0 for anything else so the
// service applies its default.
func queryInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// GetResource returns one resource.
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, ResourceEnvelope{Status: StatusSuccess, Data: resourceData{Resource: h.toResponse(res)}})
}

// DownloadResource streams a file resource as an attachment.
func (h *ResourceHandler) DownloadResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dl, err := h.service.DownloadResource(r.Context(), id)
	if err != nil {
		RenderError(w, r, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.MimeType)
	w.Header().Set("Content-Disposition", contentDisposition(dl.FileName))
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Body); err != nil {
		slog.Warn("Download stream interrupted", "id", id, "err", err)
	}
}

// contentDisposition always quotes the filename. Names outside printable
// ASCII get an underscore-substituted fallback plus an RFC 5987 filename*.
func contentDisposition(fileName string) string {
	if fileName == "" {
		fileName = "download"
	}
	var fallback strings.Builder
	ascii := true
	for _, r := range fileName {
		switch {
		case r == '"' || r == '\\':
			fallback.WriteByte('\\')
			fallback.WriteRune(r)
		case r < 0x20 || r > 0x7e:
			ascii = false
			fallback.WriteByte('_')
		default:
			fallback.WriteRune(r)
		}
	}
	v := `attachment; filename="` + fallback.String() + `"`
	if !ascii {
		v += "; filename*=UTF-8''" + encodeExtValue(fileName)
	}
	return v
}

func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

// DeleteResource removes a resource owned by the caller.
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	callerID := CallerID(r.Context())
	if err := h.service.DeleteResource(r.Context(), id, callerID); err != nil {
		RenderError(w, r, err)
		return
	}

	slog.Info("Resource deleted", "id", id, "caller_id", callerID)
	render.JSON(w, r, MessageResponse{Status: StatusSuccess, Message: "Resource deleted successfully."})
}

// badRequestError is a malformed request body.
type badRequestError struct {
	message string
}

func (e *badRequestError) Error() string {
	return e.message
}

func invalidBody(message string) error {
	return &badRequestError{message: message}
}

func isClientError(err error) bool {
	code, _ := errorResponse(err)
	return code < http.StatusInternalServerError
}
