package resourcestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tendant/campus-gateway/pkg/resourcestore/objectkey"
)

// service implements the Service interface
type service struct {
	repository  Repository
	blobStore   BlobStore
	backendName string
	keyGen      objectkey.Generator
	eventSink   EventSink
	policy      UploadPolicy
	validate    *validator.Validate
	logger      *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage backend; name is reported in storage errors
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		s.backendName = name
		s.blobStore = store
	}
}

// WithKeyGenerator overrides the blob key generator
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keyGen = gen
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithUploadPolicy sets the upload size limit and extension allow-list
func WithUploadPolicy(policy UploadPolicy) Option {
	return func(s *service) {
		s.policy = policy
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keyGen:    objectkey.NewDefaultGenerator(),
		eventSink: NewNoopEventSink(),
		policy:    DefaultUploadPolicy(),
		validate:  newValidator(),
		logger:    slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	s.logger = s.logger.With("component", "resourcestore")

	return s, nil
}

func (s *service) CreateResource(ctx context.Context, req CreateResourceRequest) (res *Resource, err error) {
	defer func() { observeOperation("create", err) }()

	req = normalizeCreate(req)
	if req.CallerID == "" {
		return nil, ErrIdentityRequired
	}
	if req.ResourceType == ResourceTypeFile && (req.File == nil || req.File.Reader == nil) {
		return nil, ErrPayloadRequired
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	res = &Resource{
		ID:           uuid.New(),
		Title:        req.Title,
		UploaderID:   req.CallerID,
		ResourceType: req.ResourceType,
		Category:     req.Category,
		SemesterTag:  req.SemesterTag,
		Description:  req.Description,
		Tags:         req.Tags,
		LinkURL:      req.LinkURL,
	}

	if res.ResourceType == ResourceTypeFile {
		if err := s.storeBlob(ctx, res, req.File); err != nil {
			return nil, err
		}
	}

	if err := s.repository.CreateResource(ctx, res); err != nil {
		if res.BlobKey != "" {
			s.removeBlob(ctx, res.BlobKey)
		}
		return nil, &ResourceError{ResourceID: res.ID, Op: "create", Err: err}
	}

	if err := s.eventSink.ResourceCreated(ctx, res); err != nil {
		s.logger.Warn("event sink failed", "event", "created", "resource_id", res.ID, "err", err)
	}
	return res, nil
}

// storeBlob streams the upload under a generated key and records the file
// fields on res. The stored size is the number of bytes read, capped by the
// upload policy.
func (s *service) storeBlob(ctx context.Context, res *Resource, file *FileUpload) error {
	key := s.keyGen.GenerateKey(res.ID, file.FileName)
	mimeType := DetectMimeType(file.FileName, file.MimeType)
	counter := &countingReader{r: file.Reader, limit: s.policy.MaxBytes}

	err := s.blobStore.UploadWithParams(ctx, counter, UploadParams{ObjectKey: key, MimeType: mimeType})
	if counter.exceeded {
		s.removeBlob(ctx, key)
		verr := &ValidationError{}
		verr.Add("resourceFile", s.policy.TooLargeMessage())
		return verr
	}
	if err != nil {
		s.removeBlob(ctx, key)
		return &StorageError{Backend: s.backendName, Key: key, Op: "upload", Err: err}
	}

	resourceUploadBytes.Add(float64(counter.n))
	res.BlobKey = key
	res.OriginalFilename = file.FileName
	res.FileSizeBytes = counter.n
	res.MimeType = mimeType
	return nil
}

func (s *service) removeBlob(ctx context.Context, key string) {
	if err := s.blobStore.Delete(ctx, key); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logger.Warn("failed to remove blob", "backend", s.backendName, "key", key, "err", err)
	}
}

func (s *service) ListResources(ctx context.Context, req ListResourcesRequest) (page *ResourcePage, err error) {
	defer func() { observeOperation("list", err) }()

	pageNum := req.Page
	if pageNum < 1 {
		pageNum = DefaultPage
	}
	size := req.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	query := ResourceQuery{
		SemesterTag: NormalizeSemester(req.SemesterTag),
		Category:    req.Category,
		Terms:       Tokenize(req.Query),
		Sort:        ParseSortOrder(string(req.Sort)),
		Limit:       size,
		Offset:      (pageNum - 1) * size,
	}
	if query.Sort == SortRelevance && len(query.Terms) == 0 {
		query.Sort = SortNewest
	}

	items, total, err := s.repository.ListResources(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	return &ResourcePage{
		Items:      items,
		Total:      total,
		Page:       pageNum,
		PageSize:   size,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
		Sort:       query.Sort,
	}, nil
}

func (s *service) GetResource(ctx context.Context, id string) (*Resource, error) {
	resourceID, err := ParseResourceID(id)
	if err != nil {
		return nil, err
	}
	return s.repository.GetResource(ctx, resourceID)
}

func (s *service) DownloadResource(ctx context.Context, id string) (dl *Download, err error) {
	defer func() { observeOperation("download", err) }()

	resourceID, err := ParseResourceID(id)
	if err != nil {
		return nil, err
	}
	res, err := s.repository.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !res.IsFile() {
		return nil, ErrFileUnavailable
	}

	body, err := s.blobStore.Download(ctx, res.BlobKey)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.logger.Warn("blob missing for file resource", "resource_id", res.ID, "key", res.BlobKey)
			return nil, ErrFileUnavailable
		}
		return nil, &StorageError{Backend: s.backendName, Key: res.BlobKey, Op: "download", Err: err}
	}

	count, err := s.repository.IncrementDownloadCount(ctx, resourceID)
	if err != nil {
		body.Close()
		if errors.Is(err, ErrResourceNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, &ResourceError{ResourceID: resourceID, Op: "download", Err: err}
	}
	res.DownloadCount = count

	if err := s.eventSink.ResourceDownloaded(ctx, res); err != nil {
		s.logger.Warn("event sink failed", "event", "downloaded", "resource_id", res.ID, "err", err)
	}

	return &Download{
		Body:     body,
		FileName: res.OriginalFilename,
		MimeType: res.MimeType,
		Size:     res.FileSizeBytes,
		Resource: res,
	}, nil
}

func (s *service) DeleteResource(ctx context.Context, id, callerID string) (err error) {
	defer func() { observeOperation("delete", err) }()

	if callerID == "" {
		return ErrIdentityRequired
	}
	resourceID, err := ParseResourceID(id)
	if err != nil {
		return err
	}
	res, err := s.repository.GetResource(ctx, resourceID)
	if err != nil {
		return err
	}
	if res.UploaderID != callerID {
		return ErrForbidden
	}

	if res.BlobKey != "" {
		s.removeBlob(ctx, res.BlobKey)
	}

	if err := s.repository.DeleteResource(ctx, resourceID); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return &ResourceError{ResourceID: resourceID, Op: "delete", Err: err}
	}

	if err := s.eventSink.ResourceDeleted(ctx, res); err != nil {
		s.logger.Warn("event sink failed", "event", "deleted", "resource_id", res.ID, "err", err)
	}
	return nil
}

// ParseResourceID parses a canonical resource identifier.
func ParseResourceID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil || len(id) != 36 {
		return uuid.Nil, ErrInvalidResourceID
	}
	return parsed, nil
}

type countingReader struct {
	r        io.Reader
	n        int64
	limit    int64
	exceeded bool
}

var errUploadTooLarge = errors.New("upload exceeds size limit")

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		c.exceeded = true
		return n, errUploadTooLarge
	}
	return n, err
}
