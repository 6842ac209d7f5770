package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// fakeS3 serves a path-style subset of the S3 API from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestBackend(t *testing.T, prefix string) (*Backend, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	backend, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "resources",
		Prefix:          prefix,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        srv.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return backend, fake
}

func TestS3Backend_Configuration(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")
}

func TestS3Backend_UploadDownloadDelete(t *testing.T) {
	backend, fake := newTestBackend(t, "node_resources")
	ctx := context.Background()

	err := backend.UploadWithParams(ctx, bytes.NewReader([]byte("%PDF-1.4")), resourcestore.UploadParams{
		ObjectKey: "ab/abc.pdf",
		MimeType:  "application/pdf",
	})
	require.NoError(t, err)

	fake.mu.Lock()
	stored, ok := fake.objects["resources/node_resources/ab/abc.pdf"]
	fake.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4", string(stored))

	rc, err := backend.Download(ctx, "ab/abc.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, backend.Delete(ctx, "ab/abc.pdf"))
	_, err = backend.Download(ctx, "ab/abc.pdf")
	assert.ErrorIs(t, err, resourcestore.ErrBlobNotFound)
}

func TestS3Backend_KeyPrefix(t *testing.T) {
	b := &Backend{config: Config{Prefix: "uploads/"}}
	assert.Equal(t, "uploads/ab/x.pdf", b.key("ab/x.pdf"))

	b = &Backend{}
	assert.Equal(t, "ab/x.pdf", b.key("ab/x.pdf"))
}

func TestS3Backend_ServerSideEncryption(t *testing.T) {
	params := resourcestore.UploadParams{ObjectKey: "ab/notes.pdf", MimeType: "application/pdf"}

	tests := []struct {
		name      string
		config    Config
		wantSSE   types.ServerSideEncryption
		wantKMSID string
	}{
		{"disabled", Config{}, "", ""},
		{"aes256", Config{EnableSSE: true, SSEAlgorithm: SSEAlgorithmAES256}, types.ServerSideEncryptionAes256, ""},
		{"kms", Config{EnableSSE: true, SSEAlgorithm: SSEAlgorithmKMS, SSEKMSKeyID: "alias/resources"}, types.ServerSideEncryptionAwsKms, "alias/resources"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{bucket: "resources", config: tt.config}
			input := b.putObjectInput(strings.NewReader("data"), params)

			assert.Equal(t, "resources", aws.ToString(input.Bucket))
			assert.Equal(t, "ab/notes.pdf", aws.ToString(input.Key))
			assert.Equal(t, "application/pdf", aws.ToString(input.ContentType))
			assert.Equal(t, tt.wantSSE, input.ServerSideEncryption)
			assert.Equal(t, tt.wantKMSID, aws.ToString(input.SSEKMSKeyId))
		})
	}
}

func TestS3Backend_RejectsUnknownSSEAlgorithm(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "resources", EnableSSE: true, SSEAlgorithm: "DES"})
	assert.Error(t, err)
}
