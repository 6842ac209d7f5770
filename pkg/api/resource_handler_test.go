package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
	"github.com/tendant/campus-gateway/pkg/resourcestore/repo/memory"
	memorystorage "github.com/tendant/campus-gateway/pkg/resourcestore/storage/memory"
)

type resourceTestEnv struct {
	router http.Handler
	blobs  *memorystorage.Backend
}

// setupResourceHandlerTest mounts a ResourceHandler over in-memory stores.
// Requests carrying an X-Test-Caller header are treated as authenticated.
func setupResourceHandlerTest(t *testing.T, policy resourcestore.UploadPolicy) *resourceTestEnv {
	t.Helper()
	blobs := memorystorage.New()
	service, err := resourcestore.New(
		resourcestore.WithRepository(memory.New()),
		resourcestore.WithBlobStore("memory", blobs),
		resourcestore.WithUploadPolicy(policy),
	)
	require.NoError(t, err)

	handler := NewResourceHandler(service, WithUploadPolicy(policy), WithPublicPath("/api/v1/resources"))
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-Caller"); id != "" {
				r = r.WithContext(WithCallerID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Mount("/api/v1/resources", handler.Routes())
	return &resourceTestEnv{router: router, blobs: blobs}
}

func (e *resourceTestEnv) do(req *http.Request, caller string) *httptest.ResponseRecorder {
	if caller != "" {
		req.Header.Set("X-Test-Caller", caller)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("resourceFile", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func fileFields() map[string]string {
	return map[string]string{
		"title":         "Operating Systems Notes",
		"resource_type": "file",
		"category":      "notes",
		"semester_tag":  "2024-fall",
		"tags":          "OS, Kernels ,",
	}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Resource map[string]any `json:"resource"`
	} `json:"data"`
	Errors []resourcestore.FieldViolation `json:"errors"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func createFile(t *testing.T, env *resourceTestEnv, caller string, content []byte) string {
	t.Helper()
	rr := env.do(multipartRequest(t, fileFields(), "notes.pdf", content), caller)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id, _ := decodeEnvelope(t, rr).Data.Resource["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestResourceHandler_CreateFile(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())

	rr := env.do(multipartRequest(t, fileFields(), "notes.pdf", []byte("%PDF-1.4 content")), "student-1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decodeEnvelope(t, rr)
	assert.Equal(t, "success", body.Status)
	res := body.Data.Resource
	assert.Equal(t, "Operating Systems Notes", res["title"])
	assert.Equal(t, "student-1", res["uploaderId"])
	assert.Equal(t, "file", res["resourceType"])
	assert.Equal(t, "notes.pdf", res["originalFilename"])
	assert.EqualValues(t, 16, res["fileSizeBytes"])
	assert.Equal(t, []any{"os", "kernels"}, res["tags"])
	assert.NotContains(t, res, "blobKey")
	assert.Equal(t, fmt.Sprintf("/api/v1/resources/%s/download", res["id"]), res["downloadUrl"])
	assert.Equal(t, 1, env.blobs.Len())
}

func TestResourceHandler_CreateRequiresCaller(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())

	rr := env.do(multipartRequest(t, fileFields(), "notes.pdf", []byte("x")), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "User not authenticated for upload.", decodeEnvelope(t, rr).Message)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestResourceHandler_CreateFileWithoutPayload(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())

	rr := env.do(multipartRequest(t, fileFields(), "", nil), "student-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, "fail", body.Status)
	assert.Equal(t, `File is required for resource type "file".`, body.Message)
}

func TestResourceHandler_CreateRejectsDisallowedExtension(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())

	rr := env.do(multipartRequest(t, fileFields(), "payload.exe", []byte("MZ")), "student-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeEnvelope(t, rr)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "resourceFile", body.Errors[0].Field)
	assert.Contains(t, body.Message, "File type not allowed!")
	assert.Equal(t, 0, env.blobs.Len())
}

func TestResourceHandler_CreateRejectsOversizedBody(t *testing.T) {
	policy := resourcestore.DefaultUploadPolicy()
	policy.MaxBytes = 1024
	env := setupResourceHandlerTest(t, policy)

	content := bytes.Repeat([]byte("a"), 2<<20)
	rr := env.do(multipartRequest(t, fileFields(), "big.txt", content), "student-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "fail", decodeEnvelope(t, rr).Status)
	assert.Equal(t, 0, env.blobs.Len())

	rr = env.do(multipartRequest(t, fileFields(), "small.txt", bytes.Repeat([]byte("a"), 2048)), "student-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "File too large. Maximum size is 1 KB.", decodeEnvelope(t, rr).Message)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestResourceHandler_CreateValidationMessages(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources",
		strings.NewReader(`{"title":"ab","resource_type":"link","category":"notes"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := env.do(req, "student-1")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, "fail", body.Status)
	assert.Equal(t,
		`Title must be at least 3 characters long., Link URL is required for resource type "link".`,
		body.Message)
	assert.Len(t, body.Errors, 2)
}

func TestResourceHandler_CreateLink(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())

	t.Run("json with tag array", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(`{
			"title": "Go Tour",
			"resource_type": "link",
			"category": "tutorials",
			"tags": ["Go", " Basics "],
			"link_url": "https://go.dev/tour"
		}`))
		req.Header.Set("Content-Type", "application/json")
		rr := env.do(req, "student-2")

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		res := decodeEnvelope(t, rr).Data.Resource
		assert.Equal(t, "https://go.dev/tour", res["linkUrl"])
		assert.Equal(t, "https://go.dev/tour", res["downloadUrl"])
		assert.Equal(t, []any{"go", "basics"}, res["tags"])
	})

	t.Run("json with tag string", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(
			`{"title":"Go Blog","resource_type":"link","category":"reading","tags":"go,blog","link_url":"https://go.dev/blog"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := env.do(req, "student-2")

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, []any{"go", "blog"}, decodeEnvelope(t, rr).Data.Resource["tags"])
	})

	t.Run("urlencoded", func(t *testing.T) {
		form := url.Values{
			"title":         {"Effective Go"},
			"resource_type": {"link"},
			"category":      {"reading"},
			"link_url":      {"https://go.dev/doc/effective_go"},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := env.do(req, "student-2")

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "link", decodeEnvelope(t, rr).Data.Resource["resourceType"])
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(`{"title":`))
		req.Header.Set("Content-Type", "application/json")
		rr := env.do(req, "student-2")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid JSON body.", decodeEnvelope(t, rr).Message)
	})

	assert.Equal(t, 0, env.blobs.Len())
}

func TestResourceHandler_GetResource(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())
	id := createFile(t, env, "student-1", []byte("hello"))

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources/"+id, nil), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, decodeEnvelope(t, rr).Data.Resource["id"])

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources/not-a-valid-id", nil), "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid resource ID format.", decodeEnvelope(t, rr).Message)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources/6f1c7c2e-3d6b-4d8e-9a59-0d6f3d2b8a11", nil), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Resource not found.", decodeEnvelope(t, rr).Message)
}

func TestResourceHandler_Download(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())
	content := []byte("%PDF-1.4 lecture slides")
	id := createFile(t, env, "student-1", content)

	for i := 1; i <= 2; i++ {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources/"+id+"/download", nil), "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, content, rr.Body.Bytes())
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="notes.pdf"`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, fmt.Sprint(len(content)), rr.Header().Get("Content-Length"))

		rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources/"+id, nil), "")
		assert.EqualValues(t, i, decodeEnvelope(t, rr).Data.Resource["downloadCount"])
	}
}

func TestResourceHandler_DownloadLinkIsNotFound(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(
		`{"title":"Go Tour","resource_type":"link","category":"tutorials","link_url":"https://go.dev/tour"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := env.do(req, "student-1")
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeEnvelope(t, rr).Data.Resource["id"].(string)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources/"+id+"/download", nil), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "File resource not found or invalid.", decodeEnvelope(t, rr).Message)
}

func TestResourceHandler_Delete(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())
	id := createFile(t, env, "owner", []byte("bytes"))
	path := "/api/v1/resources/" + id

	rr := env.do(httptest.NewRequest(http.MethodDelete, path, nil), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(httptest.NewRequest(http.MethodDelete, path, nil), "intruder")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "You are not authorized to delete this resource.", decodeEnvelope(t, rr).Message)
	assert.Equal(t, 1, env.blobs.Len())

	rr = env.do(httptest.NewRequest(http.MethodDelete, path, nil), "owner")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Resource deleted successfully.", body.Message)
	assert.Equal(t, 0, env.blobs.Len())

	rr = env.do(httptest.NewRequest(http.MethodGet, path, nil), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResourceHandler_List(t *testing.T) {
	env := setupResourceHandlerTest(t, resourcestore.DefaultUploadPolicy())
	for i := 0; i < 7; i++ {
		category := "notes"
		if i%2 == 1 {
			category = "exams"
		}
		body := fmt.Sprintf(`{"title":"Resource %d","resource_type":"link","category":%q,"link_url":"https://example.com/%d"}`, i, category, i)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, http.StatusCreated, env.do(req, "student-1").Code)
	}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources?category=notes&page=2&limit=3&semester=all&sortBy=oldest", nil), "")
	require.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Status     string           `json:"status"`
		Data       []map[string]any `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, "success", list.Status)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "notes", list.Data[0]["category"])
	assert.Equal(t, "Resource 6", list.Data[0]["title"])
	assert.Equal(t, Pagination{
		TotalItems:  4,
		TotalPages:  2,
		CurrentPage: 2,
		PerPage:     3,
		Filters:     ListFilters{Semester: "all", Category: "notes"},
		SortBy:      "oldest",
	}, list.Pagination)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/resources?page=abc&limit=-4", nil), "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Pagination.CurrentPage)
	assert.Equal(t, 10, list.Pagination.PerPage)
	assert.Equal(t, "newest", list.Pagination.SortBy)
	assert.Len(t, list.Data, 7)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="notes.pdf"`, contentDisposition("notes.pdf"))
	assert.Equal(t, `attachment; filename="my notes.pdf"`, contentDisposition("my notes.pdf"))
	assert.Equal(t, `attachment; filename="say \"hi\".txt"`, contentDisposition(`say "hi".txt`))
	assert.Equal(t, `attachment; filename="_bung.pdf"; filename*=UTF-8''%C3%BCbung.pdf`, contentDisposition("übung.pdf"))
	assert.Equal(t, `attachment; filename="__.txt"; filename*=UTF-8''%E8%AF%BE%E4%BB%B6.txt`, contentDisposition("课件.txt"))
	assert.Equal(t, `attachment; filename="download"`, contentDisposition(""))

	_, params, err := mime.ParseMediaType(contentDisposition("übung notes.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "übung notes.pdf", params["filename"])
}

func TestTagListUnmarshal(t *testing.T) {
	var tags tagList
	require.NoError(t, json.Unmarshal([]byte(`"a, b"`), &tags))
	assert.Equal(t, tagList{"a", "b"}, tags)
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &tags))
	assert.Equal(t, tagList{"x", "y"}, tags)
	assert.Error(t, json.Unmarshal([]byte(`42`), &tags))
}
