package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "ab/abcdef.txt"

	data := []byte("hello fs")
	if err := backend.UploadWithParams(ctx, bytes.NewReader(data), resourcestore.UploadParams{ObjectKey: key}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("download mismatch: %q", string(got))
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	// empty shard directory is cleaned up, the root is kept
	if _, err := os.Stat(filepath.Join(tmp, "ab")); !os.IsNotExist(err) {
		t.Fatalf("expected shard dir removed, stat err=%v", err)
	}
	if _, err := os.Stat(tmp); err != nil {
		t.Fatalf("base dir removed: %v", err)
	}
}

func TestFSBackend_NotFound(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	if _, err := backend.Download(ctx, "missing.pdf"); !errors.Is(err, resourcestore.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
	if err := backend.Delete(ctx, "missing.pdf"); !errors.Is(err, resourcestore.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: filepath.Join(tmp, "root")})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"../outside.txt", "/etc/passwd", "a/../../x"} {
		err := backend.UploadWithParams(ctx, bytes.NewReader([]byte("x")), resourcestore.UploadParams{ObjectKey: key})
		if err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	if _, err := os.Stat(filepath.Join(tmp, "outside.txt")); !os.IsNotExist(err) {
		t.Fatalf("file written outside root")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestFSBackend_FailedUploadLeavesNothing(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	err = backend.UploadWithParams(context.Background(), failingReader{}, resourcestore.UploadParams{ObjectKey: "ab/x.pdf"})
	if err == nil {
		t.Fatalf("expected upload error")
	}
	entries, _ := os.ReadDir(filepath.Join(tmp, "ab"))
	if len(entries) != 0 {
		t.Fatalf("expected no files, found %d", len(entries))
	}
}
