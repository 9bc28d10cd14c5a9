package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func newTestS3Storage(t *testing.T, endpoint string) *S3Storage {
	t.Helper()
	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(filepath.Join(t.TempDir(), "data"), cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	return storage
}

func TestNewS3Storage(t *testing.T) {
	storage := newTestS3Storage(t, "http://localhost:4566/")

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want %v", storage.bucket, "test-bucket")
	}
	if storage.region != "us-east-1" {
		t.Errorf("region = %v, want %v", storage.region, "us-east-1")
	}
	if got := storage.objectURL("a/b.json"); got != "http://localhost:4566/test-bucket/a/b.json" {
		t.Errorf("objectURL() = %v", got)
	}

	storage.endpoint = ""
	if got := storage.objectURL("a/b.json"); got != "https://test-bucket.s3.us-east-1.amazonaws.com/a/b.json" {
		t.Errorf("objectURL() = %v", got)
	}
}

func TestS3Storage_OpenLocalPath(t *testing.T) {
	storage := newTestS3Storage(t, "http://localhost:4566")
	ctx := context.Background()

	path, err := storage.Save(ctx, "rules.json", bytes.NewReader([]byte("local data")))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "local data" {
		t.Errorf("got %q, want %q", string(content), "local data")
	}
}

func TestS3Storage_Open_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		if r.URL.Path != "/rules-bucket/book/rules.toml" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/toml")
		_, _ = w.Write([]byte("[[check_entries]]"))
	}))
	defer server.Close()

	storage := newTestS3Storage(t, server.URL)

	reader, err := storage.Open(context.Background(), "s3://rules-bucket/book/rules.toml")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "[[check_entries]]" {
		t.Errorf("got %q", string(content))
	}
}

func TestS3Storage_Open_MissingObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
	}))
	defer server.Close()

	storage := newTestS3Storage(t, server.URL)

	_, err := storage.Open(context.Background(), "s3://rules-bucket/missing.json")
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if !strings.Contains(err.Error(), "s3://rules-bucket/missing.json") {
		t.Errorf("error should name the location, got %v", err)
	}
}

func TestS3Storage_Publish_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if !strings.Contains(r.URL.Path, "/projects/job-1.json") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != `{"title":"t"}` {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage := newTestS3Storage(t, server.URL)

	url, err := storage.Publish(context.Background(), "projects/job-1.json", bytes.NewReader([]byte(`{"title":"t"}`)))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	expectedURL := server.URL + "/test-bucket/projects/job-1.json"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}
