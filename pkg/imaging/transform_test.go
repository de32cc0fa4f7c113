package imaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRemoveObjectUploadFields(t *testing.T) {
	var gotTransformation, gotResourceType, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotTransformation = r.FormValue("transformation")
		gotResourceType = r.FormValue("resource_type")
		if _, header, err := r.FormFile("file"); err == nil {
			gotFilename = header.Filename
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://media.example.com/edited.png",
		})
	}))
	defer srv.Close()

	c, err := NewTransformClient(srv.URL, "key-1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	url, err := c.RemoveObject(context.Background(), strings.NewReader("img"), "photo.png", "watch")
	if err != nil {
		t.Fatalf("remove object: %v", err)
	}
	if url != "https://media.example.com/edited.png" {
		t.Fatalf("unexpected url: %q", url)
	}
	if gotTransformation != "gen_remove:prompt_watch" {
		t.Fatalf("transformation field: %q", gotTransformation)
	}
	if gotResourceType != "image" {
		t.Fatalf("resource_type field: %q", gotResourceType)
	}
	if gotFilename != "photo.png" {
		t.Fatalf("filename: %q", gotFilename)
	}
}

func TestTransformErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid credentials"},
		})
	}))
	defer srv.Close()

	c, _ := NewTransformClient(srv.URL, "bad")
	_, err := c.RemoveObject(context.Background(), strings.NewReader("img"), "photo.png", "watch")
	if err == nil || !strings.Contains(err.Error(), "invalid credentials") {
		t.Fatalf("expected provider message, got %v", err)
	}
}

func TestTransformRequiresResultURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c, _ := NewTransformClient(srv.URL, "")
	if _, err := c.RemoveObject(context.Background(), strings.NewReader("img"), "photo.png", "watch"); err == nil {
		t.Fatal("expected error for missing secure_url")
	}
}

func TestTransformRequiresUploadURL(t *testing.T) {
	if _, err := NewTransformClient("  ", ""); err == nil {
		t.Fatal("expected constructor error for empty upload URL")
	}
}
