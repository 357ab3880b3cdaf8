// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/pdf" {
			t.Errorf("Accept = %q, want application/pdf", r.Header.Get("Accept"))
		}
		w.Write([]byte("%PDF-1.4 fetched report"))
	}))
	defer ts.Close()

	docsDir := t.TempDir()
	if err := Fetch(context.Background(), ts.Client(), ts.URL, docsDir, "acme", false); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(Path(docsDir, "acme"))
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("content = %q, want PDF bytes", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(docsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("docs dir has %d entries, want only the PDF", len(entries))
	}
}

func TestFetchRefusesOverwrite(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("%PDF-1.4 new"))
	}))
	defer ts.Close()

	docsDir := t.TempDir()
	existing := Path(docsDir, "acme")
	if err := os.WriteFile(existing, []byte("%PDF-1.4 old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Fetch(context.Background(), ts.Client(), ts.URL, docsDir, "acme", false); err == nil {
		t.Fatal("expected error without overwrite")
	}

	if err := Fetch(context.Background(), ts.Client(), ts.URL, docsDir, "acme", true); err != nil {
		t.Fatalf("Fetch with overwrite: %v", err)
	}
	data, _ := os.ReadFile(existing)
	if !strings.Contains(string(data), "new") {
		t.Errorf("file not replaced: %q", data)
	}
}

func TestFetchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	docsDir := t.TempDir()
	err := Fetch(context.Background(), ts.Client(), ts.URL, docsDir, "ghost", false)
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("err = %v, want HTTP 404", err)
	}
	if _, statErr := os.Stat(filepath.Join(docsDir, "ghost.pdf")); statErr == nil {
		t.Error("failed fetch should not leave a file behind")
	}
}
