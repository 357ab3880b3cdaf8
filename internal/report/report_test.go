// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListIDs(t *testing.T) {
	dir := t.TempDir()
	files := []string{"acme-2023.pdf", "globex_annual.PDF", "notes.txt", "zeta.pdf"}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "archive.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids, err := ListIDs(dir)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}

	want := []string{"acme-2023", "globex_annual", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids %v, want %d", len(ids), ids, len(want))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], id)
		}
	}
}

func TestListIDsMissingDir(t *testing.T) {
	_, err := ListIDs(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadBytes(t *testing.T) {
	dir := t.TempDir()
	content := []byte("%PDF-1.4 fake")
	if err := os.WriteFile(filepath.Join(dir, "rep.pdf"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := LoadBytes(dir, "rep")
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("got %q, want %q", data, content)
	}

	if _, err := LoadBytes(dir, "missing"); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestPath(t *testing.T) {
	got := Path("data/docs", "acme")
	want := filepath.Join("data/docs", "acme.pdf")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}
