// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report locates and loads the source PDF documents. A report is
// identified by its PDF basename without the .pdf extension.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ListIDs returns the report ids for every .pdf file in docsDir, sorted.
// A missing or unreadable directory is an error.
func ListIDs(docsDir string) ([]string, error) {
	entries, err := os.ReadDir(docsDir)
	if err != nil {
		return nil, fmt.Errorf("reading docs directory %s: %w", docsDir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, filepath.Ext(name)))
	}

	sort.Strings(ids)
	return ids, nil
}

// Path returns the PDF path for a report id.
func Path(docsDir, id string) string {
	return filepath.Join(docsDir, id+".pdf")
}

// LoadBytes reads the raw PDF for a report id.
func LoadBytes(docsDir, id string) ([]byte, error) {
	path := Path(docsDir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	return data, nil
}

// ExtractText extracts plain text from the report page by page. Each page
// is preceded by a "[page N]" marker so downstream prompts can still ask
// the model for page provenance. Pages whose text cannot be decoded are
// skipped rather than failing the whole document.
func ExtractText(docsDir, id string) (string, error) {
	path := Path(docsDir, id)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat report %s: %w", path, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("parsing report %s: %w", path, err)
	}

	var b strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "[page %d]\n%s\n", i, text)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("report %s: no extractable text", path)
	}
	return b.String(), nil
}
