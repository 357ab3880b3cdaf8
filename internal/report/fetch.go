// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nusduck/esg-llm-data-extract/internal/httputil"
)

const fetchUserAgent = "esg-extract/1.0"

// Fetch downloads a report PDF from url into docsDir under the given id.
// The download goes through a temporary file so a failed transfer never
// leaves a truncated PDF behind. An existing report is not overwritten
// unless overwrite is set. Rate-limited responses are retried with backoff.
func Fetch(ctx context.Context, client *http.Client, url, docsDir, id string, overwrite bool) error {
	destPath := Path(docsDir, id)

	if !overwrite {
		if _, err := os.Stat(destPath); err == nil {
			return fmt.Errorf("report %s already exists (use --overwrite to replace)", id)
		}
	}
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return fmt.Errorf("creating docs directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
