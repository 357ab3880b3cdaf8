// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupStore builds a workspace with two generated reports, one with
// single-step metadata on disk, and returns an open store.
func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()

	generated := filepath.Join(dir, "generated", "single_step")
	writeFile(t, filepath.Join(generated, "acme.jsonl"),
		`{"code":"E1-TEC","item":"Total energy consumption","value":120.5,"unit":"MWh","year":2023,"page":12,"snippet":"total energy consumption was 120.5 MWh","scope":"Global","flag":"Full","classification":"Operational Consumption"}`+"\n"+
			`{"code":"E1-REC","item":"Renewable energy consumption","value":44,"unit":"MWh","year":2023,"page":13,"snippet":"renewable sources supplied 44 MWh","scope":"Global","flag":"Full","classification":"Operational Consumption"}`+"\n")
	writeFile(t, filepath.Join(generated, "globex.jsonl"),
		`{"code":"E1-TEC","value":-1,"year":2022,"snippet":"energy figures were not disclosed"}`+"\n")

	writeFile(t, filepath.Join(dir, "output", "single_step", "acme", "out.json"),
		`{"metadata":{"company_name":"Acme Corp","report_title":"Sustainability Report 2023","reporting_period":"FY2023"},"metrics":[]}`)

	cfg := types.IndexConfig{
		Layout: types.LayoutConfig{
			OutputDir: filepath.Join(dir, "output"),
		},
		IndexDir: filepath.Join(dir, "index"),
	}
	s, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s, generated
}

func TestIngestAndQuery(t *testing.T) {
	s, generated := setupStore(t)
	ctx := context.Background()

	summary, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Indexed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 indexed", summary)
	}

	// Structured filter by code returns both reports' rows.
	results, err := s.Query(ctx, QueryOptions{Code: "E1-TEC"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results for code filter, want 2", len(results))
	}

	// Report filter joins in the metadata loaded from out.json.
	results, err = s.Query(ctx, QueryOptions{ReportID: "acme"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results for acme, want 2", len(results))
	}
	if results[0].CompanyName != "Acme Corp" {
		t.Errorf("company = %q, want Acme Corp", results[0].CompanyName)
	}

	// Whole numbers are stored without a float suffix.
	var rec *QueryResult
	for i := range results {
		if results[i].Code == "E1-REC" {
			rec = &results[i]
		}
	}
	if rec == nil || rec.Value != "44" || rec.Year != "2023" {
		t.Errorf("E1-REC row = %+v, want value 44 year 2023", rec)
	}
}

func TestQueryFullText(t *testing.T) {
	s, generated := setupStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := s.Query(ctx, QueryOptions{Query: "renewable"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].Code != "E1-REC" {
		t.Fatalf("full-text results = %+v, want the renewable row", results)
	}

	// Combined full-text plus year filter.
	results, err = s.Query(ctx, QueryOptions{Query: "energy", Year: "2022"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].ReportID != "globex" {
		t.Fatalf("filtered results = %+v, want only globex", results)
	}
}

func TestIngestSkipsUnchanged(t *testing.T) {
	s, generated := setupStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	var out strings.Builder
	summary, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, &out)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.Skipped != 2 || summary.Indexed != 0 || summary.Updated != 0 {
		t.Fatalf("summary = %+v, want everything skipped", summary)
	}
	if !strings.Contains(out.String(), "skipped acme") {
		t.Errorf("output missing skip line:\n%s", out.String())
	}
}

func TestIngestReindexesChangedFile(t *testing.T) {
	s, generated := setupStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Replace acme with a single corrected record and bump the mod time.
	path := filepath.Join(generated, "acme.jsonl")
	writeFile(t, path,
		`{"code":"E1-TEC","value":130,"unit":"MWh","year":2023,"snippet":"restated total of 130 MWh"}`+"\n")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.Updated != 1 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v, want 1 updated 1 skipped", summary)
	}

	// The old rows are gone, not accumulated.
	results, err := s.Query(ctx, QueryOptions{ReportID: "acme"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].Value != "130" {
		t.Fatalf("results = %+v, want single restated row", results)
	}
}

func TestIngestKeepsDistinctValuesForSameCode(t *testing.T) {
	dir := t.TempDir()
	generated := filepath.Join(dir, "generated", "single_step")

	// Two country breakdowns of the same code, year, and scope: both rows
	// must survive indexing.
	writeFile(t, filepath.Join(generated, "acme.jsonl"),
		`{"code":"E1-ELC","value":100,"unit":"MWh","year":2023,"snippet":"Germany consumed 100 MWh","scope":"Country-Specific"}`+"\n"+
			`{"code":"E1-ELC","value":250,"unit":"MWh","year":2023,"snippet":"France consumed 250 MWh","scope":"Country-Specific"}`+"\n")

	s, err := NewStore(types.IndexConfig{IndexDir: filepath.Join(dir, "index")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := s.Query(ctx, QueryOptions{Code: "E1-ELC"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("index holds %d rows for E1-ELC, want 2", len(results))
	}
	values := map[string]bool{results[0].Value: true, results[1].Value: true}
	if !values["100"] || !values["250"] {
		t.Errorf("values = %v, want 100 and 250", values)
	}
}

func TestQueryLimit(t *testing.T) {
	s, generated := setupStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, generated, types.WorkflowSingleStep, io.Discard); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := s.Query(ctx, QueryOptions{MaxResults: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want limit of 1", len(results))
	}
}

func TestIngestMissingDirectory(t *testing.T) {
	s, _ := setupStore(t)
	if _, err := s.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope"), types.WorkflowSingleStep, io.Discard); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
