// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists extracted metric records in a local SQLite index
// so extraction runs can be searched without re-reading the output files.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nusduck/esg-llm-data-extract/internal/jsonl"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

const dbFile = "metrics.db"

// Store manages the metric index SQLite database.
type Store struct {
	db         *sql.DB
	outputDir  string
	maxResults int
}

// NewStore opens or creates the metric index at indexDir/metrics.db,
// creating the schema if it does not exist. outputDir is the raw model
// output directory used to resolve report metadata.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	indexDir := cfg.IndexDir
	if indexDir == "" {
		indexDir = "data/index"
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(indexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		outputDir:  cfg.Layout.OutputDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			company_name TEXT,
			report_title TEXT,
			reporting_period TEXT,
			workflow TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			code TEXT NOT NULL,
			item TEXT,
			value TEXT,
			unit TEXT,
			year TEXT,
			page INTEGER,
			snippet TEXT,
			scope TEXT,
			flag TEXT,
			flag_reason TEXT,
			classification TEXT,
			report_id TEXT NOT NULL REFERENCES reports(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_report_id ON metrics(report_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_code ON metrics(code)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			report_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over evidence snippets with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='metrics_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE metrics_fts USING fts5(snippet, content=metrics, content_rowid=rowid)`,
			`CREATE TRIGGER metrics_ai AFTER INSERT ON metrics BEGIN
				INSERT INTO metrics_fts(rowid, snippet) VALUES (new.rowid, new.snippet);
			END`,
			`CREATE TRIGGER metrics_ad AFTER DELETE ON metrics BEGIN
				INSERT INTO metrics_fts(metrics_fts, rowid, snippet) VALUES('delete', old.rowid, old.snippet);
			END`,
			`CREATE TRIGGER metrics_au AFTER UPDATE ON metrics BEGIN
				INSERT INTO metrics_fts(metrics_fts, rowid, snippet) VALUES('delete', old.rowid, old.snippet);
				INSERT INTO metrics_fts(rowid, snippet) VALUES (new.rowid, new.snippet);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of reports processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads generated JSONL files from generatedDir and populates the
// index. Unchanged files are skipped on subsequent runs; changed reports
// are re-indexed from scratch.
func (s *Store) Ingest(ctx context.Context, generatedDir string, workflow types.Workflow, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(generatedDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading generated directory %s: %w", generatedDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		reportID := strings.TrimSuffix(entry.Name(), ".jsonl")
		filePath := filepath.Join(generatedDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", reportID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE report_id = ?`, reportID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", reportID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		records, err := jsonl.LoadRecords(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", reportID, err)
			summary.Failed++
			continue
		}

		meta := s.loadReportMetadata(reportID, workflow)

		if err := s.ingestReport(ctx, reportID, workflow, records, meta, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", reportID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d metrics)\n", reportID, len(records))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d metrics)\n", reportID, len(records))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestReport(ctx context.Context, reportID string, workflow types.Workflow, records []types.MetricRecord, meta *types.ReportMetadata, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE report_id = ?`, reportID); err != nil {
			return fmt.Errorf("deleting old metrics: %w", err)
		}
	}

	if meta != nil {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reports (id, company_name, report_title, reporting_period, workflow)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				company_name=excluded.company_name, report_title=excluded.report_title,
				reporting_period=excluded.reporting_period, workflow=excluded.workflow`,
			reportID, meta.CompanyName, meta.ReportTitle, meta.ReportingPeriod, string(workflow),
		)
		if err != nil {
			return fmt.Errorf("upserting report: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO reports (id, workflow) VALUES (?, ?)`, reportID, string(workflow),
		)
		if err != nil {
			return fmt.Errorf("inserting report stub: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO metrics
			(id, code, item, value, unit, year, page, snippet, scope, flag, flag_reason, classification, report_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			stableID(reportID, rec), rec.Code, rec.Item,
			scalarText(rec.Value), rec.Unit, scalarText(rec.Year),
			rec.Page, rec.Snippet, string(rec.Scope), string(rec.Flag),
			rec.FlagReason, string(rec.Classification), reportID,
		)
		if err != nil {
			return fmt.Errorf("inserting metric %s: %w", rec.Code, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (report_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(report_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		reportID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// loadReportMetadata resolves document metadata from the raw workflow
// output: out_step_0.json for multi-step, the metadata field of out.json
// for single-step. Returns nil if unavailable.
func (s *Store) loadReportMetadata(reportID string, workflow types.Workflow) *types.ReportMetadata {
	if s.outputDir == "" {
		return nil
	}

	if workflow == types.WorkflowMultiStep {
		path := filepath.Join(s.outputDir, string(workflow), reportID, "out_step_0.json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var meta types.ReportMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil
		}
		return &meta
	}

	path := filepath.Join(s.outputDir, string(workflow), reportID, "out.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out types.ExtractionOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out.Metadata
}

// stableID generates a deterministic metric id covering every field that
// can distinguish two disclosures of the same code, including the value
// and snippet: a report may carry several Country-Specific values for one
// code and year, and those must each keep their own row.
func stableID(reportID string, rec types.MetricRecord) string {
	h := sha256.New()
	h.Write([]byte(reportID))
	h.Write([]byte(rec.Code))
	h.Write([]byte(scalarText(rec.Value)))
	h.Write([]byte(rec.Unit))
	h.Write([]byte(scalarText(rec.Year)))
	h.Write([]byte(rec.Snippet))
	h.Write([]byte(rec.Scope))
	h.Write([]byte(rec.Classification))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// scalarText renders an untyped JSON scalar for storage. Whole numbers
// lose the trailing ".0" a float decode would add.
func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
