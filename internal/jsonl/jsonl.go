// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonl converts extraction output between JSON and newline-delimited
// JSON (one record per line), the format the evaluation stage consumes.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// Convert reads a JSON file and writes one compact JSON object per line to
// outputPath, creating parent directories as needed. The single-step
// workflow unwraps the top-level "metrics" array; multi-step output is
// already a top-level array. Element order is preserved.
func Convert(inputPath, outputPath string, workflow types.Workflow) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	var records []json.RawMessage
	if workflow == types.WorkflowSingleStep {
		var wrapper struct {
			Metrics []json.RawMessage `json:"metrics"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return fmt.Errorf("parsing %s: %w", inputPath, err)
		}
		if wrapper.Metrics == nil {
			return fmt.Errorf("parsing %s: missing \"metrics\" array", inputPath)
		}
		records = wrapper.Metrics
	} else {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parsing %s: %w", inputPath, err)
		}
	}

	return Write(outputPath, records)
}

// Write writes records to path as newline-delimited compact JSON.
func Write(path string, records []json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Reset()
		if err := json.Compact(&buf, rec); err != nil {
			return fmt.Errorf("compacting record: %w", err)
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a JSONL file and returns one raw JSON document per line.
// Malformed lines are logged and skipped; a missing file is an error.
func Load(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			log.Warn().Str("file", path).Int("line", lineNo).Msg("skipping malformed JSONL line")
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// LoadRecords reads a JSONL file of metric records. Lines that do not
// decode as a metric record are logged and skipped.
func LoadRecords(path string) ([]types.MetricRecord, error) {
	raw, err := Load(path)
	if err != nil {
		return nil, err
	}

	records := make([]types.MetricRecord, 0, len(raw))
	for i, line := range raw {
		var rec types.MetricRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn().Str("file", path).Int("record", i+1).Err(err).Msg("skipping undecodable metric record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
