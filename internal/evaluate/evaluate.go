// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores generated metric records against ground-truth
// labels and reports per-report coverage.
package evaluate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nusduck/esg-llm-data-extract/internal/jsonl"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// NormalizeFloat coerces a JSON value to a float. Numeric strings are
// parsed; the -1 sentinel (metric not disclosed) and anything unparseable
// normalize to nil.
func NormalizeFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if f == -1 {
		return nil
	}
	return &f
}

// floatsEqual treats two absent values as equal: an undisclosed metric in
// both files is still the same finding.
func floatsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Match reports whether a generated record reproduces an expected one.
// The default comparison checks the metric code and the normalized value.
// Strict mode additionally requires the trimmed unit and the normalized
// year to agree.
func Match(expected, generated types.MetricRecord, strict bool) bool {
	if expected.Code != generated.Code {
		return false
	}
	if !floatsEqual(NormalizeFloat(expected.Value), NormalizeFloat(generated.Value)) {
		return false
	}
	if !strict {
		return true
	}
	if strings.TrimSpace(expected.Unit) != strings.TrimSpace(generated.Unit) {
		return false
	}
	return floatsEqual(NormalizeFloat(expected.Year), NormalizeFloat(generated.Year))
}

// MatchPair couples an expected record with the generated record that
// reproduced it.
type MatchPair struct {
	Expected  types.MetricRecord `json:"expected"`
	Generated types.MetricRecord `json:"generated"`
}

// CompareFiles loads the expected and generated JSONL files and pairs
// records. Each expected record matches at most one generated record, so
// duplicated model output cannot inflate coverage. It returns the match
// pairs and the number of expected records.
func CompareFiles(expectedPath, generatedPath string, strict bool) ([]MatchPair, int, error) {
	expected, err := jsonl.LoadRecords(expectedPath)
	if err != nil {
		return nil, 0, fmt.Errorf("loading expected records: %w", err)
	}
	generated, err := jsonl.LoadRecords(generatedPath)
	if err != nil {
		return nil, 0, fmt.Errorf("loading generated records: %w", err)
	}

	used := make([]bool, len(generated))
	var matches []MatchPair
	for _, exp := range expected {
		for i, gen := range generated {
			if used[i] || !Match(exp, gen, strict) {
				continue
			}
			used[i] = true
			matches = append(matches, MatchPair{Expected: exp, Generated: gen})
			break
		}
	}

	return matches, len(expected), nil
}

// Coverage returns the matched fraction as a percentage. Zero expected
// records yields zero.
func Coverage(matched, expected int) float64 {
	if expected == 0 {
		return 0
	}
	return float64(matched) / float64(expected) * 100
}

// Summary holds counts from a batch evaluation run.
type Summary struct {
	Evaluated int
	Missing   int
	Failed    int
}

// Total returns the number of generated files considered.
func (s Summary) Total() int {
	return s.Evaluated + s.Missing + s.Failed
}

// HasFailures reports whether any file failed to evaluate.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// matchLine is one line of matches.jsonl.
type matchLine struct {
	Filename  string             `json:"filename"`
	Generated types.MetricRecord `json:"generated"`
	Expected  types.MetricRecord `json:"expected"`
}

// EvaluateAll scores every generated JSONL file in generatedDir against the
// same-named file in expectedDir. It writes two artifacts under evalDir:
// matches.jsonl, one matched pair per line, and coverage.txt, one
// "<file>: NN.NN%" line per report. Reports without ground truth are
// logged and skipped; a failing report does not stop the batch.
func EvaluateAll(generatedDir, expectedDir, evalDir string, strict bool, w io.Writer) (Summary, error) {
	entries, err := os.ReadDir(generatedDir)
	if err != nil {
		return Summary{}, fmt.Errorf("reading generated directory %s: %w", generatedDir, err)
	}

	if err := os.MkdirAll(evalDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating evaluation directory: %w", err)
	}

	matchFile, err := os.Create(filepath.Join(evalDir, "matches.jsonl"))
	if err != nil {
		return Summary{}, fmt.Errorf("creating matches file: %w", err)
	}
	defer matchFile.Close()

	coverageFile, err := os.Create(filepath.Join(evalDir, "coverage.txt"))
	if err != nil {
		return Summary{}, fmt.Errorf("creating coverage file: %w", err)
	}
	defer coverageFile.Close()

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jsonl") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var summary Summary
	enc := json.NewEncoder(matchFile)

	for _, name := range names {
		generatedPath := filepath.Join(generatedDir, name)
		expectedPath := filepath.Join(expectedDir, name)

		if _, err := os.Stat(expectedPath); err != nil {
			log.Warn().Str("file", name).Msg("no ground-truth file, skipping")
			summary.Missing++
			continue
		}

		matches, expectedCount, err := CompareFiles(expectedPath, generatedPath, strict)
		if err != nil {
			log.Error().Str("file", name).Err(err).Msg("evaluation failed")
			summary.Failed++
			continue
		}

		for _, m := range matches {
			if err := enc.Encode(matchLine{Filename: name, Generated: m.Generated, Expected: m.Expected}); err != nil {
				return summary, fmt.Errorf("writing matches: %w", err)
			}
		}

		coverage := Coverage(len(matches), expectedCount)
		fmt.Fprintf(coverageFile, "%s: %.2f%%\n", name, coverage)
		fmt.Fprintf(w, "%s: %d/%d matched (%.2f%%)\n", name, len(matches), expectedCount, coverage)
		summary.Evaluated++
	}

	fmt.Fprintf(w, "\nevaluated: %d, missing ground truth: %d, failed: %d\n",
		summary.Evaluated, summary.Missing, summary.Failed)

	return summary, nil
}
