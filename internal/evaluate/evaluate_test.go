// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

func floatPtr(f float64) *float64 { return &f }

func TestNormalizeFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"float", 120.5, floatPtr(120.5)},
		{"int", 42, floatPtr(42)},
		{"numeric string", "981", floatPtr(981)},
		{"decimal string", " 15.2 ", floatPtr(15.2)},
		{"sentinel float", -1.0, nil},
		{"sentinel string", "-1", nil},
		{"non-numeric string", "n/a", nil},
		{"nil", nil, nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeFloat(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("NormalizeFloat(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("NormalizeFloat(%v) = %f, want %f", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		expected  types.MetricRecord
		generated types.MetricRecord
		strict    bool
		want      bool
	}{
		{
			name:      "code and value match",
			expected:  types.MetricRecord{Code: "E1-TEC", Value: 120.5, Unit: "MWh"},
			generated: types.MetricRecord{Code: "E1-TEC", Value: "120.5", Unit: "GWh"},
			want:      true,
		},
		{
			name:      "code mismatch",
			expected:  types.MetricRecord{Code: "E1-TEC", Value: 120.5},
			generated: types.MetricRecord{Code: "E1-REC", Value: 120.5},
			want:      false,
		},
		{
			name:      "value mismatch",
			expected:  types.MetricRecord{Code: "E1-TEC", Value: 120.5},
			generated: types.MetricRecord{Code: "E1-TEC", Value: 121.0},
			want:      false,
		},
		{
			name:      "both undisclosed",
			expected:  types.MetricRecord{Code: "E1-GEC", Value: -1},
			generated: types.MetricRecord{Code: "E1-GEC", Value: "-1"},
			want:      true,
		},
		{
			name:      "disclosed vs undisclosed",
			expected:  types.MetricRecord{Code: "E1-GEC", Value: 10},
			generated: types.MetricRecord{Code: "E1-GEC", Value: -1},
			want:      false,
		},
		{
			name:      "strict rejects unit mismatch",
			expected:  types.MetricRecord{Code: "E1-TEC", Value: 1, Unit: "MWh", Year: 2023},
			generated: types.MetricRecord{Code: "E1-TEC", Value: 1, Unit: "GWh", Year: 2023},
			strict:    true,
			want:      false,
		},
		{
			name:      "strict accepts trimmed unit and string year",
			expected:  types.MetricRecord{Code: "E1-TEC", Value: 1, Unit: " MWh ", Year: 2023},
			generated: types.MetricRecord{Code: "E1-TEC", Value: 1, Unit: "MWh", Year: "2023"},
			strict:    true,
			want:      true,
		},
		{
			name:      "strict rejects year mismatch",
			expected:  types.MetricRecord{Code: "E1-TEC", Value: 1, Unit: "MWh", Year: 2023},
			generated: types.MetricRecord{Code: "E1-TEC", Value: 1, Unit: "MWh", Year: 2022},
			strict:    true,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.expected, tt.generated, tt.strict); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeJSONL(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCompareFilesFullCoverage(t *testing.T) {
	dir := t.TempDir()
	lines := []string{
		`{"code": "E1-TEC", "value": 120.5, "unit": "MWh"}`,
		`{"code": "E1-REC", "value": 44, "unit": "MWh"}`,
		`{"code": "E1-GEC", "value": -1}`,
	}
	expectedPath := filepath.Join(dir, "expected.jsonl")
	generatedPath := filepath.Join(dir, "generated.jsonl")
	writeJSONL(t, expectedPath, lines...)
	writeJSONL(t, generatedPath, lines...)

	matches, total, err := CompareFiles(expectedPath, generatedPath, false)
	if err != nil {
		t.Fatalf("CompareFiles: %v", err)
	}
	if total != 3 || len(matches) != 3 {
		t.Fatalf("matched %d of %d, want 3 of 3", len(matches), total)
	}
	if got := Coverage(len(matches), total); got != 100 {
		t.Errorf("coverage = %.2f, want 100", got)
	}
}

func TestCompareFilesPartialCoverage(t *testing.T) {
	dir := t.TempDir()
	expectedPath := filepath.Join(dir, "expected.jsonl")
	generatedPath := filepath.Join(dir, "generated.jsonl")
	writeJSONL(t, expectedPath,
		`{"code": "E1-TEC", "value": 120.5}`,
		`{"code": "E1-REC", "value": 44}`,
		`{"code": "E1-GEC", "value": 9}`,
		`{"code": "E1-FUE", "value": 3}`,
	)
	writeJSONL(t, generatedPath,
		`{"code": "E1-TEC", "value": 120.5}`,
		`{"code": "E1-REC", "value": 44}`,
		`{"code": "E1-GEC", "value": 999}`,
	)

	matches, total, err := CompareFiles(expectedPath, generatedPath, false)
	if err != nil {
		t.Fatalf("CompareFiles: %v", err)
	}
	// 2 of 4 expected records matched: (M-N)/M = 50%.
	if total != 4 || len(matches) != 2 {
		t.Fatalf("matched %d of %d, want 2 of 4", len(matches), total)
	}
	if got := Coverage(len(matches), total); got != 50 {
		t.Errorf("coverage = %.2f, want 50", got)
	}
}

func TestCompareFilesDuplicateGeneratedNotDoubleCounted(t *testing.T) {
	dir := t.TempDir()
	expectedPath := filepath.Join(dir, "expected.jsonl")
	generatedPath := filepath.Join(dir, "generated.jsonl")
	writeJSONL(t, expectedPath,
		`{"code": "E1-TEC", "value": 10}`,
	)
	writeJSONL(t, generatedPath,
		`{"code": "E1-TEC", "value": 10}`,
		`{"code": "E1-TEC", "value": 10}`,
	)

	matches, total, err := CompareFiles(expectedPath, generatedPath, false)
	if err != nil {
		t.Fatalf("CompareFiles: %v", err)
	}
	if total != 1 || len(matches) != 1 {
		t.Errorf("matched %d of %d, want exactly 1 of 1", len(matches), total)
	}
}

func TestCoverageZeroExpected(t *testing.T) {
	if got := Coverage(0, 0); got != 0 {
		t.Errorf("Coverage(0, 0) = %.2f, want 0", got)
	}
}

func TestEvaluateAll(t *testing.T) {
	dir := t.TempDir()
	generatedDir := filepath.Join(dir, "generated")
	expectedDir := filepath.Join(dir, "expected")
	evalDir := filepath.Join(dir, "evaluation")

	writeJSONL(t, filepath.Join(generatedDir, "acme.jsonl"),
		`{"code": "E1-TEC", "value": 120.5}`,
		`{"code": "E1-REC", "value": 44}`,
	)
	writeJSONL(t, filepath.Join(expectedDir, "acme.jsonl"),
		`{"code": "E1-TEC", "value": 120.5}`,
		`{"code": "E1-REC", "value": 45}`,
	)
	// Generated file without ground truth: skipped, batch continues.
	writeJSONL(t, filepath.Join(generatedDir, "orphan.jsonl"),
		`{"code": "E1-TEC", "value": 1}`,
	)

	var out bytes.Buffer
	summary, err := EvaluateAll(generatedDir, expectedDir, evalDir, false, &out)
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if summary.Evaluated != 1 || summary.Missing != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 evaluated, 1 missing", summary)
	}

	coverage, err := os.ReadFile(filepath.Join(evalDir, "coverage.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "acme.jsonl: 50.00%\n"; string(coverage) != want {
		t.Errorf("coverage.txt = %q, want %q", coverage, want)
	}

	matches, err := os.ReadFile(filepath.Join(evalDir, "matches.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(matches), "\n"); got != 1 {
		t.Errorf("matches.jsonl has %d lines, want 1", got)
	}
	if !strings.Contains(string(matches), `"filename":"acme.jsonl"`) {
		t.Errorf("matches.jsonl missing filename: %s", matches)
	}
}

func TestEvaluateAllMissingGeneratedDir(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	_, err := EvaluateAll(filepath.Join(dir, "nope"), dir, filepath.Join(dir, "eval"), false, &out)
	if err == nil {
		t.Fatal("expected error for missing generated directory")
	}
}
