// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared configuration and record types used by
// every stage of the extraction pipeline.
package types

// Workflow identifies the prompting strategy used for extraction.
type Workflow string

const (
	// WorkflowSingleStep sends one prompt that extracts metadata and all
	// metrics in a single model call.
	WorkflowSingleStep Workflow = "single_step"

	// WorkflowMultiStep runs the fixed four-stage sequence: metadata,
	// metric inventory, values, then year/scope/classification.
	WorkflowMultiStep Workflow = "multi_step"
)

// Valid reports whether w names a known workflow.
func (w Workflow) Valid() bool {
	return w == WorkflowSingleStep || w == WorkflowMultiStep
}

// InputMode selects how report content is sent to the model.
type InputMode string

const (
	// ModePDF attaches the raw PDF bytes as an inline document part.
	ModePDF InputMode = "pdf"

	// ModeText extracts plain text locally and sends it as a text part.
	// Useful with endpoints that do not accept inline PDF input.
	ModeText InputMode = "text"
)

// Valid reports whether m names a known input mode.
func (m InputMode) Valid() bool {
	return m == ModePDF || m == ModeText
}

// GeminiConfig holds settings for the Gemini generative API.
type GeminiConfig struct {
	// Model is the Gemini model identifier (e.g. "gemini-1.5-pro-001").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the Google AI Studio endpoint. When
	// empty, Project/Region select the Vertex AI endpoint instead.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Project is the Google Cloud project id for Vertex AI access.
	Project string `json:"project,omitempty" yaml:"project,omitempty"`

	// Region is the Vertex AI region (e.g. "us-central1").
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// MaxRetries is the number of retry attempts for failed model calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxOutputTokens caps the model response length (default 8192).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// LayoutConfig holds the on-disk layout of the data directories. Everything
// is keyed by report id: a report's PDF lives at <docs_dir>/<id>.pdf and its
// outputs are written under the workflow subdirectories.
type LayoutConfig struct {
	// DocsDir holds the source PDF reports.
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`

	// OutputDir holds raw model outputs per workflow and report
	// (e.g. output/multi_step/<id>/out_step_2.json).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// GeneratedDir holds the generated JSONL files per workflow.
	GeneratedDir string `json:"generated_dir" yaml:"generated_dir"`

	// ExpectedDir holds the ground-truth JSONL files labelled by SMEs.
	ExpectedDir string `json:"expected_dir" yaml:"expected_dir"`

	// EvaluationDir holds coverage reports and match listings per workflow.
	EvaluationDir string `json:"evaluation_dir" yaml:"evaluation_dir"`

	// TemplatesDir holds the prompt template sets per workflow.
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir"`
}

// DefaultLayout returns the standard data directory layout.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		DocsDir:       "data/docs",
		OutputDir:     "data/output",
		GeneratedDir:  "data/validation/generated",
		ExpectedDir:   "data/validated/expected",
		EvaluationDir: "data/evaluation",
		TemplatesDir:  "templates",
	}
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	GeminiConfig `yaml:",inline"`

	Layout LayoutConfig `json:"layout" yaml:"layout"`

	// Workflow selects single_step or multi_step prompting.
	Workflow Workflow `json:"workflow" yaml:"workflow"`

	// Mode selects pdf or text input (default pdf).
	Mode InputMode `json:"mode" yaml:"mode"`

	// Concurrency bounds the number of reports processed in parallel
	// during batch runs (default 5).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// EvaluationConfig holds settings for the evaluation stage.
type EvaluationConfig struct {
	Layout LayoutConfig `json:"layout" yaml:"layout"`

	// Workflow selects which generated JSONL directory to score.
	Workflow Workflow `json:"workflow" yaml:"workflow"`

	// Strict also requires unit and year to match, not just code and value.
	Strict bool `json:"strict" yaml:"strict"`
}

// IndexConfig holds settings for the local metric index.
type IndexConfig struct {
	Layout LayoutConfig `json:"layout" yaml:"layout"`

	// IndexDir is the directory holding the SQLite database
	// (default data/index).
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Evaluation EvaluationConfig `json:"evaluation" yaml:"evaluation"`
	Index      IndexConfig      `json:"index" yaml:"index"`
}
