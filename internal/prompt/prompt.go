// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt loads and renders the prompt template sets stored on disk.
//
// Each workflow has its own template set under the templates directory:
//
//	single_step/system_instruction.txt
//	single_step/user_instruction.txt
//	single_step/response_schema.json
//	multi_step/system_instruction/system_instruction_step_<N>.txt
//	multi_step/user_instruction/user_instruction_step_<N>.txt
//	multi_step/schema/step_<N>_response.json
//
// User instructions are Go text templates. Two values are available at
// render time: {{.Catalog}}, the formatted metric catalog, and {{.Schema}},
// the JSON response schema the model must follow.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// SingleStep is the step value for workflows without staging.
const SingleStep = -1

// catalogFile is the metric catalog shared by both workflows.
const catalogFile = "metrics.yaml"

// Set holds one resolved prompt template set.
type Set struct {
	// System is the system instruction sent once per model call.
	System string

	// User is the rendered user instruction.
	User string

	// Schema is the JSON response schema the model output must satisfy.
	Schema json.RawMessage
}

// Load reads the template set for a workflow. Pass SingleStep for the
// single-step workflow, or the step number (0-3) for multi-step. Missing
// template files are errors: extraction cannot run without its prompts.
func Load(templatesDir string, workflow types.Workflow, step int) (Set, error) {
	var sysPath, userPath, schemaPath string
	if step == SingleStep {
		base := filepath.Join(templatesDir, string(workflow))
		sysPath = filepath.Join(base, "system_instruction.txt")
		userPath = filepath.Join(base, "user_instruction.txt")
		schemaPath = filepath.Join(base, "response_schema.json")
	} else {
		base := filepath.Join(templatesDir, string(workflow))
		sysPath = filepath.Join(base, "system_instruction", fmt.Sprintf("system_instruction_step_%d.txt", step))
		userPath = filepath.Join(base, "user_instruction", fmt.Sprintf("user_instruction_step_%d.txt", step))
		schemaPath = filepath.Join(base, "schema", fmt.Sprintf("step_%d_response.json", step))
	}

	system, err := loadText(sysPath)
	if err != nil {
		return Set{}, err
	}
	user, err := loadText(userPath)
	if err != nil {
		return Set{}, err
	}
	schema, err := loadSchema(schemaPath)
	if err != nil {
		return Set{}, err
	}

	catalog, err := LoadCatalog(templatesDir)
	if err != nil {
		return Set{}, err
	}

	rendered, err := renderUser(user, catalog, schema)
	if err != nil {
		return Set{}, fmt.Errorf("rendering user instruction %s: %w", userPath, err)
	}

	return Set{System: system, User: rendered, Schema: schema}, nil
}

// LoadCatalog reads the metric catalog from templatesDir/metrics.yaml.
// A missing catalog is not an error; prompts then render without it.
func LoadCatalog(templatesDir string) (types.MetricCatalog, error) {
	path := filepath.Join(templatesDir, catalogFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.MetricCatalog{}, nil
		}
		return types.MetricCatalog{}, fmt.Errorf("reading metric catalog %s: %w", path, err)
	}

	var catalog types.MetricCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return types.MetricCatalog{}, fmt.Errorf("parsing metric catalog %s: %w", path, err)
	}
	return catalog, nil
}

// FormatCatalog renders the catalog as one "code: item" line per metric,
// the form the prompts embed.
func FormatCatalog(catalog types.MetricCatalog) string {
	var b strings.Builder
	for _, entry := range catalog.Metrics {
		fmt.Fprintf(&b, "%s: %s", entry.Code, entry.Item)
		if entry.Description != "" {
			fmt.Fprintf(&b, " (%s)", entry.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", path, err)
	}
	return string(data), nil
}

func loadSchema(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading response schema %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("response schema %s: invalid JSON", path)
	}
	return json.RawMessage(data), nil
}

func renderUser(user string, catalog types.MetricCatalog, schema json.RawMessage) (string, error) {
	tmpl, err := template.New("user_instruction").Parse(user)
	if err != nil {
		return "", err
	}

	data := struct {
		Catalog string
		Schema  string
	}{
		Catalog: FormatCatalog(catalog),
		Schema:  string(schema),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
