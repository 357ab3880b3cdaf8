// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nusduck/esg-llm-data-extract/internal/jsonl"
	"github.com/nusduck/esg-llm-data-extract/internal/prompt"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// multiStepCount is the fixed number of stages: metadata, metric
// inventory, values, then year/scope/classification.
const multiStepCount = 4

// runMultiStep runs the staged workflow. Steps 2 and 3 replay the previous
// step's output to the model alongside the document, so the value and
// classification prompts operate on the metric inventory already found.
func (r *Runner) runMultiStep(ctx context.Context, id string, doc document) error {
	outDir := filepath.Join(r.cfg.Layout.OutputDir, string(types.WorkflowMultiStep), id)

	var prior json.RawMessage
	var finalPath string

	for step := 0; step < multiStepCount; step++ {
		set, err := prompt.Load(r.cfg.Layout.TemplatesDir, types.WorkflowMultiStep, step)
		if err != nil {
			return err
		}

		// Steps 0 and 1 see only the document; later steps also get the
		// previous step's output.
		var replay json.RawMessage
		if step >= 2 {
			replay = prior
		}

		out, err := r.call(ctx, doc, set, replay)
		if err != nil {
			return fmt.Errorf("extracting %s step %d: %w", id, step, err)
		}

		outPath := filepath.Join(outDir, fmt.Sprintf("out_step_%d.json", step))
		if err := writeJSON(outPath, out); err != nil {
			return err
		}

		prior = out
		finalPath = outPath
	}

	jsonlPath := filepath.Join(r.cfg.Layout.GeneratedDir, string(types.WorkflowMultiStep), id+".jsonl")
	return jsonl.Convert(finalPath, jsonlPath, types.WorkflowMultiStep)
}
