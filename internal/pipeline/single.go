// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/nusduck/esg-llm-data-extract/internal/jsonl"
	"github.com/nusduck/esg-llm-data-extract/internal/prompt"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// runSingleStep issues one model call that extracts metadata and the full
// metrics array together, then converts the output to JSONL.
func (r *Runner) runSingleStep(ctx context.Context, id string, doc document) error {
	set, err := prompt.Load(r.cfg.Layout.TemplatesDir, types.WorkflowSingleStep, prompt.SingleStep)
	if err != nil {
		return err
	}

	out, err := r.call(ctx, doc, set, nil)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", id, err)
	}

	outPath := filepath.Join(r.cfg.Layout.OutputDir, string(types.WorkflowSingleStep), id, "out.json")
	if err := writeJSON(outPath, out); err != nil {
		return err
	}

	jsonlPath := filepath.Join(r.cfg.Layout.GeneratedDir, string(types.WorkflowSingleStep), id+".jsonl")
	return jsonl.Convert(outPath, jsonlPath, types.WorkflowSingleStep)
}
