// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nusduck/esg-llm-data-extract/internal/jsonl"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [reports...]",
	Short: "Convert raw model outputs to JSONL",
	Long: `Convert re-runs the JSON to JSONL conversion for reports that already
have raw model output on disk, without calling the model again. For the
single-step workflow the metrics array is unwrapped from out.json; for
multi-step the final step output is converted directly.

With --batch, every report under the workflow's output directory is
converted.`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	workflow, err := workflowFromFlags(cmd)
	if err != nil {
		return err
	}
	layout := layoutFromFlags(cmd)

	batch, _ := cmd.Flags().GetBool("batch")
	ids := args
	if batch {
		ids, err = outputIDs(layout.OutputDir, workflow)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no reports to convert: pass report ids or --batch")
	}

	var failed int
	for _, id := range ids {
		input := outputJSONPath(layout.OutputDir, workflow, id)
		output := filepath.Join(layout.GeneratedDir, string(workflow), id+".jsonl")
		if err := jsonl.Convert(input, output, workflow); err != nil {
			fmt.Fprintf(os.Stdout, "failed    %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "converted %s\n", id)
	}

	if failed > 0 {
		return fmt.Errorf("%d report(s) failed conversion", failed)
	}
	return nil
}

// outputIDs lists report ids that have raw output for the workflow.
func outputIDs(outputDir string, workflow types.Workflow) ([]string, error) {
	dir := filepath.Join(outputDir, string(workflow))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory %s: %w", dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// outputJSONPath resolves the file conversion starts from: out.json for
// single-step, the last step output for multi-step.
func outputJSONPath(outputDir string, workflow types.Workflow, id string) string {
	if workflow == types.WorkflowMultiStep {
		return filepath.Join(outputDir, string(workflow), id, "out_step_3.json")
	}
	return filepath.Join(outputDir, string(workflow), id, "out.json")
}

func init() {
	addLayoutFlags(convertCmd)
	convertCmd.Flags().String("workflow", string(types.WorkflowSingleStep), "prompting workflow: single_step or multi_step")
	convertCmd.Flags().Bool("batch", false, "convert every report with raw output on disk")

	rootCmd.AddCommand(convertCmd)
}
