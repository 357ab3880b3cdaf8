// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nusduck/esg-llm-data-extract/internal/evaluate"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score generated metrics against ground truth",
	Long: `Evaluate compares every generated JSONL file for the workflow against
the matching ground-truth file in the expected directory. It writes
per-report coverage percentages to coverage.txt and the matched record
pairs to matches.jsonl under the evaluation directory.

By default a record matches on metric code and normalized value; with
--strict the unit and year must match as well.`,
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	workflow, err := workflowFromFlags(cmd)
	if err != nil {
		return err
	}
	layout := layoutFromFlags(cmd)
	strict, _ := cmd.Flags().GetBool("strict")

	generatedDir := filepath.Join(layout.GeneratedDir, string(workflow))
	evalDir := filepath.Join(layout.EvaluationDir, string(workflow))

	summary, err := evaluate.EvaluateAll(generatedDir, layout.ExpectedDir, evalDir, strict, os.Stdout)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d report(s) failed evaluation", summary.Failed)
	}
	return nil
}

func init() {
	addLayoutFlags(evaluateCmd)
	evaluateCmd.Flags().String("workflow", string(types.WorkflowSingleStep), "prompting workflow: single_step or multi_step")
	evaluateCmd.Flags().Bool("strict", false, "also require unit and year to match")

	rootCmd.AddCommand(evaluateCmd)
}
