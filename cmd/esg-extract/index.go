// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nusduck/esg-llm-data-extract/internal/store"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Ingest generated metrics into the local metric index",
	Long: `Index reads the generated JSONL files for the workflow and ingests them
into a SQLite database with FTS5 indexing over evidence snippets, joined
with the report metadata from the raw model output. Unchanged reports
are skipped on subsequent runs.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	workflow, err := workflowFromFlags(cmd)
	if err != nil {
		return err
	}
	layout := layoutFromFlags(cmd)

	s, err := store.NewStore(indexConfig(cmd, layout))
	if err != nil {
		return err
	}
	defer s.Close()

	generatedDir := filepath.Join(layout.GeneratedDir, string(workflow))
	summary, err := s.Ingest(cmd.Context(), generatedDir, workflow, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d report(s) failed indexing", summary.Failed)
	}
	return nil
}

func indexConfig(cmd *cobra.Command, layout types.LayoutConfig) types.IndexConfig {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return types.IndexConfig{
		Layout:     layout,
		IndexDir:   indexDir,
		MaxResults: maxResults,
	}
}

func init() {
	addLayoutFlags(indexCmd)
	indexCmd.Flags().String("workflow", string(types.WorkflowSingleStep), "prompting workflow: single_step or multi_step")
	indexCmd.Flags().String("index-dir", "data/index", "directory holding the SQLite metric index")
	indexCmd.Flags().Int("max-results", 20, "default maximum number of query results")

	rootCmd.AddCommand(indexCmd)
}
