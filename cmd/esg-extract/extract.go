// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nusduck/esg-llm-data-extract/internal/gemini"
	"github.com/nusduck/esg-llm-data-extract/internal/pipeline"
	"github.com/nusduck/esg-llm-data-extract/internal/report"
	"github.com/nusduck/esg-llm-data-extract/internal/secrets"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [reports...]",
	Short: "Run the extraction workflow against ESG report PDFs",
	Long: `Extract sends report content to the Gemini API and writes the responses
as JSON under the output directory, then converts the final result to
JSONL under the generated directory.

Reports are named by the basename of their PDF in the docs directory.
With --batch, every PDF in the docs directory is processed; otherwise
list the report ids to extract as arguments.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := extractionConfig(cmd)
	if err != nil {
		return err
	}

	batch, _ := cmd.Flags().GetBool("batch")
	ids := args
	if batch {
		ids, err = report.ListIDs(cfg.Layout.DocsDir)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no reports to extract: pass report ids or --batch")
	}

	backend, err := gemini.NewClient(cmd.Context(), cfg.GeminiConfig)
	if err != nil {
		return err
	}

	runner := pipeline.New(backend, cfg)
	summary := runner.RunBatch(cmd.Context(), ids, os.Stdout)
	if summary.HasFailures() {
		return fmt.Errorf("%d report(s) failed extraction", summary.Failed)
	}
	return nil
}

func extractionConfig(cmd *cobra.Command) (types.ExtractionConfig, error) {
	workflow, err := workflowFromFlags(cmd)
	if err != nil {
		return types.ExtractionConfig{}, err
	}

	mode := types.InputMode(flagOrConfig(cmd, "mode", "extraction.mode", string(types.ModePDF)))
	if !mode.Valid() {
		return types.ExtractionConfig{}, fmt.Errorf("unknown input mode %q: use %s or %s", mode, types.ModePDF, types.ModeText)
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if !cmd.Flags().Changed("concurrency") {
		if v := viper.GetInt("extraction.concurrency"); v > 0 {
			concurrency = v
		}
	}

	gcfg := types.GeminiConfig{
		Model:           flagOrConfig(cmd, "model", "gemini.model", "gemini-1.5-pro-002"),
		APIKey:          flagOrConfig(cmd, "api-key", "gemini.api_key", ""),
		Project:         flagOrConfig(cmd, "project", "gemini.project", ""),
		Region:          flagOrConfig(cmd, "region", "gemini.region", ""),
		MaxRetries:      viper.GetInt("gemini.max_retries"),
		MaxOutputTokens: viper.GetInt("gemini.max_output_tokens"),
	}
	secrets.Fill(loadedSecrets, &gcfg.APIKey, &gcfg.Project, &gcfg.Region)

	return types.ExtractionConfig{
		GeminiConfig: gcfg,
		Layout:       layoutFromFlags(cmd),
		Workflow:     workflow,
		Mode:         mode,
		Concurrency:  concurrency,
	}, nil
}

func init() {
	addLayoutFlags(extractCmd)
	extractCmd.Flags().String("workflow", string(types.WorkflowSingleStep), "prompting workflow: single_step or multi_step")
	extractCmd.Flags().String("mode", string(types.ModePDF), "input mode: pdf (inline bytes) or text (local extraction)")
	extractCmd.Flags().String("model", "", "Gemini model identifier")
	extractCmd.Flags().String("api-key", "", "Google AI Studio API key (overrides .secrets/)")
	extractCmd.Flags().String("project", "", "Google Cloud project for Vertex AI access")
	extractCmd.Flags().String("region", "", "Vertex AI region")
	extractCmd.Flags().Int("concurrency", 0, "reports processed in parallel during batch runs (0 = default)")
	extractCmd.Flags().Bool("batch", false, "process every PDF in the docs directory")

	rootCmd.AddCommand(extractCmd)
}
