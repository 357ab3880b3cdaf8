// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the esg-extract CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nusduck/esg-llm-data-extract/internal/secrets"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the esg-extract CLI.
var rootCmd = &cobra.Command{
	Use:   "esg-extract",
	Short: "Extract energy metrics from ESG reports with Gemini",
	Long: `esg-extract sends corporate ESG report PDFs to the Gemini API and turns
the responses into structured energy-consumption metrics. Each pipeline
stage is a subcommand: extract runs the model workflows, convert reshapes
raw outputs to JSONL, evaluate scores them against ground truth, and
index/query maintain a local searchable metric database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./esg-extract.yaml or ~/.config/esg-extract/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("esg-extract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "esg-extract"))
		}
	}

	viper.SetEnvPrefix("ESG_EXTRACT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// flagOrConfig resolves a string setting: explicit flag wins, then the
// config file / environment, then the fallback.
func flagOrConfig(cmd *cobra.Command, flag, configKey, fallback string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" && cmd.Flags().Changed(flag) {
		return v
	}
	if v := viper.GetString(configKey); v != "" {
		return v
	}
	v, _ := cmd.Flags().GetString(flag)
	if v != "" {
		return v
	}
	return fallback
}

// addLayoutFlags registers the data directory flags shared by stage commands.
func addLayoutFlags(cmd *cobra.Command) {
	def := types.DefaultLayout()
	cmd.Flags().String("docs-dir", def.DocsDir, "directory holding source PDF reports")
	cmd.Flags().String("output-dir", def.OutputDir, "directory for raw model outputs")
	cmd.Flags().String("generated-dir", def.GeneratedDir, "directory for generated JSONL files")
	cmd.Flags().String("expected-dir", def.ExpectedDir, "directory holding ground-truth JSONL files")
	cmd.Flags().String("evaluation-dir", def.EvaluationDir, "directory for evaluation reports")
	cmd.Flags().String("templates-dir", def.TemplatesDir, "directory holding prompt templates")
}

// layoutFromFlags builds the directory layout from flags and config.
func layoutFromFlags(cmd *cobra.Command) types.LayoutConfig {
	def := types.DefaultLayout()
	return types.LayoutConfig{
		DocsDir:       flagOrConfig(cmd, "docs-dir", "layout.docs_dir", def.DocsDir),
		OutputDir:     flagOrConfig(cmd, "output-dir", "layout.output_dir", def.OutputDir),
		GeneratedDir:  flagOrConfig(cmd, "generated-dir", "layout.generated_dir", def.GeneratedDir),
		ExpectedDir:   flagOrConfig(cmd, "expected-dir", "layout.expected_dir", def.ExpectedDir),
		EvaluationDir: flagOrConfig(cmd, "evaluation-dir", "layout.evaluation_dir", def.EvaluationDir),
		TemplatesDir:  flagOrConfig(cmd, "templates-dir", "layout.templates_dir", def.TemplatesDir),
	}
}

// workflowFromFlags resolves and validates the workflow selection.
func workflowFromFlags(cmd *cobra.Command) (types.Workflow, error) {
	w := types.Workflow(flagOrConfig(cmd, "workflow", "extraction.workflow", string(types.WorkflowSingleStep)))
	if !w.Valid() {
		return "", fmt.Errorf("unknown workflow %q: use %s or %s", w, types.WorkflowSingleStep, types.WorkflowMultiStep)
	}
	return w, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
