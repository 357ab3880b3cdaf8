// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nusduck/esg-llm-data-extract/internal/report"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <report-id> <url>",
	Short: "Download a report PDF into the docs directory",
	Long: `Fetch downloads an ESG report PDF from a URL and saves it as
<docs-dir>/<report-id>.pdf, ready for extraction. Rate-limited
responses are retried with exponential backoff.`,
	Args: cobra.ExactArgs(2),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	id, url := args[0], args[1]
	layout := layoutFromFlags(cmd)
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	client := &http.Client{Timeout: 5 * time.Minute}
	if err := report.Fetch(cmd.Context(), client, url, layout.DocsDir, id, overwrite); err != nil {
		return err
	}

	fmt.Printf("fetched %s -> %s\n", id, report.Path(layout.DocsDir, id))
	return nil
}

func init() {
	addLayoutFlags(fetchCmd)
	fetchCmd.Flags().Bool("overwrite", false, "replace an existing PDF with the same report id")

	rootCmd.AddCommand(fetchCmd)
}
