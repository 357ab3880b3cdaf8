// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nusduck/esg-llm-data-extract/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query [search terms]",
	Short: "Search the metric index",
	Long: `Query searches the metric index using FTS5 full-text search over
evidence snippets, structured filters (metric code, report, year), or a
combination of both. Results include the company and report each metric
came from.`,
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.Query == "" && opts.Code == "" && opts.ReportID == "" && opts.Year == "" {
		return fmt.Errorf("query or filter required: provide search terms, --code, --report, or --year")
	}

	layout := layoutFromFlags(cmd)
	s, err := store.NewStore(indexConfig(cmd, layout))
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(results, jsonOutput)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) store.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	code, _ := cmd.Flags().GetString("code")
	reportID, _ := cmd.Flags().GetString("report")
	year, _ := cmd.Flags().GetString("year")
	limit, _ := cmd.Flags().GetInt("limit")

	return store.QueryOptions{
		Query:      queryText,
		Code:       code,
		ReportID:   reportID,
		Year:       year,
		MaxResults: limit,
	}
}

func formatQueryOutput(results []store.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-14s  %-12s  %-6s  %-20s  %s\n",
		"Rank", "Code", "Value", "Unit", "Year", "Company", "Snippet")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range results {
		company := r.CompanyName
		if company == "" {
			company = r.ReportID
		}
		if len(company) > 20 {
			company = company[:17] + "..."
		}
		snippet := r.Snippet
		if len(snippet) > 40 {
			snippet = snippet[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-14s  %-12s  %-6s  %-20s  %s\n",
			i+1, r.Code, r.Value, r.Unit, r.Year, company, snippet)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func init() {
	addLayoutFlags(queryCmd)
	queryCmd.Flags().String("query", "", "full-text search over evidence snippets")
	queryCmd.Flags().String("code", "", "filter by metric code")
	queryCmd.Flags().String("report", "", "filter by report id")
	queryCmd.Flags().String("year", "", "filter by reporting year")
	queryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	queryCmd.Flags().String("index-dir", "data/index", "directory holding the SQLite metric index")
	queryCmd.Flags().Int("max-results", 20, "default maximum number of query results")

	rootCmd.AddCommand(queryCmd)
}
