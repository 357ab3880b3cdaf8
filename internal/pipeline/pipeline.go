// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the extraction workflows: load a report,
// prompt the model, persist the JSON outputs, and convert the final result
// to JSONL for evaluation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nusduck/esg-llm-data-extract/internal/gemini"
	"github.com/nusduck/esg-llm-data-extract/internal/prompt"
	"github.com/nusduck/esg-llm-data-extract/internal/report"
	"github.com/nusduck/esg-llm-data-extract/pkg/types"
)

const defaultConcurrency = 5

// Runner executes extraction workflows against a Gemini backend.
type Runner struct {
	backend gemini.Backend
	cfg     types.ExtractionConfig
}

// New returns a Runner for the given backend and configuration.
func New(backend gemini.Backend, cfg types.ExtractionConfig) *Runner {
	return &Runner{backend: backend, cfg: cfg}
}

// document holds the report content in whichever form the input mode needs.
type document struct {
	pdf  []byte
	text string
}

// Run extracts one report end to end: model calls per the configured
// workflow, raw outputs under the output directory, and the final JSONL
// under the generated directory.
func (r *Runner) Run(ctx context.Context, id string) error {
	doc, err := r.loadDocument(id)
	if err != nil {
		return err
	}

	start := time.Now()

	switch r.cfg.Workflow {
	case types.WorkflowSingleStep:
		err = r.runSingleStep(ctx, id, doc)
	case types.WorkflowMultiStep:
		err = r.runMultiStep(ctx, id, doc)
	default:
		return fmt.Errorf("unknown workflow %q", r.cfg.Workflow)
	}
	if err != nil {
		return err
	}

	log.Info().Str("report", id).Str("workflow", string(r.cfg.Workflow)).
		Dur("elapsed", time.Since(start)).Msg("extraction complete")
	return nil
}

func (r *Runner) loadDocument(id string) (document, error) {
	if r.cfg.Mode == types.ModeText {
		text, err := report.ExtractText(r.cfg.Layout.DocsDir, id)
		if err != nil {
			return document{}, err
		}
		return document{text: text}, nil
	}

	pdf, err := report.LoadBytes(r.cfg.Layout.DocsDir, id)
	if err != nil {
		return document{}, err
	}
	return document{pdf: pdf}, nil
}

// call runs one model invocation for the given template set, with prior
// step output (if any) replayed as an additional content part.
func (r *Runner) call(ctx context.Context, doc document, set prompt.Set, prior json.RawMessage) (json.RawMessage, error) {
	req := gemini.Request{
		System: set.System,
		PDF:    doc.pdf,
		Text:   doc.text,
		User:   set.User,
	}
	if prior != nil {
		req.Context = []string{string(prior)}
	}
	return gemini.GenerateWithRetry(ctx, r.backend, req, r.cfg.MaxRetries)
}

// writeJSON persists a model output, indented for review, creating parent
// directories as needed.
func writeJSON(path string, data json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var buf []byte
	var obj any
	if err := json.Unmarshal(data, &obj); err == nil {
		if indented, err := json.MarshalIndent(obj, "", "  "); err == nil {
			buf = indented
		}
	}
	if buf == nil {
		buf = data
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Failed    int
}

// Total returns the number of reports processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Failed
}

// HasFailures reports whether any reports failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// RunBatch extracts the given reports with bounded concurrency. A failing
// report is logged and counted; the rest of the batch continues.
func (r *Runner) RunBatch(ctx context.Context, ids []string, w io.Writer) BatchSummary {
	concurrency := r.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	sem := make(chan struct{}, concurrency)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		summary BatchSummary
	)

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := r.Run(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Str("report", id).Err(err).Msg("extraction failed")
				fmt.Fprintf(w, "failed    %s: %v\n", id, err)
				summary.Failed++
				return
			}
			fmt.Fprintf(w, "extracted %s\n", id)
			summary.Extracted++
		}(id)
	}

	wg.Wait()
	fmt.Fprintf(w, "\nextracted: %d, failed: %d (total: %d)\n",
		summary.Extracted, summary.Failed, summary.Total())
	return summary
}
