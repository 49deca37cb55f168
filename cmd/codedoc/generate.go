package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/analyze"
	"github.com/fwojciec/codedoc/fs"
	"github.com/fwojciec/codedoc/synth"
	"github.com/fwojciec/codedoc/treesitter"
)

// Run executes the generate command.
func (c *GenerateCmd) Run(deps *Dependencies) error {
	var promptTemplate string
	if c.PromptFile != "" {
		data, err := os.ReadFile(c.PromptFile)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: cannot read prompt template: %v\n", err)
			return err
		}
		promptTemplate = string(data)
	}

	extractor := treesitter.NewExtractor()
	extractor.WindowSize = c.WindowSize
	extractor.WindowOverlap = c.WindowOverlap

	tree, err := extractor.Extract(deps.Ctx, c.Path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Extracted %d units from %d files\n", len(tree.Units), len(tree.Files()))

	var limiter *analyze.EndpointLimiter
	if c.Rate > 0 {
		limiter = analyze.NewEndpointLimiter(c.Rate)
	}

	delays := analyze.DefaultRetryDelays()
	if c.Retries >= 0 && c.Retries != len(delays) {
		delays = backoffDelays(c.Retries)
	}

	// Progress flows through a bounded stream so a slow terminal never backs
	// up the scheduler.
	stream := codedoc.NewProgressStream(256)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for event := range stream.Events() {
			switch event.State {
			case codedoc.JobSucceeded:
				fmt.Fprintf(deps.Stdout, "  done %s\n", event.UnitID)
			case codedoc.JobFailedTerminal:
				fmt.Fprintf(deps.Stderr, "  fail %s: %s\n", event.UnitID, codedoc.ErrorMessage(event.Err))
			}
		}
	}()

	runner := &analyze.Runner{
		Oracle:         deps.Oracle,
		Cache:          deps.Cache,
		Limiter:        limiter,
		Endpoint:       c.OllamaURL,
		Budgeter:       &analyze.Budgeter{Budget: c.ContextBudget},
		Concurrency:    c.Concurrency,
		RetryDelays:    delays,
		AttemptTimeout: c.AttemptTimeout,
		StallTimeout:   c.StallTimeout,
		WindowOverlap:  c.WindowOverlap,
		PromptTemplate: promptTemplate,
		Progress:       stream.Publish,
	}

	report, err := runner.Analyze(deps.Ctx, tree)
	stream.Close()
	<-progressDone
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Analyzed %d units (%d from cache, %d failed)\n",
		report.Analyzed+report.Cached, report.Cached, len(report.Failed))

	doc, err := synth.New().Synthesize(tree, report.Results, report.Failed)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}

	store := fs.NewStore(c.Out)
	if err := store.Save(deps.Ctx, doc); err != nil {
		_ = store.Abort()
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}
	if err := store.Commit(); err != nil {
		_ = store.Abort()
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Wrote documentation to %s\n", c.Out)
	if len(doc.Manifest.Failed) > 0 || len(doc.Manifest.Unresolved) > 0 {
		fmt.Fprintf(deps.Stdout, "See %s for %d undocumented units and %d unresolved references\n",
			fs.TOCFileName, len(doc.Manifest.Failed), len(doc.Manifest.Unresolved))
	}
	return nil
}

// backoffDelays builds a doubling delay slice for the requested retry count.
func backoffDelays(retries int) []time.Duration {
	delays := make([]time.Duration, retries)
	d := time.Second
	for i := range delays {
		delays[i] = d
		d *= 2
	}
	return delays
}
