// Package analyze provides analysis orchestration. It turns an extracted
// unit tree into oracle jobs, budgets per-unit context, schedules the jobs on
// a bounded worker pool with retry and caching, and reports progress.
package analyze

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fwojciec/codedoc"
)

// Scheduling defaults.
const (
	DefaultConcurrency    = 4
	DefaultAttemptTimeout = 120 * time.Second
)

// Runner orchestrates the analysis of an extracted unit tree.
type Runner struct {
	Oracle codedoc.Oracle

	// Cache short-circuits analysis for known fingerprints and persists
	// fresh results. Optional.
	Cache codedoc.ResultCache

	// Limiter bounds the request rate against the oracle endpoint.
	// Optional.
	Limiter  *EndpointLimiter
	Endpoint string

	Budgeter *Budgeter

	// Concurrency is the worker pool width, the only concurrency knob.
	Concurrency int

	// RetryDelays configures backoff between attempts; the attempt ceiling
	// is len(RetryDelays)+1. Nil uses DefaultRetryDelays.
	RetryDelays []time.Duration

	// AttemptTimeout bounds each oracle attempt. Exceeding it counts as a
	// retryable failure.
	AttemptTimeout time.Duration

	// StallTimeout aborts the run when no job makes a state transition for
	// this long. Zero disables the watchdog.
	StallTimeout time.Duration

	// WindowOverlap is used when an oversize unit is re-fragmented.
	WindowOverlap int

	PromptTemplate string

	// Progress receives job state transitions. Optional.
	Progress codedoc.ProgressFunc
}

// Report holds the outcome of an analysis run.
type Report struct {
	// Results maps unit IDs to their analyses, including cache hits.
	Results map[string]*codedoc.AnalysisResult

	// Failed maps unit IDs to the terminal error that exhausted them.
	Failed map[string]error

	Analyzed int // fresh oracle analyses
	Cached   int // cache hits
}

// outcome is one worker's verdict on a job.
type outcome struct {
	unitID string
	result *codedoc.AnalysisResult
	cached bool
	late   bool // completed after run cancellation
	err    error
}

// Analyze runs every analyzable unit of the tree through the oracle,
// respecting the cache, and returns the collected results. Terminal per-unit
// failures are reported in the Report, not as an error; the returned error is
// reserved for run-aborting conditions (canceled context, scheduler stall).
//
// Cancellation is cooperative: pending jobs stop dispatching, in-flight
// attempts drain, and late results are still cached but excluded from the
// report.
func (r *Runner) Analyze(ctx context.Context, tree *codedoc.Tree) (*Report, error) {
	jobs := r.buildJobs(tree)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lastTransition atomic.Int64
	lastTransition.Store(time.Now().UnixNano())
	var stalled atomic.Bool
	if r.StallTimeout > 0 {
		go r.watchdog(runCtx, cancel, &lastTransition, &stalled)
	}

	transition := func(unitID string, state codedoc.JobState, err error) {
		lastTransition.Store(time.Now().UnixNano())
		if r.Progress != nil {
			r.Progress(codedoc.ProgressEvent{UnitID: unitID, State: state, At: time.Now(), Err: err})
		}
	}

	outcomeCh := make(chan outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(concurrency)

	go func() {
		inFlight := make(map[string]bool)
		for _, job := range jobs {
			if runCtx.Err() != nil {
				break // cancellation stops dispatch of pending jobs
			}
			if inFlight[job.Unit.ID] {
				continue // a unit already in flight is never redispatched
			}
			inFlight[job.Unit.ID] = true

			job := job
			transition(job.Unit.ID, codedoc.JobPending, nil)
			g.Go(func() error {
				outcomeCh <- r.process(runCtx, job, tree, transition)
				return nil
			})
		}
		_ = g.Wait()
		close(outcomeCh)
	}()

	report := &Report{
		Results: make(map[string]*codedoc.AnalysisResult),
		Failed:  make(map[string]error),
	}
	for o := range outcomeCh {
		switch {
		case o.err != nil:
			report.Failed[o.unitID] = o.err
		case o.late:
			// Cached for future runs, excluded from this document.
		case o.cached:
			report.Cached++
			report.Results[o.unitID] = o.result
		default:
			report.Analyzed++
			report.Results[o.unitID] = o.result
		}
	}

	if stalled.Load() {
		return report, codedoc.Errorf(codedoc.EINTERNAL, "analysis stalled: no progress within %s", r.StallTimeout)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// buildJobs selects the analyzable units: every declaration and fragment
// unit, plus file-level units that have no children of their own.
func (r *Runner) buildJobs(tree *codedoc.Tree) []*codedoc.AnalysisJob {
	budgeter := r.budgeter()

	var jobs []*codedoc.AnalysisJob
	for _, u := range tree.Units {
		if u.Kind == codedoc.KindModule && len(u.Children) > 0 {
			continue
		}
		var cs *codedoc.ContextSet
		if !budgeter.Oversize(u) {
			cs = budgeter.SelectContext(u, tree)
		}
		jobs = append(jobs, &codedoc.AnalysisJob{
			Unit:        u,
			Fingerprint: codedoc.ComputeFingerprint(u.Source, cs),
			Context:     cs,
			State:       codedoc.JobPending,
		})
	}
	return jobs
}

func (r *Runner) budgeter() *Budgeter {
	if r.Budgeter != nil {
		return r.Budgeter
	}
	return &Budgeter{}
}

// process runs one job to completion: cache lookup, oracle attempts with
// backoff, cache write-through.
func (r *Runner) process(ctx context.Context, job *codedoc.AnalysisJob, tree *codedoc.Tree, transition func(string, codedoc.JobState, error)) outcome {
	unitID := job.Unit.ID

	if r.Cache != nil {
		if cached, err := r.Cache.Get(ctx, job.Fingerprint); err == nil {
			cached.Cached = true
			transition(unitID, codedoc.JobSucceeded, nil)
			return outcome{unitID: unitID, result: cached, cached: true}
		}
	}

	transition(unitID, codedoc.JobInFlight, nil)

	var analysis *codedoc.Analysis
	var err error
	if r.budgeter().Oversize(job.Unit) {
		analysis, err = r.analyzeOversize(ctx, job, transition)
	} else {
		analysis, _, err = withRetry(ctx, func(ctx context.Context) (*codedoc.Analysis, error) {
			return r.attempt(ctx, &codedoc.AnalysisRequest{
				Unit:           job.Unit,
				Context:        job.Context,
				PromptTemplate: r.PromptTemplate,
			})
		}, r.delays(), func(attempt int, err error) {
			transition(unitID, codedoc.JobFailedRetryable, err)
		})
	}
	if err != nil {
		transition(unitID, codedoc.JobFailedTerminal, err)
		return outcome{unitID: unitID, err: err}
	}

	result := &codedoc.AnalysisResult{
		UnitID:      unitID,
		Fingerprint: job.Fingerprint,
		Explanation: analysis.Explanation,
		References:  analysis.References,
		CreatedAt:   time.Now().UTC(),
	}

	// Late results are still cached so the oracle work is not wasted.
	if r.Cache != nil {
		_ = r.Cache.Put(context.WithoutCancel(ctx), result)
	}

	transition(unitID, codedoc.JobSucceeded, nil)
	return outcome{unitID: unitID, result: result, late: ctx.Err() != nil}
}

// attempt performs a single oracle call bounded by the attempt timeout. The
// call is detached from run cancellation so an in-flight attempt drains
// rather than being forcibly aborted.
func (r *Runner) attempt(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx, r.Endpoint); err != nil {
			return nil, err
		}
	}

	timeout := r.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	analysis, err := r.Oracle.Analyze(actx, req)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded {
			return nil, codedoc.Errorf(codedoc.ETIMEOUT, "analysis attempt exceeded %s", timeout)
		}
		return nil, err
	}
	return analysis, nil
}

// analyzeOversize re-fragments a unit whose source alone exceeds the context
// budget and analyzes each window separately, assembling the parts into one
// explanation.
func (r *Runner) analyzeOversize(ctx context.Context, job *codedoc.AnalysisJob, transition func(string, codedoc.JobState, error)) (*codedoc.Analysis, error) {
	budgeter := r.budgeter()
	budget := budgeter.Budget
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	windows := codedoc.Fragment(job.Unit.Source, budget, r.WindowOverlap)

	assembled := &codedoc.Analysis{}
	refs := make(map[string]bool)
	for i, w := range windows {
		part := *job.Unit
		part.Source = w.Text
		part.StartByte = job.Unit.StartByte + w.StartByte
		part.EndByte = job.Unit.StartByte + w.EndByte

		analysis, _, err := withRetry(ctx, func(ctx context.Context) (*codedoc.Analysis, error) {
			return r.attempt(ctx, &codedoc.AnalysisRequest{
				Unit:           &part,
				PromptTemplate: r.PromptTemplate,
			})
		}, r.delays(), func(attempt int, err error) {
			transition(job.Unit.ID, codedoc.JobFailedRetryable, err)
		})
		if err != nil {
			return nil, err
		}

		if len(windows) > 1 {
			assembled.Explanation += fmt.Sprintf("### Part %d of %d\n\n", i+1, len(windows))
		}
		assembled.Explanation += analysis.Explanation + "\n\n"
		for _, ref := range analysis.References {
			if !refs[ref] {
				refs[ref] = true
				assembled.References = append(assembled.References, ref)
			}
		}
	}
	return assembled, nil
}

func (r *Runner) delays() []time.Duration {
	if r.RetryDelays != nil {
		return r.RetryDelays
	}
	return DefaultRetryDelays()
}

// watchdog cancels the run when no job transitions state for StallTimeout.
func (r *Runner) watchdog(ctx context.Context, cancel context.CancelFunc, lastTransition *atomic.Int64, stalled *atomic.Bool) {
	interval := r.StallTimeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := time.Unix(0, lastTransition.Load())
			if time.Since(last) > r.StallTimeout {
				stalled.Store(true)
				cancel()
				return
			}
		}
	}
}
