package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/codedoc"
)

// Run executes the cache list command.
func (c *CacheListCmd) Run(deps *Dependencies) error {
	results, err := deps.Cache.List(deps.Ctx, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "Cache is empty.")
		return nil
	}

	for _, r := range results {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n",
			r.Fingerprint, r.CreatedAt.Format(time.RFC3339), r.UnitID)
	}
	return nil
}

// Run executes the cache prune command.
func (c *CachePruneCmd) Run(deps *Dependencies) error {
	cutoff := time.Now().Add(-c.OlderThan)
	n, err := deps.Cache.Prune(deps.Ctx, cutoff)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Removed %d cached results older than %s\n", n, c.OlderThan)
	return nil
}

// Run executes the cache anomalies command.
func (c *CacheAnomaliesCmd) Run(deps *Dependencies) error {
	anomalies, err := deps.Anomalies.ListAnomalies(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}

	if len(anomalies) == 0 {
		fmt.Fprintln(deps.Stdout, "No anomalies recorded.")
		return nil
	}

	for _, a := range anomalies {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  kept=%s rejected=%s\n",
			a.ObservedAt.Format(time.RFC3339), a.Fingerprint, a.UnitID, a.KeptHash, a.RejectedHash)
	}
	return nil
}
