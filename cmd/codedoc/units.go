package main

import (
	"fmt"

	"github.com/fwojciec/codedoc"
)

// Run executes the units command.
func (c *UnitsCmd) Run(deps *Dependencies) error {
	tree, err := deps.Extractor.Extract(deps.Ctx, c.Path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", codedoc.ErrorMessage(err))
		return err
	}

	if len(tree.Units) == 0 {
		fmt.Fprintln(deps.Stdout, "No analyzable units found.")
		return nil
	}

	for _, u := range tree.Units {
		symbol := u.Symbol
		if symbol == "" {
			symbol = "-"
		}
		fmt.Fprintf(deps.Stdout, "%-10s %-30s %s\n", u.Kind, symbol, u.ID)
	}
	return nil
}
