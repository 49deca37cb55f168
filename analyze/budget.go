package analyze

import (
	"regexp"

	"github.com/fwojciec/codedoc"
)

// DefaultContextBudget is the maximum context size per job in bytes.
const DefaultContextBudget = 6000

// Budgeter selects bounded supporting context for a unit from the extraction
// tree's symbol index. Selection is deterministic: candidates are ranked by a
// fixed priority order and included greedily until the budget would be
// exceeded, then selection stops.
type Budgeter struct {
	// Budget is the maximum total snippet size in bytes. Zero uses the
	// default.
	Budget int
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// SelectContext returns the context set for unit. The priority order is:
// direct lexical parent, symbols the unit's text references, units that
// reference the unit, then same-file siblings.
func (b *Budgeter) SelectContext(unit *codedoc.Unit, tree *codedoc.Tree) *codedoc.ContextSet {
	budget := b.Budget
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	cs := &codedoc.ContextSet{UnitID: unit.ID}
	included := map[string]bool{unit.ID: true}
	remaining := budget

	add := func(candidate *codedoc.Unit, relation codedoc.ContextRelation, symbol string) bool {
		if candidate == nil || included[candidate.ID] {
			return true
		}
		if len(candidate.Source) > remaining {
			return false // budget would be exceeded: stop selection
		}
		included[candidate.ID] = true
		remaining -= len(candidate.Source)
		cs.Snippets = append(cs.Snippets, codedoc.ContextSnippet{
			Symbol:   symbol,
			UnitID:   candidate.ID,
			Relation: relation,
			Text:     candidate.Source,
		})
		return true
	}

	// (1) direct lexical parent (the containing class; whole-file parents
	// would dwarf the budget and are left to sibling selection instead)
	if unit.ParentID != "" {
		if parent := tree.Unit(unit.ParentID); parent != nil && parent.Kind != codedoc.KindModule {
			if !add(parent, codedoc.RelationParent, parent.Symbol) {
				return cs
			}
		}
	}

	// (2) referenced symbols resolving in the index, in order of first
	// appearance in the unit's text
	seen := make(map[string]bool)
	for _, ident := range identifierRe.FindAllString(unit.Source, -1) {
		if ident == unit.Symbol || seen[ident] {
			continue
		}
		seen[ident] = true
		defID, ok := tree.Index.Resolve(ident)
		if !ok {
			continue
		}
		if !add(tree.Unit(defID), codedoc.RelationReference, ident) {
			return cs
		}
	}

	// (3) reverse edges: units whose text references this unit's symbol
	for _, refID := range tree.Index.ReferencedBy(unit.Symbol) {
		if !add(tree.Unit(refID), codedoc.RelationReverse, unit.Symbol) {
			return cs
		}
	}

	// (4) sibling units in the same file
	for _, sibling := range tree.Units {
		if sibling.Path != unit.Path || sibling.ParentID != unit.ParentID {
			continue
		}
		if !add(sibling, codedoc.RelationSibling, sibling.Symbol) {
			return cs
		}
	}

	return cs
}

// Oversize reports whether the unit's own source alone exceeds the budget, in
// which case it must be re-fragmented rather than truncated mid-token.
func (b *Budgeter) Oversize(unit *codedoc.Unit) bool {
	budget := b.Budget
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return len(unit.Source) > budget
}
