package codedoc

import (
	"context"
	"fmt"
	"strings"
)

// NodeKind classifies a documentation tree node.
type NodeKind string

// Node kinds.
const (
	NodeProject NodeKind = "project"
	NodeFile    NodeKind = "file"
	NodeUnit    NodeKind = "unit"
)

// DocumentNode is a node in the synthesized documentation tree. A node
// mirrors a Unit (or the project root) and has no identity of its own; the
// tree is rebuilt fresh on every synthesis pass. A node's children are
// exactly the mirrored unit's children, in source order.
type DocumentNode struct {
	Kind   NodeKind `json:"kind"`
	UnitID string   `json:"unitId,omitempty"`
	Title  string   `json:"title"`

	// Explanation is the synthesized text with cross-references resolved.
	// For units whose analysis failed terminally it holds a placeholder.
	Explanation string `json:"explanation,omitempty"`

	// Canonical is false when this node's unit shares a symbol documented
	// canonically elsewhere; the explanation is then a back-reference.
	Canonical bool `json:"canonical"`

	Children []*DocumentNode `json:"children,omitempty"`
}

// Walk visits the node and its descendants depth-first in child order.
func (n *DocumentNode) Walk(fn func(*DocumentNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// RefScheme prefixes cross-reference link targets inside synthesized
// explanations. The synthesizer emits markdown links of the form
// [Symbol](ref:unitID); renderers resolve them to concrete locations in
// whatever layout they produce.
const RefScheme = "ref:"

// RefLink formats a cross-reference link for an explanation body.
func RefLink(symbol, unitID string) string {
	return fmt.Sprintf("[%s](%s%s)", symbol, RefScheme, unitID)
}

// ParseRef extracts the unit ID from a ref-scheme link target. Returns false
// for targets using any other scheme.
func ParseRef(target string) (string, bool) {
	if !strings.HasPrefix(target, RefScheme) {
		return "", false
	}
	return target[len(RefScheme):], true
}

// Manifest is the flat report of units whose documentation is degraded.
type Manifest struct {
	// Failed lists unit IDs whose analysis failed terminally.
	Failed []string `json:"failed,omitempty"`

	// Unresolved lists cross-references that pointed at units no longer in
	// the tree, as "fromUnitID -> toUnitID" pairs.
	Unresolved []UnresolvedRef `json:"unresolved,omitempty"`
}

// UnresolvedRef is a dangling cross-reference discovered during synthesis.
type UnresolvedRef struct {
	FromUnitID string `json:"fromUnitId"`
	ToUnitID   string `json:"toUnitId"`
}

// Document pairs a synthesized tree with its failure manifest.
type Document struct {
	Root     *DocumentNode `json:"root"`
	Manifest *Manifest     `json:"manifest"`
}

// DocumentStore persists a synthesized document with atomic semantics.
// Save renders to a temporary location; Commit makes the output permanent;
// Abort discards pending output.
type DocumentStore interface {
	Save(ctx context.Context, doc *Document) error
	Commit() error
	Abort() error
}
