package codedoc

import "context"

// UnitKind classifies an analyzable unit. The set is closed; consumers switch
// over it exhaustively.
type UnitKind string

// Unit kinds.
const (
	KindModule   UnitKind = "module"   // a whole source file
	KindClass    UnitKind = "class"    // a class or type declaration
	KindFunction UnitKind = "function" // a function or method
	KindFragment UnitKind = "fragment" // a fixed-size window of unparsable text
)

// Unit represents a single analyzable piece of source code. Units are
// immutable after extraction.
type Unit struct {
	// ID is stable across runs: relative file path plus structural index,
	// e.g. "pkg/store.go#2". File-level units use the bare path.
	ID string `json:"id"`

	Kind UnitKind `json:"kind"`

	// Path is the file path relative to the project root.
	Path string `json:"path"`

	// Symbol is the declared name (function, class). Empty for modules
	// and fragments.
	Symbol string `json:"symbol,omitempty"`

	// Source is the unit's text. StartByte/EndByte locate it in the
	// originating file.
	Source    string `json:"source"`
	StartByte int    `json:"startByte"`
	EndByte   int    `json:"endByte"`

	// ParentID is the owning unit's ID, empty for file-level units.
	// Children holds owned child unit IDs in source order.
	ParentID string   `json:"parentId,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Validate returns an error if the unit contains invalid fields.
func (u *Unit) Validate() error {
	if u.ID == "" {
		return Errorf(EINVALID, "unit ID required")
	}
	if u.Path == "" {
		return Errorf(EINVALID, "unit path required")
	}
	switch u.Kind {
	case KindModule, KindClass, KindFunction, KindFragment:
	default:
		return Errorf(EINVALID, "unknown unit kind %q", u.Kind)
	}
	if u.EndByte < u.StartByte {
		return Errorf(EINVALID, "unit %q has inverted byte range", u.ID)
	}
	return nil
}

// Tree is the result of extracting a project: all units in canonical order
// (lexicographic file order, then source order within a file) plus the symbol
// index built during extraction.
type Tree struct {
	Root  string // project root path
	Units []*Unit
	Index *SymbolIndex
}

// Unit returns the unit with the given ID, or nil.
func (t *Tree) Unit(id string) *Unit {
	for _, u := range t.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// Files returns the file-level units in canonical order.
func (t *Tree) Files() []*Unit {
	var files []*Unit
	for _, u := range t.Units {
		if u.ParentID == "" {
			files = append(files, u)
		}
	}
	return files
}

// Extractor decomposes a project tree into ordered units.
type Extractor interface {
	// Extract walks projectRoot in deterministic (lexicographic) order and
	// returns the unit tree. A single file's parse failure degrades that
	// file to fragment units; it never fails the whole extraction.
	Extract(ctx context.Context, projectRoot string) (*Tree, error)
}

// SymbolIndex maps declared symbol names to their defining unit IDs. It also
// records reverse edges (which units mention a symbol). An index is an
// immutable snapshot built once per extraction; it is never mutated
// concurrently.
type SymbolIndex struct {
	defs map[string]string   // symbol -> defining unit ID
	refs map[string][]string // symbol -> unit IDs whose source mentions it
}

// NewSymbolIndex returns an empty index under construction.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		defs: make(map[string]string),
		refs: make(map[string][]string),
	}
}

// Define records that symbol is declared by the given unit. The first
// definition wins so that index contents are deterministic in canonical
// extraction order.
func (ix *SymbolIndex) Define(symbol, unitID string) {
	if symbol == "" {
		return
	}
	if _, ok := ix.defs[symbol]; !ok {
		ix.defs[symbol] = unitID
	}
}

// AddReference records that the given unit's source mentions symbol.
func (ix *SymbolIndex) AddReference(symbol, unitID string) {
	if symbol == "" {
		return
	}
	ix.refs[symbol] = append(ix.refs[symbol], unitID)
}

// Resolve returns the defining unit ID for a symbol.
func (ix *SymbolIndex) Resolve(symbol string) (string, bool) {
	id, ok := ix.defs[symbol]
	return id, ok
}

// ReferencedBy returns the IDs of units whose source mentions symbol,
// in the order references were recorded.
func (ix *SymbolIndex) ReferencedBy(symbol string) []string {
	return ix.refs[symbol]
}

// Symbols returns all defined symbol names in unspecified order.
func (ix *SymbolIndex) Symbols() []string {
	out := make([]string, 0, len(ix.defs))
	for s := range ix.defs {
		out = append(out, s)
	}
	return out
}
