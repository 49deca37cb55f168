package codedoc

// ContextRelation ranks how a context snippet relates to its target unit.
// Lower values are more relevant and are budgeted first.
type ContextRelation int

// Context relations in priority order.
const (
	RelationParent    ContextRelation = 1 // direct lexical parent
	RelationReference ContextRelation = 2 // symbol the unit's text references
	RelationReverse   ContextRelation = 3 // unit that references the target
	RelationSibling   ContextRelation = 4 // sibling unit in the same file
)

// ContextSnippet is one piece of supporting material attached to a unit for
// analysis.
type ContextSnippet struct {
	Symbol   string          `json:"symbol,omitempty"`
	UnitID   string          `json:"unitId"`
	Relation ContextRelation `json:"relation"`
	Text     string          `json:"text"`
}

// ContextSet is a bounded, relevance-ordered collection of snippets
// accompanying a unit to the oracle. Size returns the number of budgeted
// characters the set consumes.
type ContextSet struct {
	UnitID   string           `json:"unitId"`
	Snippets []ContextSnippet `json:"snippets,omitempty"`
}

// Size returns the total text size of the set in bytes.
func (cs *ContextSet) Size() int {
	var n int
	for _, s := range cs.Snippets {
		n += len(s.Text)
	}
	return n
}
