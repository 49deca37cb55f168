// Package synth assembles analysis results into a documentation tree. It
// walks the unit tree in canonical order, attaches explanations, rewrites
// symbol mentions into ref-scheme links, and reports degraded output in a
// manifest instead of failing the run.
package synth

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fwojciec/codedoc"
)

// Synthesizer builds a codedoc.Document from a unit tree and the analysis
// results gathered for it. The zero value is ready to use.
type Synthesizer struct{}

// New creates a new Synthesizer.
func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize builds the documentation tree. results maps unit IDs to their
// analyses; failed maps unit IDs to the terminal error that prevented one.
// Units in neither map produce structural nodes without explanations.
func (s *Synthesizer) Synthesize(tree *codedoc.Tree, results map[string]*codedoc.AnalysisResult, failed map[string]error) (*codedoc.Document, error) {
	if tree == nil {
		return nil, codedoc.Errorf(codedoc.EINVALID, "unit tree required")
	}

	b := &builder{
		tree:      tree,
		results:   results,
		failed:    failed,
		manifest:  &codedoc.Manifest{},
		canonical: canonicalSites(tree, results),
	}

	root := &codedoc.DocumentNode{
		Kind:      codedoc.NodeProject,
		Title:     projectTitle(tree.Root),
		Canonical: true,
	}
	for _, file := range tree.Files() {
		root.Children = append(root.Children, b.fileNode(file))
	}

	return &codedoc.Document{Root: root, Manifest: b.manifest}, nil
}

type builder struct {
	tree     *codedoc.Tree
	results  map[string]*codedoc.AnalysisResult
	failed   map[string]error
	manifest *codedoc.Manifest

	// canonical maps a unit ID to the canonical site documenting its
	// symbol. Identity for canonical units themselves.
	canonical map[string]string
}

func (b *builder) fileNode(file *codedoc.Unit) *codedoc.DocumentNode {
	n := b.unitNode(file)
	n.Kind = codedoc.NodeFile
	n.Title = file.Path
	return n
}

func (b *builder) unitNode(u *codedoc.Unit) *codedoc.DocumentNode {
	n := &codedoc.DocumentNode{
		Kind:      codedoc.NodeUnit,
		UnitID:    u.ID,
		Title:     unitTitle(u),
		Canonical: true,
	}

	if err, ok := b.failed[u.ID]; ok {
		n.Explanation = failurePlaceholder(err)
		b.manifest.Failed = append(b.manifest.Failed, u.ID)
	} else if result, ok := b.results[u.ID]; ok {
		if canonicalID := b.canonical[u.ID]; canonicalID != u.ID {
			n.Canonical = false
			n.Explanation = backReference(u.Symbol, canonicalID)
		} else {
			n.Explanation = b.rewriteReferences(u.ID, result)
		}
	}

	for _, childID := range u.Children {
		child := b.tree.Unit(childID)
		if child == nil {
			continue
		}
		n.Children = append(n.Children, b.unitNode(child))
	}
	return n
}

// rewriteReferences turns the first mention of each referenced unit's symbol
// into a ref-scheme link. References to units no longer in the tree are left
// as plain text and reported in the manifest.
func (b *builder) rewriteReferences(fromID string, result *codedoc.AnalysisResult) string {
	text := result.Explanation
	for _, toID := range result.References {
		target := b.tree.Unit(toID)
		if target == nil {
			b.manifest.Unresolved = append(b.manifest.Unresolved, codedoc.UnresolvedRef{
				FromUnitID: fromID,
				ToUnitID:   toID,
			})
			continue
		}
		if target.Symbol == "" {
			continue
		}
		// Link the canonical site when the target's symbol is documented
		// elsewhere.
		if canonicalID, ok := b.canonical[toID]; ok {
			toID = canonicalID
		}
		text = linkFirstMention(text, target.Symbol, toID)
	}
	return text
}

// canonicalSites picks, for every symbol documented identically at several
// units, the first such unit in canonical order. Later duplicates collapse to
// back-references.
func canonicalSites(tree *codedoc.Tree, results map[string]*codedoc.AnalysisResult) map[string]string {
	canonical := make(map[string]string)
	firstByKey := make(map[string]string) // symbol + explanation -> unit ID
	for _, u := range tree.Units {
		result, ok := results[u.ID]
		if !ok {
			continue
		}
		if u.Symbol == "" {
			canonical[u.ID] = u.ID
			continue
		}
		key := u.Symbol + "\x00" + result.Explanation
		if first, ok := firstByKey[key]; ok {
			canonical[u.ID] = first
		} else {
			firstByKey[key] = u.ID
			canonical[u.ID] = u.ID
		}
	}
	return canonical
}

// linkFirstMention replaces the first word-boundary occurrence of symbol
// with a ref link. The text is returned unchanged when the symbol never
// appears.
func linkFirstMention(text, symbol, unitID string) string {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(symbol) + `\b`)
	if err != nil {
		return text
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + codedoc.RefLink(symbol, unitID) + text[loc[1]:]
}

func failurePlaceholder(err error) string {
	msg := codedoc.ErrorMessage(err)
	if msg == "" {
		msg = "analysis failed"
	}
	return "_Documentation unavailable: " + msg + "_"
}

func backReference(symbol, canonicalID string) string {
	if symbol == "" {
		symbol = canonicalID
	}
	return "See " + codedoc.RefLink(symbol, canonicalID) + "."
}

func projectTitle(root string) string {
	base := filepath.Base(strings.TrimRight(root, string(filepath.Separator)))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "Project"
	}
	return base
}

func unitTitle(u *codedoc.Unit) string {
	if u.Symbol != "" {
		return u.Symbol
	}
	if u.Kind == codedoc.KindFragment {
		return u.ID
	}
	return u.Path
}
