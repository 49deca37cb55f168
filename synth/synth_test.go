package synth_test

import (
	"testing"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTree builds a two-file project: a.go declares Reader and its method
// Read; b.go declares Helper.
func testTree() *codedoc.Tree {
	index := codedoc.NewSymbolIndex()
	index.Define("Reader", "a.go#0")
	index.Define("Read", "a.go#1")
	index.Define("Helper", "b.go#0")

	return &codedoc.Tree{
		Root: "/tmp/project",
		Units: []*codedoc.Unit{
			{
				ID: "a.go", Kind: codedoc.KindModule, Path: "a.go",
				Source:   "type Reader struct{}\nfunc (r Reader) Read() {}\n",
				EndByte:  44,
				Children: []string{"a.go#0"},
			},
			{
				ID: "a.go#0", Kind: codedoc.KindClass, Path: "a.go", Symbol: "Reader",
				Source: "type Reader struct{}\n", EndByte: 21,
				ParentID: "a.go", Children: []string{"a.go#1"},
			},
			{
				ID: "a.go#1", Kind: codedoc.KindFunction, Path: "a.go", Symbol: "Read",
				Source: "func (r Reader) Read() {}\n", StartByte: 21, EndByte: 47,
				ParentID: "a.go#0",
			},
			{
				ID: "b.go", Kind: codedoc.KindModule, Path: "b.go",
				Source:   "func Helper() {}\n",
				EndByte:  17,
				Children: []string{"b.go#0"},
			},
			{
				ID: "b.go#0", Kind: codedoc.KindFunction, Path: "b.go", Symbol: "Helper",
				Source: "func Helper() {}\n", EndByte: 17,
				ParentID: "b.go",
			},
		},
		Index: index,
	}
}

func result(unitID, explanation string, refs ...string) *codedoc.AnalysisResult {
	return &codedoc.AnalysisResult{
		UnitID:      unitID,
		Fingerprint: codedoc.Fingerprint("fp-" + unitID),
		Explanation: explanation,
		References:  refs,
	}
}

func findNode(root *codedoc.DocumentNode, unitID string) *codedoc.DocumentNode {
	var found *codedoc.DocumentNode
	root.Walk(func(n *codedoc.DocumentNode) {
		if n.UnitID == unitID {
			found = n
		}
	})
	return found
}

func TestSynthesizer_Synthesize(t *testing.T) {
	t.Parallel()

	t.Run("mirrors the unit tree in canonical order", func(t *testing.T) {
		t.Parallel()

		doc, err := synth.New().Synthesize(testTree(), nil, nil)
		require.NoError(t, err)

		root := doc.Root
		assert.Equal(t, codedoc.NodeProject, root.Kind)
		assert.Equal(t, "project", root.Title)

		require.Len(t, root.Children, 2)
		assert.Equal(t, codedoc.NodeFile, root.Children[0].Kind)
		assert.Equal(t, "a.go", root.Children[0].Title)
		assert.Equal(t, "b.go", root.Children[1].Title)

		// a.go -> Reader -> Read nesting follows unit parentage.
		reader := root.Children[0].Children[0]
		assert.Equal(t, "Reader", reader.Title)
		require.Len(t, reader.Children, 1)
		assert.Equal(t, "Read", reader.Children[0].Title)
	})

	t.Run("attaches explanations to their units", func(t *testing.T) {
		t.Parallel()

		results := map[string]*codedoc.AnalysisResult{
			"a.go#1": result("a.go#1", "Read consumes input."),
		}
		doc, err := synth.New().Synthesize(testTree(), results, nil)
		require.NoError(t, err)

		assert.Equal(t, "Read consumes input.", findNode(doc.Root, "a.go#1").Explanation)
		assert.Empty(t, findNode(doc.Root, "a.go#0").Explanation)
	})

	t.Run("rewrites first symbol mention into a ref link", func(t *testing.T) {
		t.Parallel()

		results := map[string]*codedoc.AnalysisResult{
			"a.go#1": result("a.go#1", "Read delegates to Helper. Helper is pure.", "b.go#0"),
			"b.go#0": result("b.go#0", "Helper does a small thing."),
		}
		doc, err := synth.New().Synthesize(testTree(), results, nil)
		require.NoError(t, err)

		got := findNode(doc.Root, "a.go#1").Explanation
		assert.Equal(t, "Read delegates to [Helper](ref:b.go#0). Helper is pure.", got)
		assert.Empty(t, doc.Manifest.Unresolved)
	})

	t.Run("does not rewrite partial symbol matches", func(t *testing.T) {
		t.Parallel()

		results := map[string]*codedoc.AnalysisResult{
			"a.go#1": result("a.go#1", "Read uses Helpers internally.", "b.go#0"),
		}
		doc, err := synth.New().Synthesize(testTree(), results, nil)
		require.NoError(t, err)

		assert.Equal(t, "Read uses Helpers internally.", findNode(doc.Root, "a.go#1").Explanation)
	})

	t.Run("inserts placeholder for failed units and lists them in the manifest", func(t *testing.T) {
		t.Parallel()

		failed := map[string]error{
			"a.go#1": codedoc.Errorf(codedoc.EINVALID, "oracle rejected input"),
		}
		doc, err := synth.New().Synthesize(testTree(), nil, failed)
		require.NoError(t, err)

		node := findNode(doc.Root, "a.go#1")
		assert.Equal(t, "_Documentation unavailable: oracle rejected input_", node.Explanation)
		assert.Equal(t, []string{"a.go#1"}, doc.Manifest.Failed)
	})

	t.Run("reports dangling references without rewriting them", func(t *testing.T) {
		t.Parallel()

		results := map[string]*codedoc.AnalysisResult{
			"a.go#1": result("a.go#1", "Read once used Gone.", "deleted.go#0"),
		}
		doc, err := synth.New().Synthesize(testTree(), results, nil)
		require.NoError(t, err)

		assert.Equal(t, "Read once used Gone.", findNode(doc.Root, "a.go#1").Explanation)
		require.Len(t, doc.Manifest.Unresolved, 1)
		assert.Equal(t, codedoc.UnresolvedRef{FromUnitID: "a.go#1", ToUnitID: "deleted.go#0"}, doc.Manifest.Unresolved[0])
	})

	t.Run("collapses duplicate shared-symbol explanations into back-references", func(t *testing.T) {
		t.Parallel()

		tree := testTree()
		// c.go redeclares Helper with an identical explanation.
		tree.Units = append(tree.Units,
			&codedoc.Unit{
				ID: "c.go", Kind: codedoc.KindModule, Path: "c.go",
				Source: "func Helper() {}\n", EndByte: 17,
				Children: []string{"c.go#0"},
			},
			&codedoc.Unit{
				ID: "c.go#0", Kind: codedoc.KindFunction, Path: "c.go", Symbol: "Helper",
				Source: "func Helper() {}\n", EndByte: 17,
				ParentID: "c.go",
			},
		)

		results := map[string]*codedoc.AnalysisResult{
			"b.go#0": result("b.go#0", "Helper does a small thing."),
			"c.go#0": result("c.go#0", "Helper does a small thing."),
		}
		doc, err := synth.New().Synthesize(tree, results, nil)
		require.NoError(t, err)

		canonical := findNode(doc.Root, "b.go#0")
		assert.True(t, canonical.Canonical)
		assert.Equal(t, "Helper does a small thing.", canonical.Explanation)

		dup := findNode(doc.Root, "c.go#0")
		assert.False(t, dup.Canonical)
		assert.Equal(t, "See [Helper](ref:b.go#0).", dup.Explanation)
	})

	t.Run("differing explanations of a shared symbol both stay canonical", func(t *testing.T) {
		t.Parallel()

		tree := testTree()
		tree.Units = append(tree.Units,
			&codedoc.Unit{
				ID: "c.go", Kind: codedoc.KindModule, Path: "c.go",
				Source: "func Helper() { panic(1) }\n", EndByte: 27,
				Children: []string{"c.go#0"},
			},
			&codedoc.Unit{
				ID: "c.go#0", Kind: codedoc.KindFunction, Path: "c.go", Symbol: "Helper",
				Source: "func Helper() { panic(1) }\n", EndByte: 27,
				ParentID: "c.go",
			},
		)

		results := map[string]*codedoc.AnalysisResult{
			"b.go#0": result("b.go#0", "Helper does a small thing."),
			"c.go#0": result("c.go#0", "Helper always panics."),
		}
		doc, err := synth.New().Synthesize(tree, results, nil)
		require.NoError(t, err)

		assert.True(t, findNode(doc.Root, "b.go#0").Canonical)
		assert.True(t, findNode(doc.Root, "c.go#0").Canonical)
	})

	t.Run("rejects nil tree", func(t *testing.T) {
		t.Parallel()

		_, err := synth.New().Synthesize(nil, nil, nil)
		require.Error(t, err)
		assert.Equal(t, codedoc.EINVALID, codedoc.ErrorCode(err))
	})
}
