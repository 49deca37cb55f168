package codedoc_test

import (
	"testing"

	"github.com/fwojciec/codedoc"
	"github.com/stretchr/testify/assert"
)

func TestComputeFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	cs := &codedoc.ContextSet{
		UnitID: "a.go#1",
		Snippets: []codedoc.ContextSnippet{
			{Symbol: "Parse", UnitID: "b.go#0", Text: "func Parse() {}"},
		},
	}

	fp1 := codedoc.ComputeFingerprint("func main() {}", cs)
	fp2 := codedoc.ComputeFingerprint("func main() {}", cs)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, string(fp1), 16)
}

func TestComputeFingerprint_ChangesWithSource(t *testing.T) {
	t.Parallel()

	fp1 := codedoc.ComputeFingerprint("func main() {}", nil)
	fp2 := codedoc.ComputeFingerprint("func main() { return }", nil)

	assert.NotEqual(t, fp1, fp2)
}

func TestComputeFingerprint_ChangesWithContext(t *testing.T) {
	t.Parallel()

	source := "func main() {}"
	cs1 := &codedoc.ContextSet{Snippets: []codedoc.ContextSnippet{
		{Symbol: "Parse", UnitID: "b.go#0", Text: "func Parse() {}"},
	}}
	cs2 := &codedoc.ContextSet{Snippets: []codedoc.ContextSnippet{
		{Symbol: "Parse", UnitID: "c.go#2", Text: "func Parse() {}"},
	}}

	// Same snippet text defined in a different unit changes the fingerprint.
	assert.NotEqual(t,
		codedoc.ComputeFingerprint(source, cs1),
		codedoc.ComputeFingerprint(source, cs2))
}

func TestComputeFingerprint_FieldBoundariesAreUnambiguous(t *testing.T) {
	t.Parallel()

	cs1 := &codedoc.ContextSet{Snippets: []codedoc.ContextSnippet{
		{Symbol: "ab", UnitID: "x", Text: "c"},
	}}
	cs2 := &codedoc.ContextSet{Snippets: []codedoc.ContextSnippet{
		{Symbol: "a", UnitID: "x", Text: "bc"},
	}}

	assert.NotEqual(t,
		codedoc.ComputeFingerprint("s", cs1),
		codedoc.ComputeFingerprint("s", cs2))
}

func TestHashContent_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, codedoc.HashContent("abc"), codedoc.HashContent("abc"))
	assert.NotEqual(t, codedoc.HashContent("abc"), codedoc.HashContent("abd"))
	assert.Len(t, codedoc.HashContent("abc"), 16)
}
