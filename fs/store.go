// Package fs renders documentation trees to markdown files on disk. Output
// is staged in a temporary directory and becomes visible only on Commit, so
// an aborted run never leaves a half-written documentation set behind.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fwojciec/codedoc"
)

// TOCFileName is the name of the generated table of contents.
const TOCFileName = "TABLE_OF_CONTENTS.md"

// Ensure Store implements codedoc.DocumentStore at compile time.
var _ codedoc.DocumentStore = (*Store)(nil)

// Store writes one markdown document per source file plus a table of
// contents. Save renders into "<outDir>.tmp"; Commit swaps it into place;
// Abort removes it.
type Store struct {
	outDir string
	staged bool
}

// NewStore creates a Store writing to outDir.
func NewStore(outDir string) *Store {
	return &Store{outDir: outDir}
}

func (s *Store) stagingDir() string {
	return s.outDir + ".tmp"
}

// Save renders the document into the staging directory, replacing any
// previously staged output.
func (s *Store) Save(ctx context.Context, doc *codedoc.Document) error {
	if doc == nil || doc.Root == nil {
		return codedoc.Errorf(codedoc.EINVALID, "document with root node required")
	}

	staging := s.stagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return err
	}

	r := newRenderer(doc)
	for _, file := range doc.Root.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		relPath := DocPath(file.Title)
		fullPath := filepath.Join(staging, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(fullPath, []byte(r.renderFile(file, relPath)), 0644); err != nil {
			return err
		}
	}

	toc := r.renderTOC(doc)
	if err := os.WriteFile(filepath.Join(staging, TOCFileName), []byte(toc), 0644); err != nil {
		return err
	}

	s.staged = true
	return nil
}

// Commit makes the staged output permanent, replacing any previous output
// directory.
func (s *Store) Commit() error {
	if !s.staged {
		return codedoc.Errorf(codedoc.ECONFLICT, "no staged output to commit")
	}

	old := s.outDir + ".old"
	replaced := false
	if _, err := os.Stat(s.outDir); err == nil {
		if err := os.Rename(s.outDir, old); err != nil {
			return err
		}
		replaced = true
	}
	if err := os.Rename(s.stagingDir(), s.outDir); err != nil {
		if replaced {
			// Best effort restore.
			_ = os.Rename(old, s.outDir)
		}
		return err
	}
	if replaced {
		if err := os.RemoveAll(old); err != nil {
			return err
		}
	}
	s.staged = false
	return nil
}

// Abort discards staged output.
func (s *Store) Abort() error {
	s.staged = false
	return os.RemoveAll(s.stagingDir())
}

// DocPath converts a source file path to its documentation path.
// Example: pkg/store.go → pkg/store.go.md
func DocPath(sourcePath string) string {
	return sourcePath + ".md"
}

// Anchor converts a heading title to its github-style anchor.
func Anchor(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}

var refLinkRe = regexp.MustCompile(`\]\(ref:([^)]+)\)`)

// renderer resolves ref-scheme links against the documented tree. Locations
// are collected up front so forward references resolve.
type renderer struct {
	// location maps a unit ID to its doc path and heading anchor.
	location map[string][2]string
}

func newRenderer(doc *codedoc.Document) *renderer {
	r := &renderer{location: make(map[string][2]string)}
	for _, file := range doc.Root.Children {
		relPath := DocPath(file.Title)
		file.Walk(func(n *codedoc.DocumentNode) {
			if n.UnitID != "" {
				r.location[n.UnitID] = [2]string{relPath, Anchor(n.Title)}
			}
		})
	}
	return r
}

// renderFile renders one file node and its unit subtree as markdown.
func (r *renderer) renderFile(file *codedoc.DocumentNode, relPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", file.Title)
	if file.Explanation != "" {
		b.WriteString(r.resolveRefs(file.Explanation, relPath))
		b.WriteString("\n\n")
	}
	for _, child := range file.Children {
		r.renderUnit(&b, child, relPath, 2)
	}
	return b.String()
}

func (r *renderer) renderUnit(b *strings.Builder, n *codedoc.DocumentNode, relPath string, depth int) {
	if depth > 6 {
		depth = 6
	}
	fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", depth), n.Title)
	if n.Explanation != "" {
		b.WriteString(r.resolveRefs(n.Explanation, relPath))
		b.WriteString("\n\n")
	}
	for _, child := range n.Children {
		r.renderUnit(b, child, relPath, depth+1)
	}
}

// resolveRefs rewrites ref-scheme link targets into relative markdown links.
// Links whose unit is unknown keep only their text.
func (r *renderer) resolveRefs(text, fromPath string) string {
	return refLinkRe.ReplaceAllStringFunc(text, func(match string) string {
		unitID, _ := codedoc.ParseRef(match[2 : len(match)-1])
		loc, ok := r.location[unitID]
		if !ok {
			return "]()"
		}
		rel, err := filepath.Rel(filepath.Dir(fromPath), loc[0])
		if err != nil {
			rel = loc[0]
		}
		if rel == filepath.Base(fromPath) {
			// Same document: anchor-only link.
			return fmt.Sprintf("](#%s)", loc[1])
		}
		return fmt.Sprintf("](%s#%s)", filepath.ToSlash(rel), loc[1])
	})
}

// renderTOC renders the table of contents plus the failure manifest.
func (r *renderer) renderTOC(doc *codedoc.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s — Table of Contents\n\n", doc.Root.Title)

	for _, file := range doc.Root.Children {
		relPath := DocPath(file.Title)
		fmt.Fprintf(&b, "- [%s](%s)\n", file.Title, filepath.ToSlash(relPath))
		for _, child := range file.Children {
			r.tocEntry(&b, child, relPath, 1)
		}
	}

	if doc.Manifest != nil && len(doc.Manifest.Failed) > 0 {
		b.WriteString("\n## Units without documentation\n\n")
		failed := append([]string(nil), doc.Manifest.Failed...)
		sort.Strings(failed)
		for _, id := range failed {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}
	if doc.Manifest != nil && len(doc.Manifest.Unresolved) > 0 {
		b.WriteString("\n## Unresolved references\n\n")
		for _, ref := range doc.Manifest.Unresolved {
			fmt.Fprintf(&b, "- `%s` → `%s`\n", ref.FromUnitID, ref.ToUnitID)
		}
	}
	return b.String()
}

func (r *renderer) tocEntry(b *strings.Builder, n *codedoc.DocumentNode, relPath string, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s- [%s](%s#%s)\n", indent, n.Title, filepath.ToSlash(relPath), Anchor(n.Title))
	for _, child := range n.Children {
		r.tocEntry(b, child, relPath, depth+1)
	}
}
