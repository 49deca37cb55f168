// Package treesitter extracts analyzable units from source files using
// tree-sitter structural parsing. Files that cannot be parsed structurally
// degrade to fixed-size sliding-window fragments so that every byte of every
// recognized file is covered by at least one unit.
package treesitter

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/fwojciec/codedoc"
)

// Ensure Extractor implements codedoc.Extractor at compile time.
var _ codedoc.Extractor = (*Extractor)(nil)

// Default fragmentation settings for files without structural grammar.
const (
	DefaultWindowSize    = 4000
	DefaultWindowOverlap = 400
)

// defaultExcludes are directory names skipped during the walk.
var defaultExcludes = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// grammarExtensions maps file extensions to tree-sitter grammars.
var grammarExtensions = map[string]*sitter.Language{
	".go": golang.GetLanguage(),
	".py": python.GetLanguage(),
	".js": javascript.GetLanguage(),
}

// textExtensions are recognized formats without a grammar; they are always
// fragmented.
var textExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".xml":  true,
	".sql":  true,
	".md":   true,
	".txt":  true,
	".env":  true,
}

// Extractor walks a project tree and produces ordered units.
type Extractor struct {
	// WindowSize and WindowOverlap configure fallback fragmentation.
	// Zero values use the defaults.
	WindowSize    int
	WindowOverlap int

	// Exclude overrides the default excluded directory names when non-nil.
	Exclude map[string]bool
}

// NewExtractor returns an Extractor with default settings.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract walks projectRoot in lexicographic path order and returns the unit
// tree plus the symbol index built during extraction. A file that fails to
// parse degrades to fragment units; only an unreadable project root fails the
// whole extraction.
func (e *Extractor) Extract(ctx context.Context, projectRoot string) (*codedoc.Tree, error) {
	if _, err := os.ReadDir(projectRoot); err != nil {
		return nil, codedoc.Errorf(codedoc.ENOTFOUND, "cannot read project root %q: %v", projectRoot, err)
	}

	paths, err := e.collectFiles(projectRoot)
	if err != nil {
		return nil, err
	}

	tree := &codedoc.Tree{Root: projectRoot, Index: codedoc.NewSymbolIndex()}
	parser := sitter.NewParser()

	for _, relPath := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(filepath.Join(projectRoot, relPath))
		if err != nil {
			// Localized failure: the file contributes no units.
			continue
		}
		units := e.extractFile(ctx, parser, relPath, content)
		for _, u := range units {
			tree.Units = append(tree.Units, u)
			tree.Index.Define(u.Symbol, u.ID)
		}
	}

	indexReferences(tree)
	return tree, nil
}

// collectFiles returns recognized files under root as sorted relative paths.
func (e *Extractor) collectFiles(root string) ([]string, error) {
	excludes := e.Exclude
	if excludes == nil {
		excludes = defaultExcludes
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable subtrees
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (excludes[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := grammarExtensions[ext]; !ok && !textExtensions[ext] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// extractFile produces the file-level unit and its children.
func (e *Extractor) extractFile(ctx context.Context, parser *sitter.Parser, relPath string, content []byte) []*codedoc.Unit {
	file := &codedoc.Unit{
		ID:        relPath,
		Kind:      codedoc.KindModule,
		Path:      relPath,
		Source:    string(content),
		StartByte: 0,
		EndByte:   len(content),
	}

	lang := grammarExtensions[strings.ToLower(filepath.Ext(relPath))]
	if lang == nil {
		return e.fragmentFile(file, content)
	}

	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		return e.fragmentFile(file, content)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return e.fragmentFile(file, content)
	}

	b := &fileBuilder{relPath: relPath, source: content}
	b.declarations(root, file, 0)
	return append([]*codedoc.Unit{file}, b.units...)
}

// fragmentFile degrades a file to sliding-window fragments.
func (e *Extractor) fragmentFile(file *codedoc.Unit, content []byte) []*codedoc.Unit {
	size, overlap := e.WindowSize, e.WindowOverlap
	if size <= 0 {
		size = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = DefaultWindowOverlap
	}

	units := []*codedoc.Unit{file}
	for i, w := range codedoc.Fragment(string(content), size, overlap) {
		u := &codedoc.Unit{
			ID:        fmt.Sprintf("%s#%d", file.Path, i),
			Kind:      codedoc.KindFragment,
			Path:      file.Path,
			Source:    w.Text,
			StartByte: w.StartByte,
			EndByte:   w.EndByte,
			ParentID:  file.ID,
		}
		file.Children = append(file.Children, u.ID)
		units = append(units, u)
	}
	return units
}

// fileBuilder accumulates declaration units for one file.
type fileBuilder struct {
	relPath string
	source  []byte
	next    int
	units   []*codedoc.Unit
}

// functionNodeTypes and classNodeTypes are shared across the supported
// grammars; unrecognized node types are simply not extracted as units.
var functionNodeTypes = map[string]bool{
	"function_declaration": true, // go, javascript
	"method_declaration":   true, // go
	"function_definition":  true, // python
	"method_definition":    true, // javascript class body
}

var classNodeTypes = map[string]bool{
	"type_declaration":  true, // go
	"class_definition":  true, // python
	"class_declaration": true, // javascript
}

// declarations walks a node's children and emits units for declarations,
// recursing one level into class bodies to capture methods. Python's
// decorated_definition wrappers are unwrapped to the inner definition.
func (b *fileBuilder) declarations(node *sitter.Node, parent *codedoc.Unit, depth int) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		typ := child.Type()

		if typ == "decorated_definition" {
			if def := child.ChildByFieldName("definition"); def != nil {
				b.emit(def, child, parent, depth)
			}
			continue
		}
		if functionNodeTypes[typ] || classNodeTypes[typ] {
			b.emit(child, child, parent, depth)
		}
	}
}

// emit creates a unit for decl. span carries the full source range (the
// decorated wrapper for python), decl the node the name lives on.
func (b *fileBuilder) emit(decl, span *sitter.Node, parent *codedoc.Unit, depth int) {
	kind := codedoc.KindFunction
	if classNodeTypes[decl.Type()] {
		kind = codedoc.KindClass
	}

	u := &codedoc.Unit{
		ID:        fmt.Sprintf("%s#%d", b.relPath, b.next),
		Kind:      kind,
		Path:      b.relPath,
		Symbol:    declarationName(decl, b.source),
		Source:    string(b.source[span.StartByte():span.EndByte()]),
		StartByte: int(span.StartByte()),
		EndByte:   int(span.EndByte()),
		ParentID:  parent.ID,
	}
	b.next++
	parent.Children = append(parent.Children, u.ID)
	b.units = append(b.units, u)

	// Recurse one level into class bodies to capture methods.
	if kind == codedoc.KindClass && depth == 0 {
		if body := decl.ChildByFieldName("body"); body != nil {
			b.declarations(body, u, depth+1)
		}
	}
}

// declarationName extracts the declared symbol name from a node.
func declarationName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return string(source[name.StartByte():name.EndByte()])
	}
	// Go type_declaration nests the name inside a type_spec child.
	if node.Type() == "type_declaration" {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child != nil && child.Type() == "type_spec" {
				if name := child.ChildByFieldName("name"); name != nil {
					return string(source[name.StartByte():name.EndByte()])
				}
			}
		}
	}
	return ""
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// indexReferences records, for every declaration unit, which defined symbols
// its source mentions. Runs after all definitions are known so reverse edges
// are complete.
func indexReferences(tree *codedoc.Tree) {
	for _, u := range tree.Units {
		if u.Kind == codedoc.KindModule {
			continue
		}
		seen := make(map[string]bool)
		for _, ident := range identifierRe.FindAllString(u.Source, -1) {
			if ident == u.Symbol || seen[ident] {
				continue
			}
			seen[ident] = true
			if _, ok := tree.Index.Resolve(ident); ok {
				tree.Index.AddReference(ident, u.ID)
			}
		}
	}
}
