package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/codedoc"
	main "github.com/fwojciec/codedoc/cmd/codedoc"
	"github.com/fwojciec/codedoc/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestProject creates a small Go project and returns its root.
func writeTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	source := "package main\n\nfunc Greet() string {\n\treturn \"hello\"\n}\n\nfunc main() {\n\tGreet()\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(source), 0644))
	return root
}

func TestCmdUnits(t *testing.T) {
	t.Parallel()

	t.Run("lists extracted units", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"units", writeTestProject(t)}, stdout, stderr)
		require.NoError(t, err)

		output := stdout.String()
		assert.Contains(t, output, "main.go")
		assert.Contains(t, output, "Greet")
		assert.Contains(t, output, "function")
	})

	t.Run("reports missing project root", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"units", filepath.Join(t.TempDir(), "missing")}, stdout, stderr)
		require.Error(t, err)
		assert.NotEmpty(t, stderr.String())
	})
}

func TestCmdGenerate(t *testing.T) {
	t.Parallel()

	t.Run("writes documentation end to end", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")
		m.Oracle = &mock.Oracle{
			AnalyzeFn: func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
				return &codedoc.Analysis{Explanation: "Explains " + req.Unit.ID + "."}, nil
			},
		}

		root := writeTestProject(t)
		outDir := filepath.Join(t.TempDir(), "docs")

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(),
			[]string{"generate", root, "-o", outDir, "--stall-timeout", "0"},
			stdout, stderr)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), "Wrote documentation to")

		toc, err := os.ReadFile(filepath.Join(outDir, "TABLE_OF_CONTENTS.md"))
		require.NoError(t, err)
		assert.Contains(t, string(toc), "main.go")

		doc, err := os.ReadFile(filepath.Join(outDir, "main.go.md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), "# main.go")
		assert.Contains(t, string(doc), "Explains main.go#0.")
	})

	t.Run("second run is served from the cache", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "test.db")
		root := writeTestProject(t)
		outDir := filepath.Join(t.TempDir(), "docs")

		var calls atomic.Int32
		oracle := &mock.Oracle{
			AnalyzeFn: func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
				calls.Add(1)
				return &codedoc.Analysis{Explanation: "Explains " + req.Unit.ID + "."}, nil
			},
		}

		run := func() string {
			m := main.NewMain()
			m.DBPath = dbPath
			m.Oracle = oracle
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}
			err := m.Run(context.Background(),
				[]string{"generate", root, "-o", outDir, "--stall-timeout", "0"},
				stdout, stderr)
			require.NoError(t, err)
			return stdout.String()
		}

		run()
		firstCalls := calls.Load()

		output := run()
		assert.Equal(t, firstCalls, calls.Load(), "second run should not call the oracle")
		assert.Contains(t, output, "from cache")
	})

	t.Run("terminal oracle failure degrades to a placeholder", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")
		m.Oracle = &mock.Oracle{
			AnalyzeFn: func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
				return nil, codedoc.Errorf(codedoc.EINVALID, "oracle rejected input")
			},
		}

		root := writeTestProject(t)
		outDir := filepath.Join(t.TempDir(), "docs")

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(),
			[]string{"generate", root, "-o", outDir, "--stall-timeout", "0"},
			stdout, stderr)
		require.NoError(t, err, "per-unit failures must not fail the run")

		doc, err := os.ReadFile(filepath.Join(outDir, "main.go.md"))
		require.NoError(t, err)
		assert.Contains(t, string(doc), "Documentation unavailable")

		toc, err := os.ReadFile(filepath.Join(outDir, "TABLE_OF_CONTENTS.md"))
		require.NoError(t, err)
		assert.Contains(t, string(toc), "Units without documentation")
	})
}

func TestCmdCache(t *testing.T) {
	t.Parallel()

	t.Run("list reports empty cache", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"cache", "list"}, stdout, stderr)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Cache is empty.")
	})

	t.Run("list shows entries after a generate run", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "test.db")
		root := writeTestProject(t)

		m := main.NewMain()
		m.DBPath = dbPath
		m.Oracle = &mock.Oracle{
			AnalyzeFn: func(ctx context.Context, req *codedoc.AnalysisRequest) (*codedoc.Analysis, error) {
				return &codedoc.Analysis{Explanation: "Explained."}, nil
			},
		}
		stdout := &bytes.Buffer{}
		require.NoError(t, m.Run(context.Background(),
			[]string{"generate", root, "-o", filepath.Join(t.TempDir(), "docs"), "--stall-timeout", "0"},
			stdout, &bytes.Buffer{}))

		m2 := main.NewMain()
		m2.DBPath = dbPath
		listOut := &bytes.Buffer{}
		require.NoError(t, m2.Run(context.Background(), []string{"cache", "list"}, listOut, &bytes.Buffer{}))
		assert.Contains(t, listOut.String(), "main.go#0")
	})

	t.Run("prune reports removed count", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"cache", "prune", "--older-than", "1h"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Removed 0 cached results")
	})

	t.Run("anomalies reports empty log", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DBPath = filepath.Join(t.TempDir(), "test.db")

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"cache", "anomalies"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "No anomalies recorded.")
	})
}
