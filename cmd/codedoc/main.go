package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/ollama"
	codeslog "github.com/fwojciec/codedoc/slog"
	"github.com/fwojciec/codedoc/sqlite"
	"github.com/fwojciec/codedoc/treesitter"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database backing the result cache.
	DB *sqlite.DB

	// Services for end-to-end testing.
	Cache     codedoc.ResultCache
	Anomalies codedoc.AnomalyLog
	Oracle    codedoc.Oracle
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("codedoc"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'codedoc --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	// Open database
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set CODEDOC_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	cacheService := sqlite.NewCacheService(m.DB)
	m.Cache = cacheService
	m.Anomalies = cacheService
	deps.DB = m.DB
	deps.Cache = codeslog.NewLoggingResultCache(m.Cache, logger)
	deps.Anomalies = m.Anomalies
	deps.Extractor = treesitter.NewExtractor()

	if cmd == "generate" {
		if err := cacheService.WarmPrefilter(ctx); err != nil {
			return fmt.Errorf("failed to warm cache prefilter: %w", err)
		}

		if m.Oracle == nil {
			oracle := ollama.NewOracle(
				ollama.WithBaseURL(cli.Generate.OllamaURL),
				ollama.WithModel(cli.Generate.Model),
			)
			if err := oracle.Ping(ctx); err != nil {
				fmt.Fprintf(stderr, "Hint: Ensure Ollama is running at %s and model %q is pulled\n",
					cli.Generate.OllamaURL, cli.Generate.Model)
				return fmt.Errorf("ollama unreachable: %s", codedoc.ErrorMessage(err))
			}
			m.Oracle = oracle
		}
		deps.Oracle = codeslog.NewLoggingOracle(m.Oracle, logger)
	}

	return kongCtx.Run(deps)
}

func defaultDBPath() string {
	if path := os.Getenv("CODEDOC_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "codedoc.db"
	}
	dir := filepath.Join(home, ".codedoc")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "codedoc.db")
}
