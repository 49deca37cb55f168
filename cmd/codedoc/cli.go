package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/codedoc"
	"github.com/fwojciec/codedoc/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	DB        *sqlite.DB
	Cache     codedoc.ResultCache
	Anomalies codedoc.AnomalyLog
	Extractor codedoc.Extractor
	Oracle    codedoc.Oracle
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Generate GenerateCmd `cmd:"" help:"Generate markdown documentation for a project"`
	Units    UnitsCmd    `cmd:"" help:"List the analyzable units of a project"`
	Cache    CacheCmd    `cmd:"" help:"Inspect and maintain the result cache"`
}

// GenerateCmd is the "generate" subcommand.
type GenerateCmd struct {
	Path string `arg:"" default:"." help:"Project root to document"`
	Out  string `short:"o" default:"docs" help:"Output directory"`

	OllamaURL string `env:"CODEDOC_OLLAMA_URL" default:"http://localhost:11434" help:"Ollama server URL"`
	Model     string `env:"CODEDOC_MODEL" default:"qwen2.5-coder:7b" help:"Model passed to Ollama"`

	ContextBudget int     `default:"6000" help:"Context character budget per unit"`
	Concurrency   int     `short:"c" default:"4" help:"Concurrent oracle request limit"`
	Retries       int     `default:"3" help:"Retries per unit after the first attempt"`
	Rate          float64 `default:"0" help:"Oracle requests per second, 0 for unlimited"`

	WindowSize    int `default:"4000" help:"Fragment window size in bytes"`
	WindowOverlap int `default:"400" help:"Fragment window overlap in bytes"`

	AttemptTimeout time.Duration `default:"120s" help:"Timeout per oracle attempt"`
	StallTimeout   time.Duration `default:"10m" help:"Abort when no job progresses for this long, 0 disables"`

	PromptFile string `help:"Path to a custom prompt template"`
}

// UnitsCmd is the "units" subcommand.
type UnitsCmd struct {
	Path string `arg:"" default:"." help:"Project root to inspect"`
}

// CacheCmd groups the cache maintenance subcommands.
type CacheCmd struct {
	List      CacheListCmd      `cmd:"" help:"List cached results"`
	Prune     CachePruneCmd     `cmd:"" help:"Remove cached results older than a cutoff"`
	Anomalies CacheAnomaliesCmd `cmd:"" help:"List fingerprints that produced conflicting results"`
}

// CacheListCmd is the "cache list" subcommand.
type CacheListCmd struct {
	Limit int `short:"n" default:"50" help:"Maximum entries to show, 0 for all"`
}

// CachePruneCmd is the "cache prune" subcommand.
type CachePruneCmd struct {
	OlderThan time.Duration `default:"720h" help:"Remove entries older than this"`
}

// CacheAnomaliesCmd is the "cache anomalies" subcommand.
type CacheAnomaliesCmd struct{}
