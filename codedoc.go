// Package codedoc generates natural-language documentation for source-code
// projects using a local LLM endpoint. It decomposes a project tree into
// analyzable units, attaches bounded supporting context to each unit, submits
// the pairs to an analysis oracle, and assembles the results into a
// cross-referenced hierarchical document.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, treesitter/, ollama/).
package codedoc
