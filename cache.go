package codedoc

import (
	"context"
	"time"
)

// ResultCache is a content-addressed store of analysis results keyed by
// fingerprint. Entries are write-once: a second Put under the same
// fingerprint with an equal explanation is silently discarded, while a
// differing explanation is recorded as an anomaly and the first-written
// result stays authoritative. Entries persist across runs.
type ResultCache interface {
	// Get returns the cached result for a fingerprint.
	// Returns ENOTFOUND if no entry exists.
	Get(ctx context.Context, fp Fingerprint) (*AnalysisResult, error)

	// Put stores a result under its fingerprint, applying the write-once
	// policy above.
	Put(ctx context.Context, result *AnalysisResult) error

	// List enumerates cached results for maintenance tooling, oldest first.
	List(ctx context.Context, limit int) ([]*AnalysisResult, error)

	// Prune removes entries created before the cutoff and returns the
	// number removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// CacheAnomaly records a fingerprint that produced two different results,
// which a deterministic oracle should never do. Anomalies are flagged for
// operator inspection, not silently accepted.
type CacheAnomaly struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	UnitID      string      `json:"unitId"`

	// KeptHash and RejectedHash are content hashes of the authoritative and
	// discarded explanations.
	KeptHash     string    `json:"keptHash"`
	RejectedHash string    `json:"rejectedHash"`
	ObservedAt   time.Time `json:"observedAt"`
}

// AnomalyLog records and lists cache anomalies.
type AnomalyLog interface {
	RecordAnomaly(ctx context.Context, a *CacheAnomaly) error
	ListAnomalies(ctx context.Context) ([]*CacheAnomaly, error)
}
