package codedoc

import "time"

// JobState tracks an analysis job through its lifecycle.
type JobState string

// Job states. Transitions: pending -> in_flight -> {succeeded,
// failed_retryable, failed_terminal}; failed_retryable -> pending on retry.
const (
	JobPending         JobState = "pending"
	JobInFlight        JobState = "in_flight"
	JobSucceeded       JobState = "succeeded"
	JobFailedRetryable JobState = "failed_retryable"
	JobFailedTerminal  JobState = "failed_terminal"
)

// AnalysisJob pairs a unit with its context for one trip to the oracle.
type AnalysisJob struct {
	Unit        *Unit       `json:"unit"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Context     *ContextSet `json:"context,omitempty"`
	Attempts    int         `json:"attempts"`
	State       JobState    `json:"state"`
}

// AnalysisResult holds one successful (or placeholder) analysis of a unit.
// Results are owned by the ResultCache once persisted; the synthesizer only
// references them.
type AnalysisResult struct {
	UnitID      string      `json:"unitId"`
	Fingerprint Fingerprint `json:"fingerprint"`

	// Explanation is the oracle's natural-language output.
	Explanation string `json:"explanation"`

	// References holds IDs of other units the explanation mentions.
	References []string `json:"references,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// Cached is true when the result was served from the cache rather than
	// a fresh oracle call.
	Cached bool `json:"cached,omitempty"`
}

// Validate returns an error if the result contains invalid fields.
func (r *AnalysisResult) Validate() error {
	if r.UnitID == "" {
		return Errorf(EINVALID, "result unit ID required")
	}
	if r.Fingerprint == "" {
		return Errorf(EINVALID, "result fingerprint required")
	}
	return nil
}
