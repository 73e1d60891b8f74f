package audit

import (
	"time"

	"github.com/rs/xid"

	"github.com/KanoComputing/aws-tools/internal/ddmin"
)

// TrialEntry records one oracle evaluation. The full evaluated subset
// is kept on purpose: the oracle can be flaky (propagation timing), and
// the trail is what lets an operator reconstruct what was actually
// tested when the returned "minimal" set turns out not to reproduce.
type TrialEntry struct {
	// ID is unique per entry, RunID groups all trials of one search.
	ID    string `json:"id"`
	RunID string `json:"run_id"`

	Time        time.Time     `json:"time"`
	Seq         int           `json:"seq"`
	Granularity int           `json:"granularity"`
	Subset      []string      `json:"subset"`
	Verdict     string        `json:"verdict"`
	Duration    time.Duration `json:"duration"`
}

type Auditor interface {
	Log(entry TrialEntry) error
	Close() error
}

// NewRunID returns a fresh identifier grouping the trials of a single
// minimization run.
func NewRunID() string {
	return xid.New().String()
}

// FromTrial converts an engine trial into an audit entry.
func FromTrial(runID string, trial ddmin.Trial) TrialEntry {
	return TrialEntry{
		ID:          xid.New().String(),
		RunID:       runID,
		Time:        time.Now(),
		Seq:         trial.Seq,
		Granularity: trial.Granularity,
		Subset:      trial.Subset,
		Verdict:     trial.Verdict.String(),
		Duration:    trial.Duration,
	}
}
