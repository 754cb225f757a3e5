package sync

import (
	"fmt"
	"strings"

	"github.com/agentstation/utc"
)

// Operation identifies the outcome of a single record's upsert.
type Operation string

const (
	// OpCreated means a new destination product was created.
	OpCreated Operation = "created"
	// OpUpdated means an existing destination product was updated.
	OpUpdated Operation = "updated"
	// OpSkipped means the record was skipped before reaching the destination.
	OpSkipped Operation = "skipped"
	// OpFailed means the record failed at some stage of the pipeline.
	OpFailed Operation = "failed"
)

// RecordOutcome describes what happened to a single source record.
type RecordOutcome struct {
	ExternalID string `json:"external_id"`
	Reason     string `json:"reason"`
}

// RunReport is the per-execution summary of outcomes for all processed
// records. It is created at orchestration start, appended to as records
// complete, and finalized at run end.
type RunReport struct {
	RunID      string   `json:"run_id"`
	StartedAt  utc.Time `json:"started_at"`
	FinishedAt utc.Time `json:"finished_at"`
	DryRun     bool     `json:"dry_run"`

	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	// Skips lists records that never reached the destination, with the
	// normalization reason. Failures lists per-record failures with the
	// offending external identifier so operators can fix and re-run.
	Skips    []RecordOutcome `json:"skips,omitempty"`
	Failures []RecordOutcome `json:"failures,omitempty"`

	Aborted     bool   `json:"aborted"`
	AbortReason string `json:"abort_reason,omitempty"`
}

// Total returns the number of records the run reached an outcome for.
func (r *RunReport) Total() int {
	return r.Created + r.Updated + r.Skipped + r.Failed
}

// HasFailures reports whether any record failed.
func (r *RunReport) HasFailures() bool {
	return r.Failed > 0
}

// Summary returns a human-readable summary of the run.
func (r *RunReport) Summary() string {
	var parts []string
	if r.DryRun {
		parts = append(parts, "(dry run)")
	}
	if r.Aborted {
		parts = append(parts, fmt.Sprintf("ABORTED (%s):", r.AbortReason))
	}

	parts = append(parts, fmt.Sprintf("%d created, %d updated, %d skipped, %d failed (%d total)",
		r.Created, r.Updated, r.Skipped, r.Failed, r.Total()))

	return strings.Join(parts, " ")
}
