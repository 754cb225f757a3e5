package sync

import (
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// Recorder is the single aggregation point for record outcomes. All
// workers report completed outcomes through it, so the underlying
// RunReport never needs any other synchronization.
type Recorder struct {
	mu     sync.Mutex
	report *RunReport
	final  bool
}

// NewRecorder starts a report for a new run.
func NewRecorder(dryRun bool) *Recorder {
	return &Recorder{
		report: &RunReport{
			RunID:     uuid.NewString(),
			StartedAt: utc.Now(),
			DryRun:    dryRun,
		},
	}
}

// RunID returns the identifier of the run being recorded.
func (r *Recorder) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report.RunID
}

// Created records a successful create for the given external identifier.
func (r *Recorder) Created(externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Created++
}

// Updated records a successful update for the given external identifier.
func (r *Recorder) Updated(externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Updated++
}

// Skipped records a per-record skip with its normalization reason.
func (r *Recorder) Skipped(externalID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Skipped++
	r.report.Skips = append(r.report.Skips, RecordOutcome{ExternalID: externalID, Reason: reason})
}

// Failed records a per-record failure with its reason. No failure is ever
// silently dropped.
func (r *Recorder) Failed(externalID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Failed++
	r.report.Failures = append(r.report.Failures, RecordOutcome{ExternalID: externalID, Reason: reason})
}

// Abort marks the run as aborted with the fatal reason.
func (r *Recorder) Abort(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Aborted = true
	r.report.AbortReason = reason
}

// Finalize stamps the finish time and returns the report. Further calls
// return the same report.
func (r *Recorder) Finalize() *RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.final {
		r.report.FinishedAt = utc.Now()
		r.final = true
	}
	return r.report
}
