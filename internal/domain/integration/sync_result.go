package integration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus represents the synchronization status
type SyncStatus string

const (
	// SyncStatusInProgress indicates sync is in progress
	SyncStatusInProgress SyncStatus = "IN_PROGRESS"
	// SyncStatusSuccess indicates every item synced
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates some items failed
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates the phase or run could not complete
	SyncStatusFailed SyncStatus = "FAILED"
	// SyncStatusSkipped indicates the phase was disabled
	SyncStatusSkipped SyncStatus = "SKIPPED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusInProgress, SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed, SyncStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// Phase names a step of a sync run
type Phase string

const (
	PhaseCategories Phase = "categories"
	PhaseProducts   Phase = "products"
	PhaseOrders     Phase = "orders"
	PhaseInventory  Phase = "inventory"
)

// AllPhases lists the phases in execution order
var AllPhases = []Phase{PhaseCategories, PhaseProducts, PhaseOrders, PhaseInventory}

// ---------------------------------------------------------------------------
// PhaseResult
// ---------------------------------------------------------------------------

// maxRecordedFailures bounds the failure list kept per phase
const maxRecordedFailures = 100

// SyncFailure represents a failed sync item
type SyncFailure struct {
	ItemID       string `json:"item_id"`
	ErrorMessage string `json:"error"`
}

// PhaseResult is the outcome of one phase
type PhaseResult struct {
	Phase     Phase         `json:"phase"`
	Status    SyncStatus    `json:"status"`
	Total     int           `json:"total"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Conflicts int           `json:"conflicts"`
	Failures  []SyncFailure `json:"failures,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewPhaseResult starts a phase result
func NewPhaseResult(phase Phase) *PhaseResult {
	return &PhaseResult{
		Phase:     phase,
		Status:    SyncStatusInProgress,
		Failures:  make([]SyncFailure, 0),
		StartedAt: time.Now(),
	}
}

// Succeeded returns the count of items created or updated
func (r *PhaseResult) Succeeded() int {
	return r.Created + r.Updated
}

// RecordCreated counts an inserted item
func (r *PhaseResult) RecordCreated() {
	r.Total++
	r.Created++
}

// RecordUpdated counts an updated item
func (r *PhaseResult) RecordUpdated() {
	r.Total++
	r.Updated++
}

// RecordSkipped counts an item deliberately not processed
func (r *PhaseResult) RecordSkipped() {
	r.Total++
	r.Skipped++
}

// RecordFailure counts a failed item
func (r *PhaseResult) RecordFailure(itemID string, err error) {
	r.Total++
	r.Failed++
	if len(r.Failures) < maxRecordedFailures {
		r.Failures = append(r.Failures, SyncFailure{ItemID: itemID, ErrorMessage: err.Error()})
	}
}

// Complete closes the phase. fatal is the error that stopped the phase
// before all items were seen (a failed fetch, an expired deadline), if any.
func (r *PhaseResult) Complete(fatal error) {
	r.Duration = time.Since(r.StartedAt)
	switch {
	case fatal != nil:
		r.Error = fatal.Error()
		if r.Succeeded() > 0 {
			r.Status = SyncStatusPartial
		} else {
			r.Status = SyncStatusFailed
		}
	case r.Failed > 0 && r.Succeeded() == 0 && r.Skipped == 0:
		r.Status = SyncStatusFailed
	case r.Failed > 0:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusSuccess
	}
}

// Skip marks the phase as disabled
func (r *PhaseResult) Skip() {
	r.Status = SyncStatusSkipped
	r.Duration = time.Since(r.StartedAt)
}

// String summarizes the counts for logs
func (r *PhaseResult) String() string {
	return fmt.Sprintf("%s: %s total=%d created=%d updated=%d failed=%d skipped=%d",
		r.Phase, r.Status, r.Total, r.Created, r.Updated, r.Failed, r.Skipped)
}

// ---------------------------------------------------------------------------
// RunSummary
// ---------------------------------------------------------------------------

// Trigger names who started a run
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerHTTP     Trigger = "http"
	TriggerSchedule Trigger = "schedule"
)

// RunSummary is the outcome of a whole run
type RunSummary struct {
	RunID      uuid.UUID      `json:"run_id"`
	Trigger    Trigger        `json:"trigger"`
	Status     SyncStatus     `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Phases     []*PhaseResult `json:"phases"`
	Error      string         `json:"error,omitempty"`
}

// NewRunSummary starts a run summary
func NewRunSummary(trigger Trigger) *RunSummary {
	return &RunSummary{
		RunID:     uuid.New(),
		Trigger:   trigger,
		Status:    SyncStatusInProgress,
		StartedAt: time.Now(),
		Phases:    make([]*PhaseResult, 0, len(AllPhases)),
	}
}

// AddPhase appends a finished phase result
func (s *RunSummary) AddPhase(r *PhaseResult) {
	s.Phases = append(s.Phases, r)
}

// Phase returns the result for the named phase, or nil
func (s *RunSummary) Phase(p Phase) *PhaseResult {
	for _, r := range s.Phases {
		if r.Phase == p {
			return r
		}
	}
	return nil
}

// Finish derives the overall status. A run error, or a phase that stopped
// before seeing its items, fails the run. Item failures inside phases that
// ran to completion only make it partial.
func (s *RunSummary) Finish(runErr error) {
	now := time.Now()
	s.FinishedAt = &now

	if runErr != nil {
		s.Error = runErr.Error()
		s.Status = SyncStatusFailed
		return
	}

	status := SyncStatusSuccess
	for _, r := range s.Phases {
		switch {
		case r.Status == SyncStatusFailed && r.Error != "":
			s.Status = SyncStatusFailed
			return
		case r.Status == SyncStatusFailed, r.Status == SyncStatusPartial:
			status = SyncStatusPartial
		}
	}
	s.Status = status
}

// Succeeded reports whether the run should exit cleanly
func (s *RunSummary) Succeeded() bool {
	return s.Status == SyncStatusSuccess || s.Status == SyncStatusPartial
}
