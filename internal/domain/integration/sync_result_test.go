package integration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseResult_Complete(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		build  func(r *PhaseResult)
		fatal  error
		status SyncStatus
	}{
		{"all good", func(r *PhaseResult) { r.RecordCreated(); r.RecordUpdated() }, nil, SyncStatusSuccess},
		{"empty phase", func(r *PhaseResult) {}, nil, SyncStatusSuccess},
		{"some failed", func(r *PhaseResult) { r.RecordCreated(); r.RecordFailure("2", boom) }, nil, SyncStatusPartial},
		{"all failed", func(r *PhaseResult) { r.RecordFailure("1", boom) }, nil, SyncStatusFailed},
		{"fetch failed", func(r *PhaseResult) {}, boom, SyncStatusFailed},
		{"stopped midway", func(r *PhaseResult) { r.RecordCreated() }, boom, SyncStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPhaseResult(PhaseProducts)
			tt.build(r)
			r.Complete(tt.fatal)
			assert.Equal(t, tt.status, r.Status)
		})
	}
}

func TestPhaseResult_FailureListIsBounded(t *testing.T) {
	r := NewPhaseResult(PhaseInventory)
	for i := 0; i < maxRecordedFailures+10; i++ {
		r.RecordFailure("x", errors.New("nope"))
	}
	assert.Len(t, r.Failures, maxRecordedFailures)
	assert.Equal(t, maxRecordedFailures+10, r.Failed)
}

func TestRunSummary_Finish(t *testing.T) {
	phase := func(p Phase, status SyncStatus, errText string) *PhaseResult {
		return &PhaseResult{Phase: p, Status: status, Error: errText}
	}

	t.Run("all phases succeed", func(t *testing.T) {
		s := NewRunSummary(TriggerCLI)
		s.AddPhase(phase(PhaseCategories, SyncStatusSuccess, ""))
		s.AddPhase(phase(PhaseInventory, SyncStatusSkipped, ""))
		s.Finish(nil)
		assert.Equal(t, SyncStatusSuccess, s.Status)
		assert.True(t, s.Succeeded())
		assert.NotNil(t, s.FinishedAt)
	})

	t.Run("item failures make it partial", func(t *testing.T) {
		s := NewRunSummary(TriggerCLI)
		s.AddPhase(phase(PhaseProducts, SyncStatusPartial, ""))
		s.AddPhase(phase(PhaseOrders, SyncStatusFailed, ""))
		s.Finish(nil)
		assert.Equal(t, SyncStatusPartial, s.Status)
		assert.True(t, s.Succeeded())
	})

	t.Run("aborted phase fails the run", func(t *testing.T) {
		s := NewRunSummary(TriggerCLI)
		s.AddPhase(phase(PhaseOrders, SyncStatusFailed, "remote request failed"))
		s.Finish(nil)
		assert.Equal(t, SyncStatusFailed, s.Status)
		assert.False(t, s.Succeeded())
	})

	t.Run("run error fails the run", func(t *testing.T) {
		s := NewRunSummary(TriggerHTTP)
		s.Finish(ErrSyncDeadlineExceeded)
		assert.Equal(t, SyncStatusFailed, s.Status)
		assert.Equal(t, ErrSyncDeadlineExceeded.Error(), s.Error)
	})
}

func TestRunSummary_Phase(t *testing.T) {
	s := NewRunSummary(TriggerCLI)
	r := NewPhaseResult(PhaseOrders)
	s.AddPhase(r)

	assert.Same(t, r, s.Phase(PhaseOrders))
	assert.Nil(t, s.Phase(PhaseInventory))
}
