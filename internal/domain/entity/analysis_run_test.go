package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisRun_Done(t *testing.T) {
	r := AnalysisRun{Counters: RunCounters{TotalItems: 3, Completed: 2, Failed: 1}}
	assert.True(t, r.Done())

	r.Counters.Queued = 1
	assert.False(t, r.Done())
}

func TestAnalysisRun_AllFailed(t *testing.T) {
	r := AnalysisRun{Counters: RunCounters{TotalItems: 3, Failed: 3}}
	assert.True(t, r.AllFailed())

	r.Counters.Failed = 2
	r.Counters.Completed = 1
	assert.False(t, r.AllFailed())

	r.Counters.TotalItems = 0
	r.Counters.Failed = 0
	assert.False(t, r.AllFailed())
}

func TestRunStatus_IsTerminal(t *testing.T) {
	terminal := []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}

	nonTerminal := []RunStatus{RunStatusPending, RunStatusRunning, RunStatusPaused}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), s)
	}
}
