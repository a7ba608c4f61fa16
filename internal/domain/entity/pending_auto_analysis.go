package entity

import "time"

// PendingAutoAnalysisStatus is the lifecycle of one auto-enrolment batch.
type PendingAutoAnalysisStatus string

const (
	PendingAutoAnalysisPending    PendingAutoAnalysisStatus = "PENDING"
	PendingAutoAnalysisProcessing PendingAutoAnalysisStatus = "PROCESSING"
	PendingAutoAnalysisCompleted  PendingAutoAnalysisStatus = "COMPLETED"
	PendingAutoAnalysisFailed     PendingAutoAnalysisStatus = "FAILED"
)

// PendingAutoAnalysis is one batch of newly ingested items awaiting
// dispatch through the auto-analysis pump.
type PendingAutoAnalysis struct {
	ID          int64
	FeedID      int64
	ItemIDs     []int64
	Status      PendingAutoAnalysisStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
	RunID       *int64
}

// IsTerminal reports whether the batch will not transition again.
func (p *PendingAutoAnalysis) IsTerminal() bool {
	return p.Status == PendingAutoAnalysisCompleted || p.Status == PendingAutoAnalysisFailed
}
