package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

type AnalysisJob struct {
	ID            uuid.UUID
	UserID        string
	MediaKey      string
	MediaKind     MediaKind
	Mode          VideoMode
	FrameKey      string
	Status        JobStatus
	Verdict       string
	AIPercentage  float64
	IsAIGenerated bool
	FrameIndex    *int
	Report        []byte
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewAnalysisJob(userID, mediaKey string, kind MediaKind, mode VideoMode, maxAttempts int) *AnalysisJob {
	now := time.Now().UTC()
	return &AnalysisJob{
		ID:          uuid.New(),
		UserID:      userID,
		MediaKey:    mediaKey,
		MediaKind:   kind,
		Mode:        mode,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *AnalysisJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

// MarkCompleted stores the encoded report alongside the fields the status
// message carries.
func (j *AnalysisJob) MarkCompleted(report *Report, encoded []byte, frameKey string) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Verdict = report.Verdict
	j.AIPercentage = report.AIPercentage
	j.IsAIGenerated = report.IsAIGenerated
	j.Report = encoded
	j.FrameKey = frameKey
	if report.Frame != nil {
		idx := report.Frame.Index
		j.FrameIndex = &idx
	}
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *AnalysisJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *AnalysisJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
