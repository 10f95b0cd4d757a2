package entity

import "github.com/google/uuid"

// AnalysisJobMessage is the inbound message from the media.analysis queue.
type AnalysisJobMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	MediaKey  string    `json:"media_key"`
	MediaKind MediaKind `json:"media_kind,omitempty"`
	Mode      VideoMode `json:"mode,omitempty"`
	UserEmail string    `json:"user_email"`
}

// AnalysisStatusMessage is the outbound message published to the media.status queue.
type AnalysisStatusMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	UserID        string    `json:"user_id"`
	Status        JobStatus `json:"status"`
	MediaKey      string    `json:"media_key"`
	FrameKey      string    `json:"frame_key,omitempty"`
	FrameIndex    *int      `json:"frame_index,omitempty"`
	Verdict       string    `json:"verdict,omitempty"`
	AIPercentage  float64   `json:"ai_percentage"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Attempt       int       `json:"attempt"`
	MaxAttempts   int       `json:"max_attempts"`
}
