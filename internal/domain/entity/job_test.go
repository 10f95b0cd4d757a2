package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisJobLifecycle(t *testing.T) {
	job := NewAnalysisJob("user-1", "user-1/clip.mp4", MediaKindVideo, VideoModeFrame, 2)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempt)

	job.MarkFailed("detect: 502 Bad Gateway")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	assert.False(t, job.CanRetry())

	report := &Report{
		Success:       true,
		Verdict:       "AI Generated",
		AIPercentage:  87,
		IsAIGenerated: true,
		Frame:         &FrameInfo{Index: 60},
	}
	job.MarkCompleted(report, []byte(`{"success":true}`), "user-1/frame_x.jpg")

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMessage)
	assert.Equal(t, "AI Generated", job.Verdict)
	assert.Equal(t, 87.0, job.AIPercentage)
	require.NotNil(t, job.FrameIndex)
	assert.Equal(t, 60, *job.FrameIndex)
	require.NotNil(t, job.CompletedAt)
}
