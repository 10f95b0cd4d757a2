package entity

import "encoding/json"

// Report is the JSON object printed by the CLI and stored per job.
type Report struct {
	Success         bool    `json:"success"`
	Verdict         string  `json:"verdict"`
	AIPercentage    float64 `json:"ai_percentage"`
	HumanPercentage float64 `json:"human_percentage"`
	Confidence      any     `json:"confidence"`
	IsAIGenerated   bool    `json:"is_ai_generated"`
	*ImageDetails
	Frame *FrameInfo `json:"frame,omitempty"`
}

// ImageDetails is set on image reports only. Its keys are always printed,
// as null or empty when the detector returned nothing for them.
type ImageDetails struct {
	HeatmapURL    *string         `json:"heatmap_url"`
	Analysis      map[string]any  `json:"analysis"`
	Metadata      json.RawMessage `json:"metadata"`
	DetectionStep json.RawMessage `json:"detection_step"`
}

// FrameInfo describes the frame that stood in for a video.
type FrameInfo struct {
	Index   int        `json:"index"`
	Score   float64    `json:"score"`
	Sampled int        `json:"sampled"`
	Stats   FrameStats `json:"stats"`
}

// Failure is what the CLI prints when analysis could not produce a report.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func NewFailure(err error) Failure {
	return Failure{Success: false, Error: err.Error()}
}
