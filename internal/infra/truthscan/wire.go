package truthscan

import (
	"encoding/json"
	"fmt"
)

type uploadResponse struct {
	Success    bool   `json:"success"`
	ImageURL   string `json:"imageUrl"`
	R2FilePath string `json:"r2FilePath"`
	Error      any    `json:"error"`
}

type resultDetails struct {
	FinalResult   string          `json:"final_result"`
	HeatmapURL    *string         `json:"heatmap_url"`
	Metadata      json.RawMessage `json:"metadata"`
	DetectionStep json.RawMessage `json:"detection_step"`
}

type detectResponse struct {
	Success           bool    `json:"success"`
	Score             float64 `json:"score"`
	IsAI              bool    `json:"isAI"`
	Confidence        any     `json:"confidence"`
	DetectionResultID string  `json:"detectionResultId"`
	Details           struct {
		ResultDetails json.RawMessage `json:"result_details"`
	} `json:"details"`
	Error any `json:"error"`
}

// resultDetails parses details.result_details, tolerating its absence.
func (d *detectResponse) resultDetails() (resultDetails, json.RawMessage) {
	raw := d.Details.ResultDetails
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}
	var rd resultDetails
	_ = json.Unmarshal(raw, &rd)
	return rd, raw
}

type videoResponse struct {
	Score           float64       `json:"score"`
	VideoScore      float64       `json:"videoScore"`
	VideoIsAI       bool          `json:"videoIsAI"`
	VideoConfidence any           `json:"videoConfidence"`
	ResultDetails   resultDetails `json:"result_details"`
	Error           any           `json:"error"`
}

// errorText renders the service's error field, which is usually a string.
func errorText(v any) string {
	switch e := v.(type) {
	case nil:
		return "Unknown error"
	case string:
		if e == "" {
			return "Unknown error"
		}
		return e
	default:
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprint(e)
		}
		return string(data)
	}
}

func confidenceOrUnknown(v any) any {
	if v == nil {
		return "Unknown"
	}
	return v
}
