package entity

// FrameStats are the per-frame statistics behind the complexity score.
type FrameStats struct {
	SharpnessVariance  float64 `json:"sharpness_variance"`
	PixelVariance      float64 `json:"pixel_variance"`
	EdgeDensity        float64 `json:"edge_density"`
	SaturationVariance float64 `json:"saturation_variance"`
}

// ScoreWeights combine FrameStats into one score. Edge density lives in
// [0,1] while the variances are unbounded, hence the large edge weight.
type ScoreWeights struct {
	Sharpness  float64
	Pixel      float64
	Edge       float64
	Saturation float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Sharpness:  0.35,
		Pixel:      0.25,
		Edge:       5000,
		Saturation: 0.15,
	}
}

func (w ScoreWeights) Score(s FrameStats) float64 {
	return w.Sharpness*s.SharpnessVariance +
		w.Pixel*s.PixelVariance +
		w.Edge*s.EdgeDensity +
		w.Saturation*s.SaturationVariance
}
