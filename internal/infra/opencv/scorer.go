package opencv

import (
	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"gocv.io/x/gocv"
)

const (
	DefaultCannyLow  = 100
	DefaultCannyHigh = 200
)

// Scorer computes FrameStats over BGR frames.
type Scorer struct {
	cannyLow  float32
	cannyHigh float32
}

func NewScorer(cannyLow, cannyHigh float32) *Scorer {
	return &Scorer{cannyLow: cannyLow, cannyHigh: cannyHigh}
}

// Score returns zero stats for frames it cannot read.
func (s *Scorer) Score(frame port.Frame) entity.FrameStats {
	f, ok := frame.(*Frame)
	if !ok || f.Mat.Empty() {
		return entity.FrameStats{}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(f.Mat, &gray, gocv.ColorBGRToGray)

	return entity.FrameStats{
		SharpnessVariance:  laplacianVariance(gray),
		PixelVariance:      variance(gray),
		EdgeDensity:        s.edgeDensity(gray),
		SaturationVariance: saturationVariance(f.Mat),
	}
}

func laplacianVariance(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	return variance(lap)
}

func (s *Scorer) edgeDensity(gray gocv.Mat) float64 {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, s.cannyLow, s.cannyHigh)

	total := gray.Rows() * gray.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(edges)) / float64(total)
}

func saturationVariance(bgr gocv.Mat) float64 {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	channels := gocv.Split(hsv)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) < 2 {
		return 0
	}
	return variance(channels[1])
}

// variance of a single-channel Mat, as the squared standard deviation.
func variance(m gocv.Mat) float64 {
	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()

	gocv.MeanStdDev(m, &mean, &stddev)
	if stddev.Empty() {
		return 0
	}
	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd
}
