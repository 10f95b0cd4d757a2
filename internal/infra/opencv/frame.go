package opencv

import "gocv.io/x/gocv"

// Frame wraps a BGR Mat. The Mat is native memory and must be closed.
type Frame struct {
	Mat gocv.Mat
}

func NewFrame(m gocv.Mat) *Frame {
	return &Frame{Mat: m}
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}
