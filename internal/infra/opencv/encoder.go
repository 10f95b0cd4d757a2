package opencv

import (
	"errors"
	"fmt"

	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"gocv.io/x/gocv"
)

const DefaultJPEGQuality = 95

var errNotOpenCVFrame = errors.New("frame is not an opencv frame")

type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) WriteJPEG(frame port.Frame, path string, quality int) error {
	f, ok := frame.(*Frame)
	if !ok {
		return errNotOpenCVFrame
	}
	if !gocv.IMWriteWithParams(path, f.Mat, []int{int(gocv.IMWriteJpegQuality), quality}) {
		return fmt.Errorf("write jpeg %s", path)
	}
	return nil
}

func (e *Encoder) EncodeJPEG(frame port.Frame, quality int) ([]byte, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, errNotOpenCVFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.Mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory freed by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
