package opencv

import (
	"context"
	"fmt"
	"os"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"gocv.io/x/gocv"
)

type Opener struct{}

func NewOpener() *Opener {
	return &Opener{}
}

// Open starts a VideoCapture on path. ctx is unused: capture runs in-process.
func (o *Opener) Open(_ context.Context, path string) (port.FrameReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrOpenStream, err)
	}

	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrOpenStream, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s: capture not opened", entity.ErrOpenStream, path)
	}

	return &Reader{capture: capture, scratch: gocv.NewMat()}, nil
}

// Reader pulls frames from a VideoCapture.
type Reader struct {
	capture *gocv.VideoCapture
	scratch gocv.Mat
}

func (r *Reader) Read() (port.Frame, bool) {
	m := gocv.NewMat()
	if !r.capture.Read(&m) || m.Empty() {
		m.Close()
		return nil, false
	}
	return NewFrame(m), true
}

// Skip decodes into a reused buffer. VideoCapture.Grab gives no end-of-stream
// signal, so a full read is the only reliable way to advance.
func (r *Reader) Skip() bool {
	return r.capture.Read(&r.scratch) && !r.scratch.Empty()
}

func (r *Reader) Close() error {
	r.scratch.Close()
	return r.capture.Close()
}
