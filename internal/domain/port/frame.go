package port

import (
	"context"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
)

// Frame is a decoded image owned by whoever holds it until Close.
type Frame interface {
	Close() error
}

// FrameReader yields the frames of one open stream in order. Read and Skip
// report false once the stream is exhausted or stops decoding.
type FrameReader interface {
	Read() (Frame, bool)
	Skip() bool
	Close() error
}

type FrameOpener interface {
	Open(ctx context.Context, path string) (FrameReader, error)
}

type FrameScorer interface {
	Score(frame Frame) entity.FrameStats
}

type FrameEncoder interface {
	WriteJPEG(frame Frame, path string, quality int) error
	EncodeJPEG(frame Frame, quality int) ([]byte, error)
}

type DurationProber interface {
	Duration(ctx context.Context, path string) (int, error)
}
