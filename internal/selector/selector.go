// Package selector picks the visually most complex frame of a video so it can
// stand in for the video where only single-image analysis is available.
package selector

import (
	"context"
	"fmt"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"go.uber.org/zap"
)

// Selection is the best frame seen in one pass. The caller owns Frame and
// must Close the selection once the frame is persisted.
type Selection struct {
	Index   int
	Score   float64
	Stats   entity.FrameStats
	Sampled int
	Frames  int
	Frame   port.Frame
}

func (s *Selection) Close() error {
	if s == nil || s.Frame == nil {
		return nil
	}
	err := s.Frame.Close()
	s.Frame = nil
	return err
}

func (s *Selection) Info() *entity.FrameInfo {
	return &entity.FrameInfo{
		Index:   s.Index,
		Score:   s.Score,
		Sampled: s.Sampled,
		Stats:   s.Stats,
	}
}

type Selector struct {
	scorer  port.FrameScorer
	weights entity.ScoreWeights
	logger  *zap.Logger
}

func New(scorer port.FrameScorer, weights entity.ScoreWeights, logger *zap.Logger) *Selector {
	return &Selector{scorer: scorer, weights: weights, logger: logger}
}

// SelectFile opens path and runs Select over it. ctx only bounds the decoder.
func (s *Selector) SelectFile(ctx context.Context, opener port.FrameOpener, path string, stride int) (*Selection, error) {
	if stride < 1 {
		return nil, entity.ErrInvalidStride
	}
	reader, err := opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.Select(reader, stride)
}

// Select scans reader to exhaustion, scoring every stride-th frame. Ties
// keep the earliest frame. The reader is always closed.
func (s *Selector) Select(reader port.FrameReader, stride int) (sel *Selection, err error) {
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			s.logger.Warn("close frame reader", zap.Error(cerr))
		}
	}()

	if stride < 1 {
		return nil, entity.ErrInvalidStride
	}

	best := &Selection{Index: -1}
	defer func() {
		if err != nil {
			best.Close()
		}
	}()

	for idx := 0; ; idx++ {
		if idx%stride != 0 {
			if !reader.Skip() {
				break
			}
			best.Frames++
			continue
		}

		frame, ok := reader.Read()
		if !ok {
			break
		}
		best.Frames++
		best.Sampled++

		stats := s.scorer.Score(frame)
		score := s.weights.Score(stats)
		s.logger.Debug("frame scored",
			zap.Int("frame_index", idx),
			zap.Float64("score", score),
		)

		if best.Frame == nil || score > best.Score {
			best.Close()
			best.Index = idx
			best.Score = score
			best.Stats = stats
			best.Frame = frame
			continue
		}
		frame.Close()
	}

	if best.Frame == nil {
		return nil, fmt.Errorf("%w: %d frames read", entity.ErrNoFrame, best.Frames)
	}

	s.logger.Info("most complex frame selected",
		zap.Int("frame_index", best.Index),
		zap.Float64("score", best.Score),
		zap.Int("sampled", best.Sampled),
		zap.Int("frames", best.Frames),
	)
	return best, nil
}
