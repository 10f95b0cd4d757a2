package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFrame struct {
	index  int
	stats  entity.FrameStats
	closed bool
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

type fakeReader struct {
	frames  []*fakeFrame
	pos     int
	skipped []int
	closed  bool
}

func newFakeReader(stats ...entity.FrameStats) *fakeReader {
	r := &fakeReader{}
	for i, s := range stats {
		r.frames = append(r.frames, &fakeFrame{index: i, stats: s})
	}
	return r
}

func (r *fakeReader) Read() (port.Frame, bool) {
	if r.pos >= len(r.frames) {
		return nil, false
	}
	f := r.frames[r.pos]
	r.pos++
	return f, true
}

func (r *fakeReader) Skip() bool {
	if r.pos >= len(r.frames) {
		return false
	}
	r.skipped = append(r.skipped, r.pos)
	r.pos++
	return true
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingScorer struct {
	scored []int
}

func (s *recordingScorer) Score(frame port.Frame) entity.FrameStats {
	f := frame.(*fakeFrame)
	s.scored = append(s.scored, f.index)
	return f.stats
}

type fakeOpener struct {
	reader port.FrameReader
	err    error
}

func (o fakeOpener) Open(_ context.Context, _ string) (port.FrameReader, error) {
	return o.reader, o.err
}

func edges(density float64) entity.FrameStats {
	return entity.FrameStats{EdgeDensity: density}
}

func uniform(n int) []entity.FrameStats {
	return make([]entity.FrameStats, n)
}

func newTestSelector(scorer port.FrameScorer) *Selector {
	return New(scorer, entity.DefaultScoreWeights(), zap.NewNop())
}

func TestSelectOnlyScoresStrideMultiples(t *testing.T) {
	stats := uniform(10)
	stats[3] = edges(1)
	stats[7] = edges(1)
	stats[6] = edges(0.1)

	reader := newFakeReader(stats...)
	scorer := &recordingScorer{}

	sel, err := newTestSelector(scorer).Select(reader, 3)
	require.NoError(t, err)
	defer sel.Close()

	assert.Equal(t, []int{0, 3, 6, 9}, scorer.scored)
	assert.Equal(t, 3, sel.Index)
	assert.Equal(t, 4, sel.Sampled)
	assert.Equal(t, 10, sel.Frames)
	assert.Equal(t, []int{1, 2, 4, 5, 7, 8}, reader.skipped)
}

func TestSelectIgnoresUnsampledOutlier(t *testing.T) {
	stats := uniform(10)
	stats[5] = edges(1)
	stats[4] = edges(0.01)

	sel, err := newTestSelector(&recordingScorer{}).Select(newFakeReader(stats...), 2)
	require.NoError(t, err)
	defer sel.Close()

	assert.Equal(t, 4, sel.Index)
	assert.InDelta(t, 50.0, sel.Score, 1e-9)
}

func TestSelectTieKeepsEarliestFrame(t *testing.T) {
	stats := []entity.FrameStats{edges(0.1), edges(0.5), edges(0.2), edges(0.5)}

	sel, err := newTestSelector(&recordingScorer{}).Select(newFakeReader(stats...), 1)
	require.NoError(t, err)
	defer sel.Close()

	assert.Equal(t, 1, sel.Index)
}

func TestSelectStrideOneScoresEveryFrame(t *testing.T) {
	scorer := &recordingScorer{}
	sel, err := newTestSelector(scorer).Select(newFakeReader(uniform(5)...), 1)
	require.NoError(t, err)
	defer sel.Close()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, scorer.scored)
	assert.Equal(t, 0, sel.Index)
}

func TestSelectLargeStrideScoresOnlyFirstFrame(t *testing.T) {
	for _, stride := range []int{5, 6, 100} {
		t.Run(fmt.Sprintf("stride_%d", stride), func(t *testing.T) {
			stats := uniform(5)
			stats[4] = edges(1)
			scorer := &recordingScorer{}

			sel, err := newTestSelector(scorer).Select(newFakeReader(stats...), stride)
			require.NoError(t, err)
			defer sel.Close()

			assert.Equal(t, []int{0}, scorer.scored)
			assert.Equal(t, 0, sel.Index)
			assert.Equal(t, 5, sel.Frames)
		})
	}
}

func TestSelectEmptyStream(t *testing.T) {
	reader := newFakeReader()

	sel, err := newTestSelector(&recordingScorer{}).Select(reader, 30)
	assert.Nil(t, sel)
	assert.ErrorIs(t, err, entity.ErrNoFrame)
	assert.True(t, reader.closed)
}

func TestSelectRejectsInvalidStride(t *testing.T) {
	reader := newFakeReader(uniform(3)...)

	_, err := newTestSelector(&recordingScorer{}).Select(reader, 0)
	assert.ErrorIs(t, err, entity.ErrInvalidStride)
	assert.True(t, reader.closed)
}

func TestSelectReleasesLosingFrames(t *testing.T) {
	stats := []entity.FrameStats{edges(0.1), edges(0.3), edges(0.2)}
	reader := newFakeReader(stats...)

	sel, err := newTestSelector(&recordingScorer{}).Select(reader, 1)
	require.NoError(t, err)

	assert.True(t, reader.frames[0].closed)
	assert.False(t, reader.frames[1].closed)
	assert.True(t, reader.frames[2].closed)
	assert.True(t, reader.closed)

	require.NoError(t, sel.Close())
	assert.True(t, reader.frames[1].closed)
	assert.Nil(t, sel.Frame)
}

func TestSelectCheckerboardBetweenSamples(t *testing.T) {
	// 90 frames of flat gray with one busy frame at 45; stride 30 never sees it.
	stats := uniform(90)
	stats[45] = entity.FrameStats{
		SharpnessVariance:  40000,
		PixelVariance:      16256,
		EdgeDensity:        0.2,
		SaturationVariance: 0,
	}
	scorer := &recordingScorer{}

	sel, err := newTestSelector(scorer).Select(newFakeReader(stats...), 30)
	require.NoError(t, err)
	defer sel.Close()

	assert.Equal(t, []int{0, 30, 60}, scorer.scored)
	assert.Contains(t, []int{0, 30, 60}, sel.Index)
	assert.Equal(t, 0, sel.Index)
	assert.Zero(t, sel.Score)
}

func TestSelectFilePropagatesOpenError(t *testing.T) {
	openErr := fmt.Errorf("%w: missing.mp4", entity.ErrOpenStream)

	_, err := newTestSelector(&recordingScorer{}).SelectFile(context.Background(), fakeOpener{err: openErr}, "missing.mp4", 30)
	assert.ErrorIs(t, err, entity.ErrOpenStream)
	assert.False(t, errors.Is(err, entity.ErrNoFrame))
}

func TestSelectFileRejectsStrideBeforeOpening(t *testing.T) {
	reader := newFakeReader(uniform(1)...)

	_, err := newTestSelector(&recordingScorer{}).SelectFile(context.Background(), fakeOpener{reader: reader}, "clip.mp4", -1)
	assert.ErrorIs(t, err, entity.ErrInvalidStride)
	assert.Zero(t, reader.pos)
}

func TestSelectionInfo(t *testing.T) {
	sel := &Selection{Index: 30, Score: 12.5, Sampled: 3, Stats: edges(0.0025)}
	info := sel.Info()

	assert.Equal(t, 30, info.Index)
	assert.Equal(t, 12.5, info.Score)
	assert.Equal(t, 3, info.Sampled)
	assert.Equal(t, 0.0025, info.Stats.EdgeDensity)
}
