package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/infra/opencv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRoundDuration(t *testing.T) {
	assert.Equal(t, 1, roundDuration(0.2))
	assert.Equal(t, 2, roundDuration(2.5))
	assert.Equal(t, 4, roundDuration(3.5))
	assert.Equal(t, 13, roundDuration(12.7))
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, 1, estimateDuration(0))
	assert.Equal(t, 1, estimateDuration(1500*1024))
	assert.Equal(t, 5, estimateDuration(5*1024*1024+10))
}

func TestParseFrameSize(t *testing.T) {
	w, h, err := parseFrameSize([]byte(`{"programs":[],"streams":[{"width":320,"height":240}]}`))
	require.NoError(t, err)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)

	_, _, err = parseFrameSize([]byte(`{"streams":[]}`))
	assert.Error(t, err)

	_, _, err = parseFrameSize([]byte(`{"streams":[{"width":0,"height":240}]}`))
	assert.Error(t, err)
}

func TestDurationFallsBackToFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 3*1024*1024), 0o644))

	p := NewProber("ffprobe-does-not-exist", zap.NewNop())
	secs, err := p.Duration(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, secs)
}

func TestDurationMissingFile(t *testing.T) {
	p := NewProber("ffprobe-does-not-exist", zap.NewNop())
	_, err := p.Duration(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	log := zap.NewNop()
	o := NewOpener("ffmpeg", NewProber("ffprobe", log), log)

	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, entity.ErrOpenStream)
}

// testClip renders a 2 second, 10 fps test pattern.
func testClip(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg", "-v", "error",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=64x48:rate=10",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-y", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot render test clip: %v: %s", err, out)
	}
	return path
}

func TestDecoderReadsAllFrames(t *testing.T) {
	path := testClip(t)
	log := zap.NewNop()
	o := NewOpener("ffmpeg", NewProber("ffprobe", log), log)

	reader, err := o.Open(context.Background(), path)
	require.NoError(t, err)

	frames := 0
	for {
		if frames%2 == 0 {
			f, ok := reader.Read()
			if !ok {
				break
			}
			f.Close()
		} else if !reader.Skip() {
			break
		}
		frames++
	}
	assert.Equal(t, 20, frames)
	assert.NoError(t, reader.Close())
}

func TestDecoderCloseMidStream(t *testing.T) {
	path := testClip(t)
	log := zap.NewNop()
	o := NewOpener("ffmpeg", NewProber("ffprobe", log), log)

	reader, err := o.Open(context.Background(), path)
	require.NoError(t, err)

	f, ok := reader.Read()
	require.True(t, ok)
	f.Close()
	assert.NoError(t, reader.Close())
}

func TestDecodeArgsDisableAutorotate(t *testing.T) {
	args := decodeArgs("in.mp4")
	noRotate := slices.Index(args, "-noautorotate")
	input := slices.Index(args, "-i")
	require.NotEqual(t, -1, noRotate)
	assert.Less(t, noRotate, input)
}

// rotatedCopy remuxes path with a 90 degree display rotation.
func rotatedCopy(t *testing.T, path string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "rotated.mp4")
	attempts := [][]string{
		{"-v", "error", "-display_rotation", "90", "-i", path, "-c", "copy", "-y", out},
		{"-v", "error", "-i", path, "-c", "copy", "-metadata:s:v:0", "rotate=90", "-y", out},
	}
	for _, args := range attempts {
		if err := exec.Command("ffmpeg", args...).Run(); err == nil {
			return out
		}
	}
	t.Skip("ffmpeg cannot tag rotation")
	return ""
}

func firstFrame(t *testing.T, o *Opener, path string) *opencv.Frame {
	t.Helper()
	reader, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer reader.Close()

	f, ok := reader.Read()
	require.True(t, ok)
	return f.(*opencv.Frame)
}

func TestDecoderKeepsShapeOfRotatedClip(t *testing.T) {
	path := testClip(t)
	rotated := rotatedCopy(t, path)
	log := zap.NewNop()
	o := NewOpener("ffmpeg", NewProber("ffprobe", log), log)

	plain := firstFrame(t, o, path)
	defer plain.Close()
	turned := firstFrame(t, o, rotated)
	defer turned.Close()

	assert.Equal(t, 48, turned.Mat.Rows())
	assert.Equal(t, 64, turned.Mat.Cols())
	assert.Equal(t, plain.Mat.ToBytes(), turned.Mat.ToBytes())
}

func TestProbeDurationOfClip(t *testing.T) {
	path := testClip(t)
	secs, err := NewProber("ffprobe", zap.NewNop()).Duration(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, secs)
}
