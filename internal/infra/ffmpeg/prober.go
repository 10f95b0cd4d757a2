package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const bytesPerEstimatedSecond = 1024 * 1024

type Prober struct {
	bin    string
	logger *zap.Logger
}

func NewProber(ffprobeBin string, logger *zap.Logger) *Prober {
	return &Prober{bin: ffprobeBin, logger: logger}
}

// Duration returns the video length in whole seconds, at least 1. When
// ffprobe is unavailable the length is estimated from the file size.
func (p *Prober) Duration(ctx context.Context, videoPath string) (int, error) {
	secs, err := p.probeDuration(ctx, videoPath)
	if err == nil {
		rounded := roundDuration(secs)
		p.logger.Debug("ffprobe duration",
			zap.Float64("duration_secs", secs),
			zap.Int("rounded_secs", rounded),
		)
		return rounded, nil
	}

	info, serr := os.Stat(videoPath)
	if serr != nil {
		return 0, fmt.Errorf("stat video: %w", serr)
	}
	estimated := estimateDuration(info.Size())
	p.logger.Warn("ffprobe failed, estimating duration from file size",
		zap.Error(err),
		zap.Int64("file_size", info.Size()),
		zap.Int("estimated_secs", estimated),
	)
	return estimated, nil
}

func (p *Prober) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// FrameSize reads the first video stream's dimensions.
func (p *Prober) FrameSize(ctx context.Context, videoPath string) (width, height int, err error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseFrameSize(output)
}

type probeStreams struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

func parseFrameSize(output []byte) (int, int, error) {
	var info probeStreams
	if err := json.Unmarshal(output, &info); err != nil {
		return 0, 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if len(info.Streams) == 0 {
		return 0, 0, fmt.Errorf("no video stream")
	}
	s := info.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height)
	}
	return s.Width, s.Height, nil
}

// roundDuration rounds half to even, as the backend expects.
func roundDuration(secs float64) int {
	return max(1, int(math.RoundToEven(secs)))
}

func estimateDuration(size int64) int {
	return max(1, int(size/bytesPerEstimatedSecond))
}
