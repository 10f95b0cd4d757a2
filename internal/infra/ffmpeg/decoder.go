package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"github.com/mediacheck/truthscan-service/internal/infra/opencv"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Opener decodes video through an ffmpeg process piping raw bgr24 frames.
type Opener struct {
	bin    string
	prober *Prober
	logger *zap.Logger
}

func NewOpener(ffmpegBin string, prober *Prober, logger *zap.Logger) *Opener {
	return &Opener{bin: ffmpegBin, prober: prober, logger: logger}
}

// Open starts ffmpeg for path. The process lives until the reader is closed
// or ctx ends.
func (o *Opener) Open(ctx context.Context, path string) (port.FrameReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrOpenStream, err)
	}

	width, height, err := o.prober.FrameSize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrOpenStream, path, err)
	}

	cmd := exec.CommandContext(ctx, o.bin, decodeArgs(path)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", entity.ErrOpenStream, err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", entity.ErrOpenStream, err)
	}

	frameSize := width * height * 3
	o.logger.Debug("ffmpeg decoder started",
		zap.String("path", path),
		zap.Int("width", width),
		zap.Int("height", height),
	)

	return &Reader{
		cmd:       cmd,
		source:    bufio.NewReaderSize(stdout, frameSize),
		stderr:    stderr,
		width:     width,
		height:    height,
		frameSize: frameSize,
		logger:    o.logger,
	}, nil
}

// decodeArgs keeps frames in coded orientation. ffprobe reports the coded
// width and height, and autorotation would swap them for rotated clips.
func decodeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-an",
		"-map", "0:v:0",
		"-pix_fmt", "bgr24",
		"-f", "rawvideo",
		"-",
	}
}

type Reader struct {
	cmd       *exec.Cmd
	source    *bufio.Reader
	stderr    *bytes.Buffer
	width     int
	height    int
	frameSize int
	logger    *zap.Logger
}

func (r *Reader) Read() (port.Frame, bool) {
	buffer := make([]byte, r.frameSize)
	if _, err := io.ReadFull(r.source, buffer); err != nil {
		return nil, false
	}

	view, err := gocv.NewMatFromBytes(r.height, r.width, gocv.MatTypeCV8UC3, buffer)
	if err != nil {
		return nil, false
	}
	// The view borrows buffer; clone so the frame owns its pixels.
	m := view.Clone()
	view.Close()
	return opencv.NewFrame(m), true
}

func (r *Reader) Skip() bool {
	n, err := io.CopyN(io.Discard, r.source, int64(r.frameSize))
	return err == nil && n == int64(r.frameSize)
}

func (r *Reader) Close() error {
	// Harmless if ffmpeg already exited: it is not reaped until Wait, which
	// also closes stdout.
	_ = r.cmd.Process.Kill()
	err := r.cmd.Wait()
	if r.stderr.Len() > 0 {
		r.logger.Debug("ffmpeg decoder output", zap.String("stderr", r.stderr.String()))
	}
	if err != nil && r.cmd.ProcessState != nil && !r.cmd.ProcessState.Exited() {
		return nil
	}
	return err
}
