package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"github.com/mediacheck/truthscan-service/internal/infra/metrics"
	"github.com/mediacheck/truthscan-service/internal/selector"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type AnalyzeRequest struct {
	Path string
	// Kind and Mode fall back to the file extension and the configured mode.
	Kind entity.MediaKind
	Mode entity.VideoMode
	// Stride and Quality override the configured selector settings when > 0.
	Stride  int
	Quality int
	// FramePath keeps the selected frame at this path. When empty the frame
	// goes to a temporary file that is removed afterwards.
	FramePath string
}

type AnalyzeMediaConfig struct {
	Stride      int
	JPEGQuality int
	DefaultMode entity.VideoMode
	TempDir     string
}

type AnalyzeMedia struct {
	detector port.Detector
	selector *selector.Selector
	opener   port.FrameOpener
	encoder  port.FrameEncoder
	prober   port.DurationProber
	logger   *zap.Logger
	cfg      AnalyzeMediaConfig
}

func NewAnalyzeMedia(
	detector port.Detector,
	sel *selector.Selector,
	opener port.FrameOpener,
	encoder port.FrameEncoder,
	prober port.DurationProber,
	logger *zap.Logger,
	cfg AnalyzeMediaConfig,
) *AnalyzeMedia {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = entity.VideoModeDirect
	}
	return &AnalyzeMedia{
		detector: detector,
		selector: sel,
		opener:   opener,
		encoder:  encoder,
		prober:   prober,
		logger:   logger,
		cfg:      cfg,
	}
}

// IsFrameExtractionError reports whether err means no frame could be taken
// from the video. Retrying does not help.
func IsFrameExtractionError(err error) bool {
	return errors.Is(err, entity.ErrOpenStream) ||
		errors.Is(err, entity.ErrNoFrame) ||
		errors.Is(err, entity.ErrInvalidStride)
}

func (uc *AnalyzeMedia) Analyze(ctx context.Context, req AnalyzeRequest) (report *entity.Report, err error) {
	kind := req.Kind
	if kind == "" {
		kind = entity.KindFromPath(req.Path)
	}
	mode := req.Mode
	if mode == "" {
		mode = uc.cfg.DefaultMode
	}

	ctx, span := otel.Tracer("usecase").Start(ctx, "AnalyzeMedia.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("media.path", req.Path),
		attribute.String("media.kind", string(kind)),
		attribute.String("media.mode", string(mode)),
	)

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.AnalysesTotal.WithLabelValues(string(kind), outcome).Inc()
		metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	}()

	log := uc.logger.With(zap.String("path", req.Path), zap.String("kind", string(kind)))

	switch {
	case kind == entity.MediaKindImage:
		return uc.checkImage(ctx, req.Path)
	case mode == entity.VideoModeDirect:
		return uc.checkVideo(ctx, req.Path, log)
	case mode == entity.VideoModeFrame:
		return uc.checkFrame(ctx, req, log)
	default:
		return nil, fmt.Errorf("unknown video mode %q", mode)
	}
}

func (uc *AnalyzeMedia) checkImage(ctx context.Context, path string) (*entity.Report, error) {
	defer observeStage("detect_image", time.Now())
	return uc.detector.CheckImage(ctx, path)
}

func (uc *AnalyzeMedia) checkVideo(ctx context.Context, path string, log *zap.Logger) (*entity.Report, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video not found: %s", path)
	}

	duration, err := uc.prober.Duration(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}
	log.Debug("video duration", zap.Int("duration_secs", duration))

	defer observeStage("detect_video", time.Now())
	return uc.detector.CheckVideo(ctx, path, duration)
}

func (uc *AnalyzeMedia) checkFrame(ctx context.Context, req AnalyzeRequest, log *zap.Logger) (*entity.Report, error) {
	framePath := req.FramePath
	if framePath == "" {
		dir, err := os.MkdirTemp(uc.cfg.TempDir, "frame-*")
		if err != nil {
			return nil, fmt.Errorf("create frame dir: %w", err)
		}
		defer os.RemoveAll(dir)
		framePath = filepath.Join(dir, "frame.jpg")
	}

	info, err := uc.ExtractFrame(ctx, req.Path, framePath, req.Stride, req.Quality)
	if err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}
	log.Info("checking selected frame", zap.Int("frame_index", info.Index), zap.Float64("score", info.Score))

	report, err := uc.checkImage(ctx, framePath)
	if err != nil {
		return nil, err
	}
	report.Frame = info
	return report, nil
}

// ExtractFrame selects the most complex frame of the video at path and writes
// it to out as JPEG.
func (uc *AnalyzeMedia) ExtractFrame(ctx context.Context, path, out string, stride, quality int) (*entity.FrameInfo, error) {
	if stride <= 0 {
		stride = uc.cfg.Stride
	}
	if quality <= 0 {
		quality = uc.cfg.JPEGQuality
	}

	ctx, span := otel.Tracer("usecase").Start(ctx, "select_frame")
	defer span.End()
	span.SetAttributes(attribute.Int("selector.stride", stride))

	selStart := time.Now()
	sel, err := uc.selector.SelectFile(ctx, uc.opener, path, stride)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer sel.Close()
	observeStage("select_frame", selStart)
	metrics.FramesScoredTotal.Add(float64(sel.Sampled))
	span.SetAttributes(
		attribute.Int("selector.frame_index", sel.Index),
		attribute.Int("selector.sampled", sel.Sampled),
	)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	if err := uc.encoder.WriteJPEG(sel.Frame, out, quality); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	return sel.Info(), nil
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
