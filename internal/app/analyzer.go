// Package app builds the analysis pipeline from configuration for both the
// CLI and the worker.
package app

import (
	"net/http"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"github.com/mediacheck/truthscan-service/internal/infra/config"
	"github.com/mediacheck/truthscan-service/internal/infra/ffmpeg"
	"github.com/mediacheck/truthscan-service/internal/infra/opencv"
	"github.com/mediacheck/truthscan-service/internal/infra/truthscan"
	"github.com/mediacheck/truthscan-service/internal/selector"
	"github.com/mediacheck/truthscan-service/internal/usecase"
	"go.uber.org/zap"
)

func NewAnalyzer(cfg *config.Config, log *zap.Logger) *usecase.AnalyzeMedia {
	prober := ffmpeg.NewProber(cfg.FFprobeBin, log)

	var opener port.FrameOpener = opencv.NewOpener()
	if cfg.Decoder == config.DecoderFFmpeg {
		opener = ffmpeg.NewOpener(cfg.FFmpegBin, prober, log)
	}

	sel := selector.New(opencv.NewScorer(cfg.CannyLow, cfg.CannyHigh), cfg.Weights(), log)
	client := truthscan.NewClient(&http.Client{}, cfg.TruthScan(), log)

	return usecase.NewAnalyzeMedia(client, sel, opener, opencv.NewEncoder(), prober, log, usecase.AnalyzeMediaConfig{
		Stride:      cfg.Stride,
		JPEGQuality: cfg.JPEGQuality,
		DefaultMode: entity.VideoMode(cfg.VideoMode),
		TempDir:     cfg.TempDir,
	})
}
