package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/domain/port"
	"github.com/mediacheck/truthscan-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Analyzer is the part of AnalyzeMedia the worker depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*entity.Report, error)
}

type ProcessJob struct {
	repo      port.JobRepository
	storage   port.MediaStorage
	analyzer  Analyzer
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
	mode      entity.VideoMode
}

type ProcessJobConfig struct {
	TempDir     string
	MaxRetries  int
	// DefaultMode applies to video messages that carry no mode.
	DefaultMode entity.VideoMode
}

func NewProcessJob(
	repo port.JobRepository,
	storage port.MediaStorage,
	analyzer Analyzer,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessJobConfig,
) *ProcessJob {
	return &ProcessJob{
		repo:      repo,
		storage:   storage,
		analyzer:  analyzer,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
		mode:      cfg.DefaultMode,
	}
}

// Execute handles one delivery. A nil return acks the message; an error asks
// the consumer to requeue it.
func (uc *ProcessJob) Execute(ctx context.Context, rawMsg []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ProcessJob.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.AnalysisJobMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.MediaKey == "" {
		uc.logger.Error("message without media key", zap.String("job_id", msg.JobID.String()))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_message: missing media_key")
		return nil
	}
	if msg.Mode != "" && !msg.Mode.Valid() {
		uc.logger.Error("message with unknown mode", zap.String("mode", string(msg.Mode)))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_message: unknown mode "+string(msg.Mode))
		return nil
	}
	if msg.MediaKind == "" {
		msg.MediaKind = entity.KindFromPath(msg.MediaKey)
	}
	if msg.Mode == "" {
		msg.Mode = uc.mode
	}
	if msg.Mode == "" {
		msg.Mode = entity.VideoModeDirect
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.media_key", msg.MediaKey),
		attribute.String("job.media_kind", string(msg.MediaKind)),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("media_key", msg.MediaKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewAnalysisJob(msg.UserID, msg.MediaKey, msg.MediaKind, msg.Mode, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.pipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.StageDuration.WithLabelValues("job").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessJob) pipeline(
	ctx context.Context,
	job *entity.AnalysisJob,
	msg entity.AnalysisJobMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_media")
	mediaPath := filepath.Join(workDir, "input"+strings.ToLower(filepath.Ext(msg.MediaKey)))
	if err := uc.storage.DownloadMedia(dlCtx, msg.MediaKey, mediaPath); err != nil {
		spanDl.End()
		log.Error("failed to download media", zap.Error(err))
		if errors.Is(err, entity.ErrMediaNotFound) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "download_media: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_media: "+err.Error(), log)
	}
	spanDl.End()
	observeStage("download", dlStart)

	framePath := ""
	if msg.MediaKind == entity.MediaKindVideo && msg.Mode == entity.VideoModeFrame {
		framePath = filepath.Join(workDir, "frame.jpg")
	}

	report, err := uc.analyzer.Analyze(ctx, AnalyzeRequest{
		Path:      mediaPath,
		Kind:      msg.MediaKind,
		Mode:      msg.Mode,
		FramePath: framePath,
	})
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
		if IsFrameExtractionError(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "analyze: "+err.Error(), log)
	}

	frameKey := ""
	if report.Frame != nil {
		frameKey = fmt.Sprintf("%s/frame_%s.jpg", msg.UserID, job.ID.String())
		if err := uc.uploadFrame(ctx, frameKey, framePath); err != nil {
			log.Error("frame upload failed", zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_frame: "+err.Error(), log)
		}
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "encode_report: "+err.Error())
	}

	job.MarkCompleted(report, encoded, frameKey)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()

	log.Info("job completed successfully",
		zap.String("verdict", report.Verdict),
		zap.Float64("ai_percentage", report.AIPercentage),
		zap.String("frame_key", frameKey),
	)
	return nil
}

func (uc *ProcessJob) uploadFrame(ctx context.Context, key, path string) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "upload_frame")
	defer span.End()
	defer observeStage("upload", time.Now())

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	return uc.storage.UploadFrame(ctx, key, f, stat.Size())
}

func (uc *ProcessJob) handleRetryableFailure(
	ctx context.Context,
	job *entity.AnalysisJob,
	msg entity.AnalysisJobMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	metrics.JobsProcessedTotal.WithLabelValues("retry").Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessJob) handlePermanentFailure(
	ctx context.Context,
	job *entity.AnalysisJob,
	msg entity.AnalysisJobMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		if err := uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.MediaKey, errMsg); err != nil {
			uc.logger.Warn("failure notification not sent", zap.Error(err))
		}
	}
	return nil
}

func (uc *ProcessJob) publishStatus(ctx context.Context, job *entity.AnalysisJob, log *zap.Logger) {
	statusMsg := entity.AnalysisStatusMessage{
		JobID:         job.ID,
		UserID:        job.UserID,
		Status:        job.Status,
		MediaKey:      job.MediaKey,
		FrameKey:      job.FrameKey,
		FrameIndex:    job.FrameIndex,
		Verdict:       job.Verdict,
		AIPercentage:  job.AIPercentage,
		IsAIGenerated: job.IsAIGenerated,
		ErrorMessage:  job.ErrorMessage,
		Attempt:       job.Attempt,
		MaxAttempts:   job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
