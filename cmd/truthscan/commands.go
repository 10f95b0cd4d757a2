package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mediacheck/truthscan-service/internal/app"
	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/infra/config"
	miniostorage "github.com/mediacheck/truthscan-service/internal/infra/minio"
	"github.com/mediacheck/truthscan-service/internal/infra/rabbitmq"
	"github.com/mediacheck/truthscan-service/internal/usecase"
	"github.com/mediacheck/truthscan-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	cfg      *config.Config
	log      *zap.Logger
	logLevel string
	result   any
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "truthscan",
		Short:         "Check images and videos with the TruthScan AI detector",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(c.imageCommand(), c.videoCommand(), c.frameCommand(), c.submitCommand())
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.cfg, c.log = cfg, log
	return nil
}

func (c *cli) imageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image <path>",
		Short: "Analyze one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.NewAnalyzer(c.cfg, c.log).Analyze(cmd.Context(), usecase.AnalyzeRequest{
				Path: args[0],
				Kind: entity.MediaKindImage,
			})
			if err != nil {
				return err
			}
			c.result = report
			return nil
		},
	}
}

func (c *cli) videoCommand() *cobra.Command {
	var (
		mode      string
		stride    int
		quality   int
		keepFrame string
	)
	cmd := &cobra.Command{
		Use:   "video <path>",
		Short: "Analyze a video, whole or through its most complex frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := entity.VideoMode(mode)
			if m != "" && !m.Valid() {
				return fmt.Errorf("invalid --mode %q: want %q or %q", mode, entity.VideoModeDirect, entity.VideoModeFrame)
			}
			if keepFrame != "" && m == "" {
				m = entity.VideoModeFrame
			}
			if cmd.Flags().Changed("stride") && stride < 1 {
				return entity.ErrInvalidStride
			}

			report, err := app.NewAnalyzer(c.cfg, c.log).Analyze(cmd.Context(), usecase.AnalyzeRequest{
				Path:      args[0],
				Kind:      entity.MediaKindVideo,
				Mode:      m,
				Stride:    stride,
				Quality:   quality,
				FramePath: keepFrame,
			})
			if err != nil {
				return err
			}
			c.result = report
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "direct (upload the video) or frame (check its most complex frame)")
	cmd.Flags().IntVar(&stride, "stride", 0, "score every n-th frame in frame mode (default SELECTOR_STRIDE)")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality of the selected frame (default FRAME_JPEG_QUALITY)")
	cmd.Flags().StringVar(&keepFrame, "keep-frame", "", "keep the selected frame at this path; implies --mode frame")
	return cmd
}

type frameResult struct {
	Success bool              `json:"success"`
	Path    string            `json:"path"`
	Frame   *entity.FrameInfo `json:"frame"`
}

func (c *cli) frameCommand() *cobra.Command {
	var (
		out     string
		stride  int
		quality int
	)
	cmd := &cobra.Command{
		Use:   "frame <video>",
		Short: "Write the most complex frame of a video as JPEG without analyzing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("stride") && stride < 1 {
				return entity.ErrInvalidStride
			}
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_frame.jpg"
			}

			info, err := app.NewAnalyzer(c.cfg, c.log).ExtractFrame(cmd.Context(), args[0], out, stride, quality)
			if err != nil {
				return fmt.Errorf("frame extraction failed: %w", err)
			}
			c.result = frameResult{Success: true, Path: out, Frame: info}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output JPEG path (default <video>_frame.jpg)")
	cmd.Flags().IntVar(&stride, "stride", 0, "score every n-th frame (default SELECTOR_STRIDE)")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality (default FRAME_JPEG_QUALITY)")
	return cmd
}

type submitResult struct {
	Success  bool      `json:"success"`
	JobID    uuid.UUID `json:"job_id"`
	MediaKey string    `json:"media_key"`
}

func (c *cli) submitCommand() *cobra.Command {
	var (
		userID    string
		userEmail string
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "submit <path>",
		Short: "Upload media to object storage and queue it for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := entity.VideoMode(mode)
			if m != "" && !m.Valid() {
				return fmt.Errorf("invalid --mode %q", mode)
			}
			if userID == "" {
				return errors.New("--user is required")
			}
			res, err := c.submit(cmd, args[0], userID, userEmail, m)
			if err != nil {
				return err
			}
			c.result = res
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the job")
	cmd.Flags().StringVar(&userEmail, "email", "", "address notified if the job fails for good")
	cmd.Flags().StringVar(&mode, "mode", "", "video mode for the worker (default VIDEO_MODE)")
	return cmd
}

func (c *cli) submit(cmd *cobra.Command, path, userID, userEmail string, mode entity.VideoMode) (*submitResult, error) {
	ctx := cmd.Context()
	cfg := c.cfg

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		FrameBucket:  cfg.MinIOFrameBucket,
	})
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureBuckets(ctx); err != nil {
		return nil, err
	}

	jobID := uuid.New()
	ext := strings.ToLower(filepath.Ext(path))
	key := fmt.Sprintf("%s/%s%s", userID, jobID, ext)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := storage.UploadMedia(ctx, key, path, contentType); err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = rabbitmq.DeclareTopology(ch, cfg.RabbitMQExchange, cfg.RabbitMQJobQueue, cfg.RabbitMQStatusQueue, cfg.RabbitMQDLQ)
	ch.Close()
	if err != nil {
		return nil, err
	}

	pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQExchange)
	if err != nil {
		return nil, err
	}
	defer pub.Close()

	body, err := json.Marshal(entity.AnalysisJobMessage{
		JobID:     jobID,
		UserID:    userID,
		MediaKey:  key,
		MediaKind: entity.KindFromPath(path),
		Mode:      mode,
		UserEmail: userEmail,
	})
	if err != nil {
		return nil, err
	}
	if err := rabbitmq.NewJobPublisher(pub).PublishJob(ctx, body); err != nil {
		return nil, fmt.Errorf("publish job: %w", err)
	}

	c.log.Info("job submitted", zap.String("job_id", jobID.String()), zap.String("media_key", key))
	return &submitResult{Success: true, JobID: jobID, MediaKey: key}, nil
}
