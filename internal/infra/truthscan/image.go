package truthscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/retry"
	"go.uber.org/zap"
)

// CheckImage runs upload, detect, moderate and analyze for one image.
// Upload and detect are retried; moderation and analysis are best effort.
func (c *Client) CheckImage(ctx context.Context, path string) (*entity.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("image not found: %s", path)
	}
	log := c.logger.With(zap.String("path", path))

	var up uploadResponse
	log.Debug("uploading image")
	err = c.withRetry(ctx, "/upload-image", log, func(ctx context.Context) error {
		up = uploadResponse{}
		return c.uploadImage(ctx, path, &up)
	})
	if err != nil {
		return nil, fmt.Errorf("image upload failed: %w", err)
	}

	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	var det detectResponse
	log.Debug("running ai detection")
	err = c.withRetry(ctx, "/ai-detect-image", log, func(ctx context.Context) error {
		det = detectResponse{}
		return c.detectImage(ctx, up, filepath.Base(path), info.Size(), detectFileType(path), &det)
	})
	if err != nil {
		return nil, fmt.Errorf("ai detection failed: %w", err)
	}

	if err := c.pause(ctx); err != nil {
		return nil, err
	}
	moderation := c.moderate(ctx, up.ImageURL)
	log.Debug("moderation result", zap.Any("moderation", moderation))

	if err := c.pause(ctx); err != nil {
		return nil, err
	}
	rd, rawDetails := det.resultDetails()
	analysis := c.analyze(ctx, up.ImageURL, det, rd.FinalResult, rawDetails)

	return imageReport(det, rd, analysis), nil
}

func (c *Client) uploadImage(ctx context.Context, path string, out *uploadResponse) error {
	f, err := os.Open(path)
	if err != nil {
		return retry.Permanent(fmt.Errorf("open image: %w", err))
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	err = writeMultipart(w, &filePart{
		field:       "file",
		fileName:    filepath.Base(path),
		contentType: imageMIMEType(path),
		body:        f,
	}, nil)
	if err != nil {
		return retry.Permanent(err)
	}

	if err := c.post(ctx, "/upload-image", imageReferer, uploadTimeout, w.FormDataContentType(), body, out); err != nil {
		return err
	}
	if !out.Success {
		return errors.New(errorText(out.Error))
	}
	return nil
}

func (c *Client) detectImage(
	ctx context.Context,
	up uploadResponse,
	fileName string,
	fileSize int64,
	fileType string,
	out *detectResponse,
) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	err := writeMultipart(w, nil, []formField{
		{"imageUrl", up.ImageURL},
		{"fileName", fileName},
		{"fileSize", strconv.FormatInt(fileSize, 10)},
		{"fileType", fileType},
		{"r2FilePath", up.R2FilePath},
	})
	if err != nil {
		return retry.Permanent(err)
	}

	if err := c.post(ctx, "/ai-detect-image", imageReferer, detectTimeout, w.FormDataContentType(), body, out); err != nil {
		return err
	}
	if !out.Success {
		return errors.New(errorText(out.Error))
	}
	return nil
}

// moderate never fails: an unreachable moderation endpoint counts as safe.
func (c *Client) moderate(ctx context.Context, imageURL string) map[string]any {
	form := url.Values{"imageUrl": {imageURL}}
	var out map[string]any
	err := c.post(ctx, "/moderate-content", imageReferer, moderateTimeout,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out)
	if err != nil || out == nil {
		return map[string]any{"safe": true}
	}
	return out
}

// analyze is optional detail; failures yield an empty analysis.
func (c *Client) analyze(
	ctx context.Context,
	imageURL string,
	det detectResponse,
	finalResult string,
	rawDetails []byte,
) map[string]any {
	form := url.Values{
		"imageUrl":          {imageURL},
		"aiScore":           {strconv.FormatFloat(det.Score, 'f', -1, 64)},
		"finalResult":       {finalResult},
		"detectionResultId": {det.DetectionResultID},
		"resultDetails":     {string(rawDetails)},
	}
	var out map[string]any
	err := c.post(ctx, "/ai-image-analysis", imageReferer, analysisTimeout,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out)
	if err != nil {
		c.logger.Debug("analysis endpoint failed (non-critical)", zap.Error(err))
		return map[string]any{}
	}
	if out == nil {
		return map[string]any{}
	}
	return out
}

func imageReport(det detectResponse, rd resultDetails, analysis map[string]any) *entity.Report {
	verdict := rd.FinalResult
	if verdict == "" {
		verdict = "Real"
		if det.IsAI {
			verdict = "AI Generated"
		}
	}

	if analysis == nil {
		analysis = map[string]any{}
	}
	metadata := rd.Metadata
	if len(metadata) == 0 || string(metadata) == "null" {
		metadata = []byte(`[]`)
	}

	return &entity.Report{
		Success:         true,
		Verdict:         verdict,
		AIPercentage:    det.Score,
		HumanPercentage: 100 - det.Score,
		Confidence:      confidenceOrUnknown(det.Confidence),
		IsAIGenerated:   det.IsAI,
		ImageDetails: &entity.ImageDetails{
			HeatmapURL:    rd.HeatmapURL,
			Analysis:      analysis,
			Metadata:      metadata,
			DetectionStep: rd.DetectionStep,
		},
	}
}
