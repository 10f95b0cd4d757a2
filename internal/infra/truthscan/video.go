package truthscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"go.uber.org/zap"
)

// CheckVideo uploads the whole video to the video detector in one call.
func (c *Client) CheckVideo(ctx context.Context, path string, durationSecs int) (*entity.Report, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video not found: %s", path)
	}
	fileName := filepath.Base(path)
	mimeType := videoMIMEType(path)

	c.logger.Debug("uploading video",
		zap.String("path", path),
		zap.String("mime_type", mimeType),
		zap.Int("duration_secs", durationSecs),
	)

	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	w := multipart.NewWriter(pw)
	go func() {
		f, err := os.Open(path)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer f.Close()
		pw.CloseWithError(writeMultipart(w, &filePart{
			field:       "video",
			fileName:    fileName,
			contentType: mimeType,
			body:        f,
		}, []formField{
			{"fileName", fileName},
			{"fileType", mimeType},
			{"duration", strconv.Itoa(durationSecs)},
		}))
	}()

	var resp videoResponse
	err := c.post(ctx, "/ai-detect-video", videoReferer, videoTimeout, w.FormDataContentType(), pr, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("video detection failed: %s", se.Detail())
		}
		return nil, fmt.Errorf("video detection failed: %w", err)
	}
	if resp.Score == 0 && resp.Error != nil {
		return nil, fmt.Errorf("video detection failed: %s", errorText(resp.Error))
	}

	return videoReport(resp), nil
}

func videoReport(resp videoResponse) *entity.Report {
	verdict := resp.ResultDetails.FinalResult
	if verdict == "" {
		verdict = "Human Created"
		if resp.VideoIsAI {
			verdict = "AI Generated"
		}
	}
	return &entity.Report{
		Success:         true,
		Verdict:         verdict,
		AIPercentage:    resp.VideoScore,
		HumanPercentage: 100 - resp.VideoScore,
		Confidence:      confidenceOrUnknown(resp.VideoConfidence),
		IsAIGenerated:   resp.VideoIsAI,
	}
}
