package port

import (
	"context"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
)

type Detector interface {
	CheckImage(ctx context.Context, path string) (*entity.Report, error)
	CheckVideo(ctx context.Context, path string, durationSecs int) (*entity.Report, error)
}
