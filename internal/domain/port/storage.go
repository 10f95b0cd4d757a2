package port

import (
	"context"
	"io"
)

type MediaStorage interface {
	DownloadMedia(ctx context.Context, objectKey string, destPath string) error
	UploadFrame(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
