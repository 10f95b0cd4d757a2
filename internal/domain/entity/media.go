package entity

import (
	"path/filepath"
	"strings"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// VideoMode picks how a video reaches the detector: uploaded whole, or
// reduced to its most complex frame and checked as an image.
type VideoMode string

const (
	VideoModeDirect VideoMode = "direct"
	VideoModeFrame  VideoMode = "frame"
)

func (m VideoMode) Valid() bool {
	return m == VideoModeDirect || m == VideoModeFrame
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// KindFromPath guesses the media kind from the file extension. Anything that
// is not a known still image format is treated as video.
func KindFromPath(path string) MediaKind {
	if imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return MediaKindImage
	}
	return MediaKindVideo
}
