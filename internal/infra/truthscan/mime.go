package truthscan

import (
	"path/filepath"
	"strings"
)

var imageMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var videoMIME = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func imageMIMEType(path string) string {
	if t, ok := imageMIME[ext(path)]; ok {
		return t
	}
	return "image/jpeg"
}

// detectFileType is the fileType the detect step reports. The service only
// distinguishes png from jpeg there.
func detectFileType(path string) string {
	if ext(path) == ".png" {
		return "image/png"
	}
	return "image/jpeg"
}

func videoMIMEType(path string) string {
	if t, ok := videoMIME[ext(path)]; ok {
		return t
	}
	return "video/mp4"
}
