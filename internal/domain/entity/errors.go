package entity

import "errors"

var (
	// ErrOpenStream means the video source could not be opened or decoded at all.
	ErrOpenStream = errors.New("open video stream")
	// ErrNoFrame means the stream opened but yielded no scoreable frame.
	ErrNoFrame = errors.New("no frame could be scored")
	// ErrInvalidStride is returned for a sampling stride below 1.
	ErrInvalidStride = errors.New("sample stride must be at least 1")
	// ErrMediaNotFound means the queued media object does not exist.
	ErrMediaNotFound = errors.New("media object not found")
)
