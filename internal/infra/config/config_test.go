package config

import (
	"testing"
	"time"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	"github.com/mediacheck/truthscan-service/internal/infra/truthscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Stride)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, DecoderOpenCV, cfg.Decoder)
	assert.Equal(t, "direct", cfg.VideoMode)
	assert.Equal(t, entity.DefaultScoreWeights(), cfg.Weights())
	assert.Equal(t, float32(100), cfg.CannyLow)
	assert.Equal(t, float32(200), cfg.CannyHigh)
	assert.Equal(t, "media.analysis", cfg.RabbitMQJobQueue)
	assert.Equal(t, "frames", cfg.MinIOFrameBucket)

	ts := cfg.TruthScan()
	assert.Equal(t, truthscan.DefaultBaseURL, ts.BaseURL)
	assert.Equal(t, truthscan.DefaultUserAgent, ts.UserAgent)
	assert.Equal(t, 3, ts.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, ts.Retry.BaseDelay)
	assert.Equal(t, 500*time.Millisecond, ts.Retry.JitterMin)
	assert.Equal(t, 2*time.Second, ts.Retry.JitterMax)
	assert.Equal(t, time.Second, ts.MinInterval)
	assert.Equal(t, 1500*time.Millisecond, ts.JitterMax)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SELECTOR_STRIDE", "5")
	t.Setenv("SELECTOR_WEIGHT_EDGE", "100")
	t.Setenv("DECODER", "ffmpeg")
	t.Setenv("VIDEO_MODE", "frame")
	t.Setenv("TRUTHSCAN_BASE_DELAY", "250ms")
	t.Setenv("TRUTHSCAN_USER_AGENT", "probe/1.0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Stride)
	assert.Equal(t, 100.0, cfg.Weights().Edge)
	assert.Equal(t, DecoderFFmpeg, cfg.Decoder)
	assert.Equal(t, "frame", cfg.VideoMode)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryPolicy().BaseDelay)
	assert.Equal(t, "probe/1.0", cfg.TruthScan().UserAgent)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string][2]string{
		"stride":   {"SELECTOR_STRIDE", "0"},
		"quality":  {"FRAME_JPEG_QUALITY", "101"},
		"decoder":  {"DECODER", "vlc"},
		"mode":     {"VIDEO_MODE", "frames"},
		"attempts": {"TRUTHSCAN_MAX_ATTEMPTS", "0"},
		"parse":    {"SELECTOR_STRIDE", "thirty"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequeuePolicy(t *testing.T) {
	cfg := &Config{MaxRetries: 4, RequeueBaseDelay: time.Second}
	p := cfg.RequeuePolicy()

	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, time.Minute, p.Backoff(10))
}
