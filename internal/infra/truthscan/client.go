// Package truthscan talks to the TruthScan detection endpoints the public
// web detectors use.
package truthscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/mediacheck/truthscan-service/internal/infra/metrics"
	"github.com/mediacheck/truthscan-service/internal/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://truthscan.com/api"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"

	imageReferer = "https://truthscan.com/ai-image-detector"
	videoReferer = "https://truthscan.com/ai-video-detector"
	origin       = "https://truthscan.com"

	uploadTimeout   = 120 * time.Second
	detectTimeout   = 120 * time.Second
	moderateTimeout = 60 * time.Second
	analysisTimeout = 90 * time.Second
	videoTimeout    = 120 * time.Second

	maxErrorBody = 200
)

type Config struct {
	BaseURL   string
	UserAgent string
	Retry     retry.Policy
	// MinInterval spaces every outbound request, retries included.
	MinInterval time.Duration
	// StepDelay plus a jitter in [JitterMin, JitterMax) separates the steps
	// of one image check.
	StepDelay time.Duration
	JitterMin time.Duration
	JitterMax time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		UserAgent:   DefaultUserAgent,
		Retry:       retry.DefaultPolicy(),
		MinInterval: time.Second,
		StepDelay:   time.Second,
		JitterMin:   500 * time.Millisecond,
		JitterMax:   1500 * time.Millisecond,
	}
}

type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// withRetry runs op under the client's retry policy and counts every repeat
// of endpoint.
func (c *Client) withRetry(ctx context.Context, endpoint string, log *zap.Logger, op func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, c.cfg.Retry, log, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.TruthScanRetriesTotal.WithLabelValues(endpoint).Inc()
		}
		return op(ctx)
	})
}

// pause sleeps between the steps of a check.
func (c *Client) pause(ctx context.Context) error {
	delay := c.cfg.StepDelay
	if span := c.cfg.JitterMax - c.cfg.JitterMin; span > 0 {
		delay += c.cfg.JitterMin + time.Duration(rand.Int63n(int64(span)))
	} else {
		delay += c.cfg.JitterMin
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError is a non-200 answer from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// Detail includes the start of the response body.
func (e *StatusError) Detail() string {
	return fmt.Sprintf("%s: %s", e.Error(), e.Body)
}

func (c *Client) setHeaders(req *http.Request, referer, contentType string) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", referer)
	req.Header.Set("Sec-Ch-Ua", `"Not(A:Brand";v="8", "Chromium";v="144", "Brave";v="144"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
}

// post sends one request and decodes a JSON answer into out.
func (c *Client) post(
	ctx context.Context,
	endpoint, referer string,
	timeout time.Duration,
	contentType string,
	body io.Reader,
	out any,
) (err error) {
	ctx, span := otel.Tracer("truthscan").Start(ctx, "POST "+endpoint)
	defer span.End()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
		}
		metrics.TruthScanRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, referer, contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
