// Package inference binds the OCR engine and the face models, which run as
// separate HTTP services, to the ports the pipeline consumes.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/observability"
)

// ErrUnavailable wraps every transport, timeout and protocol failure of an
// external capability. Callers surface it as a retryable processing failure.
var ErrUnavailable = errors.New("inference capability unavailable")

const (
	CapabilityOCR      = "ocr"
	CapabilityDeepfake = "deepfake"
	CapabilityEmbedder = "embedder"
	CapabilityDetector = "face_detector"
)

// Options tunes the shared transport.
type Options struct {
	Timeout    time.Duration
	MaxRetries uint64
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

type transport struct {
	http       *http.Client
	timeout    time.Duration
	maxRetries uint64
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func newTransport(opts Options) *transport {
	t := &transport{
		http:       opts.HTTPClient,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if t.http == nil {
		t.http = http.DefaultClient
	}
	if t.timeout <= 0 {
		t.timeout = 15 * time.Second
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

// post sends body to url and decodes a JSON reply into out. The whole call,
// retries included, is bounded by the configured timeout.
func (t *transport) post(ctx context.Context, capability, url, contentType string, body []byte, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		t.metrics.ObserveInference(capability, outcome, start)
	}()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.maxRetries), ctx)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := t.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s returned %s", capability, resp.Status)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("%s returned %s: %s", capability, resp.Status, strings.TrimSpace(string(msg))))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", capability, err))
		}
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		t.logger.Warn("inference call failed",
			zap.String("capability", capability),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, capability, err)
	}
	return nil
}

func endpoint(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}
