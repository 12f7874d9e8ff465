package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway wraps every outbound call to the document-assistant API with a
// bounded time budget, cancellation, and uniform error normalization. It
// performs no retries; retry policy belongs to callers.
type Gateway struct {
	baseURL string
	http    *http.Client
	logger  *Logger
}

func NewGateway(baseURL string, logger *Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Upper bound for calls issued without an explicit budget, such as
		// job-status polls.
		http:   &http.Client{Timeout: 2 * time.Minute},
		logger: logger,
	}
}

func (g *Gateway) BaseURL() string { return g.baseURL }

// Call issues a single HTTP request. A timeout of zero leaves only the
// client-level bound in place. Failures resolve to exactly one of
// *TimeoutError, *NetworkError, or *HTTPError; a failed call applies no
// partial effects.
func (g *Gateway) Call(ctx context.Context, method, path string, body io.Reader, contentType string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, g.normalize(method, path, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, g.normalize(method, path, timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &errResp)
		httpErr := &HTTPError{Status: resp.StatusCode, Detail: errResp.Detail}
		g.logger.Warn("api request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"detail": errResp.Detail,
		})
		return nil, httpErr
	}

	return data, nil
}

func (g *Gateway) normalize(method, path string, timeout time.Duration, err error) error {
	timedOut := errors.Is(err, context.DeadlineExceeded)
	if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
		timedOut = true
	}
	if timedOut {
		g.logger.Warn("api request timed out", map[string]interface{}{
			"method": method,
			"path":   path,
			"budget": timeout.String(),
		})
		return &TimeoutError{Budget: timeout}
	}
	g.logger.Warn("api request failed", map[string]interface{}{
		"method": method,
		"path":   path,
		"error":  err.Error(),
	})
	return &NetworkError{Err: err}
}
