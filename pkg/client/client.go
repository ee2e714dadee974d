// Package client is the Go SDK for the KeyIP-Chem HTTP API.
//
//	c, err := client.NewClient("http://localhost:8080")
//	res, err := c.Screening().Match(ctx, "CCO", "[OD1]")
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

const (
	sdkVersion          = "0.3.0"
	apiPrefix           = "/api/v1"
	defaultTimeout      = 30 * time.Second
	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
	requestIDHeader     = "X-Request-ID"
)

// Logger receives the SDK's request log.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// APIError is a non-2xx answer decoded from the server's error body.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	retryAfterHeader string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("keyip: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("keyip: HTTP %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) IsNotFound() bool    { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsBadRequest() bool  { return e.StatusCode == http.StatusBadRequest }
func (e *APIError) IsUnavailable() bool { return e.StatusCode == http.StatusServiceUnavailable }
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 }

// AppError converts the answer back into the server-side error form so
// callers can test it with errors.IsCode.
func (e *APIError) AppError() *errors.AppError {
	appErr := errors.New(errors.ErrorCode(e.Code), e.Message)
	if e.Detail != "" {
		appErr = appErr.WithDetail(e.Detail)
	}
	return appErr
}

// Client talks to one KeyIP-Chem API server.  It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
	logger     Logger

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	moleculesOnce sync.Once
	molecules     *MoleculesClient
	screeningOnce sync.Once
	screening     *ScreeningClient
}

// NewClient creates a Client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.InvalidParam("base URL must be an absolute http(s) URL").WithDetail(baseURL)
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: defaultTimeout},
		userAgent:    "keyip-chem-go-sdk/" + sdkVersion,
		logger:       noopLogger{},
		retryMax:     defaultRetryMax,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Molecules returns the client for parsing, fingerprints and compounds.
func (c *Client) Molecules() *MoleculesClient {
	c.moleculesOnce.Do(func() { c.molecules = &MoleculesClient{client: c} })
	return c.molecules
}

// Screening returns the client for substructure matching and library search.
func (c *Client) Screening() *ScreeningClient {
	c.screeningOnce.Do(func() { c.screening = &ScreeningClient{client: c} })
	return c.screening
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready calls the readiness endpoint.  A not-ready server answers 503, which is
// returned as an *APIError together with the decoded component states.
func (c *Client) Ready(ctx context.Context) (*ReadinessStatus, error) {
	var out ReadinessStatus
	err := c.do(ctx, http.MethodGet, "/readyz", nil, &out)
	if err != nil && out.Status == "" {
		return nil, err
	}
	return &out, err
}

// do sends one JSON request, retrying network failures, 5xx answers and
// 429s.  On an error answer the body is still decoded into result when it
// fits, which lets Ready report component states.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	// One ID for all attempts so server logs group the retries.
	requestID := uuid.New().String()

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			if apiErr, ok := lastErr.(*APIError); ok && apiErr.StatusCode == http.StatusTooManyRequests {
				if d, ok := retryAfter(apiErr); ok {
					wait = d
				}
			}
			c.logger.Debugf("retry %d of %s %s after %v", attempt, method, path, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set(requestIDHeader, requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Errorf("%s %s failed: %v", method, path, err)
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 400 {
			apiErr := decodeAPIError(resp, respBody, requestID)
			if result != nil && len(respBody) > 0 {
				_ = json.Unmarshal(respBody, result)
			}
			lastErr = apiErr
			if shouldRetry(resp.StatusCode) {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, apiPrefix+path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, apiPrefix+path, body, result)
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if wait > c.retryWaitMax || wait <= 0 {
		wait = c.retryWaitMax
	}
	if quarter := int64(wait / 4); quarter > 0 {
		wait += time.Duration(rand.Int63n(quarter))
	}
	return wait
}

// shouldRetry reports whether an error status is transient.  501 and 503
// are answers about the server's configuration and are not retried.
func shouldRetry(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func decodeAPIError(resp *http.Response, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if len(body) > 0 && json.Unmarshal(body, apiErr) != nil {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if apiErr.RequestID == "" {
		if id := resp.Header.Get(requestIDHeader); id != "" {
			apiErr.RequestID = id
		} else {
			apiErr.RequestID = requestID
		}
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		apiErr.retryAfterHeader = s
	}
	return apiErr
}

func retryAfter(e *APIError) (time.Duration, bool) {
	seconds, err := strconv.Atoi(e.retryAfterHeader)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

//Personal.AI order the ending
