// Package client is the Go SDK for the CompliSense HTTP API. It wraps the
// REST surface with typed sub-clients, retries transient failures with
// exponential backoff, and surfaces API failures as *APIError.
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

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// Version is the SDK version reported in the User-Agent header.
const Version = "0.1.0"

// ErrInvalidConfig is returned by NewClient for unusable configuration.
var ErrInvalidConfig = fmt.Errorf("complisense: invalid client configuration")

// Logger is the minimal logging interface the client writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client is the CompliSense SDK client. Construct it with NewClient and
// reach the API groups through the sub-client accessors.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	assessments     *AssessmentsClient
	assessmentsOnce sync.Once
	scenarios       *ScenariosClient
	scenariosOnce   sync.Once
	suggestions     *SuggestionsClient
	suggestionsOnce sync.Once
	decisions       *DecisionsClient
	decisionsOnce   sync.Once
	reports         *ReportsClient
	reportsOnce     sync.Once
}

// APIError is an error response from the API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("complisense: %s (HTTP %d): %s [request_id=%s]",
		e.Code, e.StatusCode, e.Message, e.RequestID)
}

// IsNotFound reports whether the server answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsValidation reports whether the server rejected the request semantics.
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// IsRateLimited reports whether the server answered 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError reports whether the failure was on the server side.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ArgumentError reports a client-side validation failure; no request was
// sent.
type ArgumentError struct {
	msg string
}

func (e *ArgumentError) Error() string {
	return "complisense: " + e.msg
}

func invalidArg(msg string) error {
	return &ArgumentError{msg: msg}
}

// NewClient creates a CompliSense SDK client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: baseURL is required", ErrInvalidConfig)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", ErrInvalidConfig, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", ErrInvalidConfig)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    fmt.Sprintf("complisense-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Assessments returns the assessment sub-client.
func (c *Client) Assessments() *AssessmentsClient {
	c.assessmentsOnce.Do(func() {
		c.assessments = &AssessmentsClient{client: c}
	})
	return c.assessments
}

// Scenarios returns the what-if sub-client.
func (c *Client) Scenarios() *ScenariosClient {
	c.scenariosOnce.Do(func() {
		c.scenarios = &ScenariosClient{client: c}
	})
	return c.scenarios
}

// Suggestions returns the suggestion sub-client.
func (c *Client) Suggestions() *SuggestionsClient {
	c.suggestionsOnce.Do(func() {
		c.suggestions = &SuggestionsClient{client: c}
	})
	return c.suggestions
}

// Decisions returns the decision-search sub-client.
func (c *Client) Decisions() *DecisionsClient {
	c.decisionsOnce.Do(func() {
		c.decisions = &DecisionsClient{client: c}
	})
	return c.decisions
}

// Reports returns the report sub-client.
func (c *Client) Reports() *ReportsClient {
	c.reportsOnce.Do(func() {
		c.reports = &ReportsClient{client: c}
	})
	return c.reports
}

// Regulations fetches the static regulation catalog.
// GET /api/v1/regulations
func (c *Client) Regulations(ctx context.Context) ([]compliance.RegulationDTO, error) {
	var resp struct {
		Regulations []compliance.RegulationDTO `json:"regulations"`
		Count       int                        `json:"count"`
	}
	if err := c.get(ctx, "/api/v1/regulations", &resp); err != nil {
		return nil, err
	}
	return resp.Regulations, nil
}

// doRequest performs one logical request with the retry loop and returns the
// raw response body and headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, http.Header, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, nil, fmt.Errorf("create request: %w", err)
		}

		requestID := uuid.New().String()
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("request failed: %v", err)
			lastErr = err
			continue
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read response body: %w", err)
		}

		// Honor Retry-After on 429 within the attempt budget.
		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.retryMax {
			if seconds, parseErr := strconv.Atoi(resp.Header.Get("Retry-After")); parseErr == nil {
				c.logger.Infof("rate limited, retrying after %d seconds", seconds)
				select {
				case <-time.After(time.Duration(seconds) * time.Second):
					continue
				case <-ctx.Done():
					return nil, nil, ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := parseAPIError(resp.StatusCode, requestID, respBody)
			lastErr = apiErr
			if resp.StatusCode >= 500 {
				continue
			}
			return nil, nil, apiErr
		}

		return respBody, resp.Header, nil
	}
	return nil, nil, lastErr
}

// parseAPIError decodes the server's error envelope; an unparseable body
// becomes the message verbatim.
func parseAPIError(statusCode int, requestID string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, RequestID: requestID}
	if len(body) == 0 {
		return apiErr
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	respBody, _, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
	return backoff + jitter
}
