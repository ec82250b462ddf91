// Package api is the HTTP/JSON client for the procurement monitoring API.
//
// The client is safe for concurrent use: the panel issues requests from many
// tea.Cmd goroutines at once.
package api

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
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/otel"
)

// Version is sent in the default User-Agent.
const Version = "0.3.0"

// Session carries the caller's credentials. It is passed explicitly to the
// client instead of living in global state.
type Session struct {
	Token string
}

// Authenticated reports whether the session has a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Client talks to the procurement API.
type Client struct {
	baseURL      string
	session      Session
	httpClient   *http.Client
	userAgent    string
	limiter      *rate.Limiter
	events       *otel.Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// NewClient creates a client for baseURL (e.g. "https://host/api").
func NewClient(baseURL string, sess Session, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrInvalidConfig
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrInvalidConfig, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: base URL scheme must be http or https", ErrInvalidConfig)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		session:      sess,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		userAgent:    "tenderwatch/" + Version,
		limiter:      rate.NewLimiter(rate.Limit(5), 5),
		retryMax:     2,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the session the client was built with.
func (c *Client) Session() Session {
	return c.session
}

// payload builds a fresh request body for every attempt, so retries never
// resend a drained reader.
type payload func() (body io.Reader, contentType string, err error)

func jsonPayload(v any) payload {
	if v == nil {
		return nil
	}
	return func() (io.Reader, string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// do performs an HTTP request with rate limiting and retry logic.
// Network errors and 5xx are retried with backoff; 429 honors Retry-After;
// other 4xx fail immediately with an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body payload, result any) error {
	return c.send(ctx, method, path, body, result, c.retryMax)
}

// doOnce performs a single attempt, for requests the server does not
// deduplicate.
func (c *Client) doOnce(ctx context.Context, method, path string, body payload, result any) error {
	return c.send(ctx, method, path, body, result, 0)
}

func (c *Client) send(ctx context.Context, method, path string, body payload, result any, retryMax int) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			logging.Debug("api retry", "attempt", attempt, "path", path, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		var bodyReader io.Reader
		contentType := ""
		if body != nil {
			r, ct, err := body()
			if err != nil {
				return err
			}
			bodyReader, contentType = r, ct
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		requestID := uuid.NewString()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if c.session.Authenticated() {
			req.Header.Set("Authorization", "Bearer "+c.session.Token)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		dur := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn("api request failed", "method", method, "path", path, "error", err)
			c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAPIError, Comp: "api", Msg: method + " " + path, Err: err.Error(), Dur: dur})
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		logging.Debug("api response", "method", method, "path", path, "status", resp.StatusCode, "dur", dur)

		if resp.StatusCode == http.StatusTooManyRequests && attempt < retryMax {
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds >= 0 {
				select {
				case <-time.After(time.Duration(seconds) * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			lastErr = newAPIError(resp.StatusCode, requestID, respBody)
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := newAPIError(resp.StatusCode, requestID, respBody)
			c.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindAPIError, Comp: "api", Msg: method + " " + path, Err: apiErr.Error(), Dur: dur})
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return apiErr
		}

		c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindAPIRequest, Comp: "api", Msg: method + " " + path, Dur: dur})

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func newAPIError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	if len(body) == 0 {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Message != "" || errResp.Detail != "") {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Detail
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if quarter := int64(backoff / 4); quarter > 0 {
		backoff += time.Duration(rand.Int63n(quarter))
	}
	return backoff
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, jsonPayload(body), result)
}
