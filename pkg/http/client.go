package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/metrics"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
)

const maxErrorBody = 64 << 10

type traceKey struct{}

// WithTraceID attaches a trace ID that is forwarded as X-Trace-ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the trace ID stored by WithTraceID.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Client performs single-attempt JSON exchanges with the remote service.
// It never retries; callers decide what to do with a failure.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client for baseURL. A zero timeout leaves the
// transport defaults in place.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// Get fetches path with the optional query. token is sent as a bearer
// credential when non-empty.
func (c *Client) Get(ctx context.Context, path string, query url.Values, token string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, token, nil, result)
}

// Post sends payload as JSON and decodes the response into result.
func (c *Client) Post(ctx context.Context, path string, token string, payload interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, token, payload, result)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, payload, result interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c.forwardHeaders(ctx, req)

	log.Debug().Str("method", method).Str("url", target).Bool("authenticated", token != "").Msg("Making HTTP request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.Observe(metrics.RemoteRequestLatency, prometheus.Labels{
		"endpoint": path,
		"method":   method,
	}, time.Since(start).Seconds())
	if err != nil {
		c.count(path, method, "transport_error")
		log.Error().Err(err).Str("url", target).Msg("HTTP request failed")
		return &apperr.TransportError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()
	c.count(path, method, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var errResp models.ErrorResponse
		_ = json.Unmarshal(raw, &errResp)
		log.Warn().Int("status", resp.StatusCode).Str("url", target).Str("error", errResp.Error).Msg("HTTP request returned error")
		return &apperr.RemoteServiceError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			log.Warn().Err(err).Int("status", resp.StatusCode).Str("url", target).Msg("HTTP response body malformed")
			return &apperr.RemoteServiceError{Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}

	log.Debug().Int("status", resp.StatusCode).Str("url", target).Msg("HTTP request completed")
	return nil
}

func (c *Client) forwardHeaders(ctx context.Context, req *http.Request) {
	if traceID := TraceID(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	req.Header.Set("User-Agent", "cardio-risk-client/1.0")
}

func (c *Client) count(endpoint, method, status string) {
	metrics.Inc(metrics.RemoteRequestTotal, prometheus.Labels{
		"endpoint": endpoint,
		"method":   method,
		"status":   status,
	}, 1)
}
