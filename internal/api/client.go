// Package api implements the client of the downstream order API
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"io"
	"net/http"
	"orderconsumer/internal/config"
	"orderconsumer/internal/metrics"
	"os"
	"strconv"
	"strings"
	"time"
)

const maxResponseBody = 1 << 20

// A Client posts JSON resources to the order API
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zerolog.Logger
}

type response struct {
	status int
	body   []byte
}

// serverError makes 5xx responses count as breaker failures
type serverError struct {
	response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server responded with status %d", e.status)
}

// NewClient creates a Client, the breaker opens after consecutive transport errors or 5xx responses
func NewClient(cfg config.APIConfig, cbCfg config.CircuitBreakerConfig, logger *zerolog.Logger) *Client {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	cb := gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        "order-api",
			MaxRequests: uint32(cbCfg.HalfOpenMaxCalls),
			Interval:    cbCfg.Timeout,
			Timeout:     cbCfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cbCfg.MaxFailers)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		},
	)

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.Key,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: cb,
		logger:         logger,
	}
}

// Create posts body to path and returns the response status and body.
// Only transport failures and an open breaker are returned as errors.
func (c *Client) Create(ctx context.Context, path string, body any) (int, []byte, error) {
	start := time.Now()

	result, err := c.circuitBreaker.Execute(
		func() (any, error) {
			resp, err := c.post(ctx, path, body)
			if err != nil {
				return nil, err
			}
			if resp.status >= http.StatusInternalServerError {
				return nil, &serverError{*resp}
			}
			return resp, nil
		},
	)

	var srvErr *serverError
	switch {
	case errors.As(err, &srvErr):
		metrics.APILatency.WithLabelValues(strconv.Itoa(srvErr.status)).Observe(time.Since(start).Seconds())
		return srvErr.status, srvErr.body, nil
	case err != nil:
		metrics.APILatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return 0, nil, err
	}

	resp := result.(*response)
	metrics.APILatency.WithLabelValues(strconv.Itoa(resp.status)).Observe(time.Since(start).Seconds())
	c.logger.Debug().
		Str("path", path).
		Int("status", resp.status).
		Dur("duration", time.Since(start)).
		Msg("Order API responded")
	return resp.status, resp.body, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response of %s: %w", path, err)
	}

	return &response{status: resp.StatusCode, body: respBody}, nil
}
