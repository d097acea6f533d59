package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reebalance/internal/logger"
	"reebalance/internal/metrics"

	"github.com/go-resty/resty/v2"
)

// Request is one GraphQL operation sent over HTTP POST
type Request struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Executor runs a GraphQL operation and decodes its data object into out.
// Implementations must always hit the backend; nothing is cached.
type Executor interface {
	Execute(ctx context.Context, req Request, out interface{}) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, req Request, out interface{}) error

func (f ExecutorFunc) Execute(ctx context.Context, req Request, out interface{}) error {
	return f(ctx, req, out)
}

// Client talks to the balance GraphQL endpoint
type Client struct {
	http     *resty.Client
	endpoint string
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithTimeout bounds each request; zero means wait indefinitely
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithMetrics records every round trip
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the transport, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
		configure(c.http)
	}
}

// NewClient creates a client for endpoint. There is no automatic retry:
// retries are triggered by users or timers only.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		http:     resty.New(),
		endpoint: endpoint,
		log:      logger.Component("graphql"),
	}
	configure(c.http)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func configure(rc *resty.Client) {
	rc.SetRetryCount(0)
	rc.SetHeader("Content-Type", "application/json")
	rc.SetHeader("Accept", "application/json")
	// network-only: the upstream data can be revised at any time
	rc.SetHeader("Cache-Control", "no-cache")
	rc.SetHeader("Pragma", "no-cache")
}

// Endpoint returns the URL requests are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// Execute posts req and decodes the data object into out
func (c *Client) Execute(ctx context.Context, req Request, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.QueryDone(req.OperationName, time.Since(start), err)
		if err != nil {
			c.log.Warn("GraphQL operation failed", map[string]interface{}{
				"operation": req.OperationName,
				"error":     err.Error(),
			})
		}
	}()

	c.log.Debug("Executing GraphQL operation", map[string]interface{}{
		"operation": req.OperationName,
		"variables": req.Variables,
	})

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		return &TransportError{Operation: req.OperationName, Err: err}
	}

	body := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		// servers commonly report query errors with a 4xx status and a GraphQL body
		var env envelope
		if json.Unmarshal(body, &env) == nil && len(env.Errors) > 0 {
			return &QueryError{Operation: req.OperationName, Errors: env.Errors}
		}
		return &TransportError{Operation: req.OperationName, StatusCode: resp.StatusCode()}
	}

	return decode(req.OperationName, body, out)
}

func decode(operation string, body []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &QueryError{Operation: operation, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if len(env.Errors) > 0 {
		return &QueryError{Operation: operation, Errors: env.Errors}
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &QueryError{Operation: operation, Err: fmt.Errorf("response has no data")}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &QueryError{Operation: operation, Err: fmt.Errorf("unexpected data shape: %w", err)}
	}
	return nil
}

// Error is one entry of a GraphQL errors array
type Error struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// TransportError is a network failure or a non-2xx HTTP response
type TransportError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Response not successful: Received status code %d", e.StatusCode)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// QueryError is a backend-reported GraphQL error or an undecodable response
type QueryError struct {
	Operation string
	Errors    []Error
	Err       error
}

func (e *QueryError) Error() string {
	if len(e.Errors) > 0 {
		msgs := make([]string, len(e.Errors))
		for i, ge := range e.Errors {
			msgs[i] = ge.Message
		}
		return strings.Join(msgs, "\n")
	}
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
