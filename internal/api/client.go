package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"certgen/frontend/internal/config"
	"certgen/frontend/internal/model"
)

const maxBodyBytes = 4 << 20

// TokenSource supplies the bearer token at send time. An empty token means
// the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string {
	return f()
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Client is the single point of outbound HTTP access. Resource groups share
// its transport, token source and timeout.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
	metrics *Metrics

	Auth         *AuthAPI
	Certificates *CertificateAPI
	Courses      *CourseAPI
	Templates    *TemplateAPI
	Users        *UserAPI
	Verification *VerifyAPI
}

// New validates the base URL and builds the client. An invalid base URL is a
// configuration error and no request can be constructed.
func New(opts Options) (*Client, error) {
	base, err := config.ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	} else {
		copied := *httpClient
		httpClient = &copied
	}
	httpClient.Timeout = timeout

	tokens := opts.Tokens
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL: base.String(),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
		metrics: NewMetrics(opts.Registerer),
	}
	c.Auth = &AuthAPI{c: c}
	c.Certificates = &CertificateAPI{collection: collection[model.Certificate]{c: c, resource: "certificates"}}
	c.Courses = &CourseAPI{collection: collection[model.Course]{c: c, resource: "courses"}}
	c.Templates = &TemplateAPI{collection: collection[model.Template]{c: c, resource: "templates"}}
	c.Users = &UserAPI{users: collection[model.UserRecord]{c: c, resource: "users"}}
	c.Verification = &VerifyAPI{c: c}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	resource  string
	operation string
	method    string
	path      string
	body      any
	out       any
}

func (c *Client) do(ctx context.Context, rc call) error {
	_, err := c.send(ctx, rc)
	return err
}

// send issues the request and returns the raw response body on 2xx.
func (c *Client) send(ctx context.Context, rc call) ([]byte, error) {
	var reader io.Reader
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", rc.resource, rc.operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", rc.resource, rc.operation, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token := strings.TrimSpace(c.tokens.Token()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		netErr := &NetworkError{Method: rc.method, Path: rc.path, Timeout: isTimeout(err), Err: err}
		outcome := outcomeNetwork
		if netErr.Timeout {
			outcome = outcomeTimeout
		}
		c.metrics.observe(rc.resource, rc.operation, outcome, elapsed.Seconds())
		c.logger.Warn("api request failed", "method", rc.method, "path", rc.path, "request_id", requestID, "timeout", netErr.Timeout, "error", err)
		return nil, netErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.observe(rc.resource, rc.operation, outcomeNetwork, elapsed.Seconds())
		return nil, &NetworkError{Method: rc.method, Path: rc.path, Timeout: isTimeout(err), Err: err}
	}

	c.logger.Debug("api request", "method", rc.method, "path", rc.path, "status", resp.StatusCode, "request_id", requestID, "duration", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.observe(rc.resource, rc.operation, outcomeBackend, elapsed.Seconds())
		return nil, newError(resp.StatusCode, body)
	}
	c.metrics.observe(rc.resource, rc.operation, outcomeOK, elapsed.Seconds())

	if rc.out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, rc.out); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", rc.resource, rc.operation, err)
		}
	}
	return body, nil
}

func (c *Client) rejected(resource, operation string, err error) error {
	c.metrics.observe(resource, operation, outcomeInvalid, 0)
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
