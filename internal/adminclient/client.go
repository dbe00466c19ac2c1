// Package adminclient talks to the catalog admin API on behalf of operator
// tools. Reads are cached and retried; mutations are patched into the cache
// optimistically and rolled back when the server refuses them.
package adminclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/httpclient"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/retry"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReadRetries = 2
	DefaultTimeout     = 60 * time.Second
	defaultRetryDelay  = time.Second
	maxRetryDelay      = 30 * time.Second
)

type Config struct {
	// BaseURL includes the version prefix, e.g. http://localhost:8080/api/v1.
	BaseURL   string
	Token     string
	StaleTime time.Duration

	// ReadRetries counts retries after the first failed read; zero means
	// DefaultReadRetries and a negative value disables retries.
	// MutationRetries covers transient failures only, client errors are
	// never retried.
	ReadRetries     int
	MutationRetries int
}

type Client struct {
	conf    Config
	http    *http.Client
	cache   *Cache
	backoff retry.Backoff
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithBackoff(b retry.Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

func NewClient(conf Config, opts ...Option) *Client {
	if conf.StaleTime <= 0 {
		conf.StaleTime = DefaultStaleTime
	}
	switch {
	case conf.ReadRetries == 0:
		conf.ReadRetries = DefaultReadRetries
	case conf.ReadRetries < 0:
		conf.ReadRetries = 0
	}
	conf.MutationRetries = max(conf.MutationRetries, 0)
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")

	c := &Client{
		conf:    conf,
		backoff: cappedBackoff(retry.ExponentialBackoff(defaultRetryDelay), maxRetryDelay),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewClient(DefaultTimeout)
	}
	if c.cache == nil {
		c.cache = NewCache(conf.StaleTime, nil)
	}
	return c
}

func (c *Client) Cache() *Cache {
	return c.cache
}

// APIError is a non-2xx answer from the admin API. It matches the errs
// sentinel for its status code.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []errs.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("admin api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("admin api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == errs.ErrValidation
	case http.StatusUnauthorized:
		return target == errs.ErrNotLoggedIn
	case http.StatusForbidden:
		return target == errs.ErrForbidden
	case http.StatusNotFound:
		return target == errs.ErrNotFound
	case http.StatusConflict:
		return target == errs.ErrConflict
	case http.StatusRequestEntityTooLarge:
		return target == errs.ErrPayloadTooLarge
	}
	return e.StatusCode >= http.StatusInternalServerError && target == errs.ErrInternalServer
}

// Transient reports whether a failed call may succeed when repeated: network
// failures, 429 and 5xx.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

type envelope struct {
	Data   json.RawMessage   `json:"data"`
	Error  string            `json:"error"`
	Errors []errs.FieldError `json:"errors"`
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	headers := map[string]string{"Accept": "application/json"}
	if c.conf.Token != "" {
		headers["Authorization"] = "Bearer " + c.conf.Token
	}
	if req.contentType != "" {
		headers["Content-Type"] = req.contentType
	}

	status, body, err := httpclient.SendRequest(ctx, c.http, httpclient.HttpRequest{
		URL:     c.conf.BaseURL + req.path,
		Method:  req.method,
		Body:    req.body,
		Headers: headers,
	})
	if err != nil {
		return err
	}

	var env envelope
	var decodeErr error
	if len(body) > 0 {
		decodeErr = json.Unmarshal(body, &env)
	}

	if status < 200 || status > 299 {
		apiErr := &APIError{StatusCode: status, Message: env.Error, Fields: env.Errors}
		if decodeErr != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("decoding %s %s: %w", req.method, req.path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) read(ctx context.Context, req request, out any) error {
	return retry.Do(ctx, retry.RetryConfig{
		MaxAttempts: c.conf.ReadRetries + 1,
		Backoff:     c.backoff,
		ShouldRetry: Transient,
	}, func() error {
		err := c.do(ctx, req, out)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("component", "adminclient.read").Str("path", req.path).Msg("")
		}
		return err
	})
}

func (c *Client) mutate(ctx context.Context, req request, out any) error {
	return retry.Do(ctx, retry.RetryConfig{
		MaxAttempts: c.conf.MutationRetries + 1,
		Backoff:     c.backoff,
		ShouldRetry: Transient,
	}, func() error {
		return c.do(ctx, req, out)
	})
}

func cappedBackoff(b retry.Backoff, limit time.Duration) retry.Backoff {
	return func(attempt int) time.Duration {
		return min(b(attempt), limit)
	}
}
