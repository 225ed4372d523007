package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultEndpoint is the public DBpedia SPARQL endpoint.
const DefaultEndpoint = "https://dbpedia.org/sparql"

const (
	resultsFormat = "application/sparql-results+json"

	backoffBase   = 300 * time.Millisecond
	backoffCap    = 4 * time.Second
	backoffJitter = 200 * time.Millisecond

	maxResponseBytes = 16 << 20
)

// Config holds the construction-time parameters of a Client.
type Config struct {
	// Endpoint is the SPARQL endpoint URL. Default: DefaultEndpoint.
	Endpoint string

	// Timeout bounds a single HTTP attempt end to end. Default: 12s.
	Timeout time.Duration

	// ConnectTimeout bounds dialing the endpoint. Default: 8s.
	ConnectTimeout time.Duration

	// MaxRetries is the number of additional attempts after the first one
	// for retryable failures. Default: 2.
	MaxRetries int
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:       DefaultEndpoint,
		Timeout:        12 * time.Second,
		ConnectTimeout: 8 * time.Second,
		MaxRetries:     2,
	}
}

// Client fetches country facts and capital labels from a SPARQL endpoint.
// It keeps no state between calls besides its HTTP configuration.
type Client struct {
	endpoint   string
	http       *http.Client
	maxRetries int
	log        logrus.FieldLogger

	// backoff returns the wait before the given retry (1-based).
	backoff func(attempt int) time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client. Zero-valued config fields fall back to defaults and
// a negative MaxRetries is treated as zero.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		http:       &http.Client{Timeout: cfg.Timeout, Transport: transport, CheckRedirect: keepMethod},
		maxRetries: max(0, cfg.MaxRetries),
		log:        logrus.StandardLogger(),
		backoff:    Backoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFacts returns up to count random country facts. The count is a hint
// to the endpoint; fewer rows may come back.
func (c *Client) FetchFacts(ctx context.Context, count int) ([]Fact, error) {
	rows, err := c.selectRows(ctx, buildQuery(factsQuery, count))
	if err != nil {
		return nil, err
	}
	facts := parseFacts(rows)
	c.log.WithFields(logrus.Fields{
		"requested": count,
		"rows":      len(rows),
		"facts":     len(facts),
	}).Debug("fetched country facts")
	return facts, nil
}

// FetchDecoyLabels returns up to count capital names used as wrong options.
func (c *Client) FetchDecoyLabels(ctx context.Context, count int) ([]string, error) {
	rows, err := c.selectRows(ctx, buildQuery(capitalsQuery, count))
	if err != nil {
		return nil, err
	}
	labels := parseLabels(rows, varCapitalLabel)
	c.log.WithFields(logrus.Fields{
		"requested": count,
		"labels":    len(labels),
	}).Debug("fetched capital labels")
	return labels, nil
}

// selectRows runs a SELECT query, retrying transport failures, 429 and 5xx
// responses up to maxRetries times.
func (c *Client) selectRows(ctx context.Context, query string) ([]gjson.Result, error) {
	form := url.Values{}
	form.Set("query", query)
	form.Set("format", resultsFormat)
	body := form.Encode()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		payload, err := c.post(ctx, body, attempt+1)
		if err == nil {
			return parseBindings(payload)
		}

		if attempt >= c.maxRetries || !retryable(ctx, err) {
			return nil, err
		}
		c.log.WithFields(logrus.Fields{
			"attempt":     attempt + 1,
			"max_retries": c.maxRetries,
		}).WithError(err).Warn("sparql request failed, retrying")
	}
}

// post performs a single attempt. Non-2xx responses become
// RemoteStatusError; failures to get a response become TransportError.
func (c *Client) post(ctx context.Context, body string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sparql request: %w", err)
	}
	req.Header.Set("Accept", resultsFormat)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Attempts: attempt, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.log.WithFields(logrus.Fields{
		"attempt":    attempt,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
		"bytes":      len(payload),
	}).Debug("sparql response")
	if err != nil {
		return nil, &TransportError{Attempts: attempt, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteStatusError{
			StatusCode: resp.StatusCode,
			Body:       snippet(payload),
			Attempts:   attempt,
		}
	}
	return payload, nil
}

// keepMethod follows 307/308 redirects, which resend the form, and stops at
// any redirect that would turn the POST into a body-less GET. The redirect
// response is then reported as a RemoteStatusError.
func keepMethod(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if req.Method != via[0].Method {
		return http.ErrUseLastResponse
	}
	return nil
}

// retryable reports whether err warrants another attempt. Caller
// cancellation is never retried.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *RemoteStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// Backoff returns the wait before retry attempt n (1-based):
// min(4s, 300ms*2^(n-1)) plus up to 200ms of jitter.
func Backoff(attempt int) time.Duration {
	wait := backoffCap
	if attempt < 1 {
		attempt = 1
	}
	// 300ms*2^4 already exceeds the cap.
	if attempt <= 4 {
		wait = min(backoffCap, backoffBase<<(attempt-1))
	}
	return wait + rand.N(backoffJitter)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
