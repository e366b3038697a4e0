// Package upstream provides the rate-limit aware HTTP client shared by the catalog and ratings adapters
package upstream

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/logger"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultUA          = "ottscout"
	defaultMaxRetries  = 5
	defaultBackoffBase = 2.0
	defaultBackoffCap  = 60 * time.Second
	maxBodyBytes       = 32 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Headers and Query are attached to every request (auth keys live here)
	Headers http.Header
	Query   url.Values

	// MaxRetries is the number of attempts made while the upstream answers 429
	MaxRetries int
	// BackoffBase is the exponent base in seconds used when no Retry-After is sent
	BackoffBase float64
	// BackoffCap bounds every wait, hinted or computed
	BackoffCap time.Duration

	// Name tags log lines, e.g. "ottdetails"
	Name string

	// Sleep and Now default to time.Sleep and time.Now
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Client issues single requests and retries only on HTTP 429
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with defaults filled in
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = defaultBackoffCap
	}
	if o.Name == "" {
		o.Name = "upstream"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")

	c := &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named(o.Name),
		now:   time.Now,
		sleep: time.Sleep,
	}
	if o.Sleep != nil {
		c.sleep = o.Sleep
	}
	if o.Now != nil {
		c.now = o.Now
	}
	return c
}

// Request performs method on path with query and headers merged over the client defaults
// It returns the response body on 2xx, a RateLimitExhausted error once the 429 budget
// is spent, and an UpstreamError for any other failure
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, headers http.Header) ([]byte, error) {
	target := c.opts.BaseURL + path
	if q := c.mergeQuery(query); len(q) > 0 {
		target += "?" + q.Encode()
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s new request failed", c.opts.Name)
		}
		c.decorate(req, headers)

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &UpstreamError{Path: path, err: perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s %s transport failed", c.opts.Name, path)}
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Str("rate_remaining", resp.Header.Get("X-RateLimit-Requests-Remaining")).
			Msg("upstream http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			if err != nil {
				return nil, &UpstreamError{Status: resp.StatusCode, Path: path, err: perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s %s read body failed", c.opts.Name, path)}
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			hint := resp.Header.Get("Retry-After")
			_ = drainAndClose(resp.Body)
			if attempt >= c.opts.MaxRetries {
				c.log.Error().Str("path", path).Int("attempts", attempt).Msg("rate limit persists, giving up")
				return nil, &RateLimitExhaustedError{Path: path, Attempts: attempt}
			}
			wait := c.computeWait(hint, attempt)
			c.log.Warn().
				Str("path", path).
				Int("attempt", attempt).
				Int("max", c.opts.MaxRetries).
				Dur("wait", wait).
				Msg("rate limited, backing off")
			c.sleep(wait)

		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, &UpstreamError{
				Status: resp.StatusCode,
				Path:   path,
				Body:   string(tail),
				err:    perr.Newf(perr.ErrorCodeUpstream, "%s %s unexpected status %d", c.opts.Name, path, resp.StatusCode),
			}
		}
	}
}

// computeWait prefers the server hint and falls back to base^attempt seconds, both capped
func (c *Client) computeWait(hint string, attempt int) time.Duration {
	if d, ok := parseRetryAfter(hint, c.now()); ok {
		return min(d, c.opts.BackoffCap)
	}
	return backoff(c.opts.BackoffBase, attempt, c.opts.BackoffCap)
}

func (c *Client) mergeQuery(extra url.Values) url.Values {
	if len(c.opts.Query) == 0 && len(extra) == 0 {
		return nil
	}
	q := url.Values{}
	for k, vs := range c.opts.Query {
		q[k] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		q[k] = append([]string(nil), vs...)
	}
	return q
}

func (c *Client) decorate(req *http.Request, extra http.Header) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range extra {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// backoff returns base^attempt seconds capped at limit
func backoff(base float64, attempt int, limit time.Duration) time.Duration {
	secs := math.Pow(base, float64(attempt))
	if math.IsInf(secs, 0) || math.IsNaN(secs) || secs >= limit.Seconds() {
		return limit
	}
	return time.Duration(secs * float64(time.Second))
}
