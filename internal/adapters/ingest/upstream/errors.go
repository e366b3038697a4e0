package upstream

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	perr "ottscout/internal/platform/errors"
)

// RateLimitExhaustedError is returned when every attempt was answered with 429
type RateLimitExhaustedError struct {
	Path     string
	Attempts int
}

// Error interface
func (e *RateLimitExhaustedError) Error() string {
	return fmt.Sprintf("429 after %d attempts: %s", e.Attempts, e.Path)
}

// Unwrap exposes the perr code so perr.IsCode works on the chain
func (e *RateLimitExhaustedError) Unwrap() error {
	return perr.Newf(perr.ErrorCodeTooManyRequests, "rate limit exhausted")
}

// HTTPStatus interface
func (e *RateLimitExhaustedError) HTTPStatus() int { return http.StatusTooManyRequests }

// UpstreamError wraps non-429 failures: other HTTP statuses and transport errors
// Status is zero for transport errors
type UpstreamError struct {
	Status int
	Path   string
	Body   string
	err    error
}

// Error interface
func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return e.err.Error() + " body " + strings.TrimSpace(e.Body)
	}
	return e.err.Error()
}

// Unwrap interface
func (e *UpstreamError) Unwrap() error { return e.err }

// HTTPStatus interface
func (e *UpstreamError) HTTPStatus() int { return e.Status }

// IsRateLimitExhausted reports whether err means the 429 retry budget was spent
func IsRateLimitExhausted(err error) bool {
	var rl *RateLimitExhaustedError
	return errors.As(err, &rl)
}

// IsUpstream reports whether err is a non-retried upstream failure
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// StatusOf returns the HTTP status carried by err, 0 when none
func StatusOf(err error) int {
	var s interface{ HTTPStatus() int }
	if errors.As(err, &s) {
		return s.HTTPStatus()
	}
	return 0
}

// maxHint is what an out of range delay-seconds value saturates to
const maxHint = time.Duration(math.MaxInt64)

// parseRetryAfter accepts delay-seconds (integer or fractional) and HTTP-date forms
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(secs) || secs < 0 {
			return 0, false
		}
		if secs >= maxHint.Seconds() {
			return maxHint, true
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(v); err == nil {
		if at.After(now) {
			return at.Sub(now), true
		}
		return 0, true
	}
	return 0, false
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
