package httpx

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 256 {
		body = body[:256]
	}
	if body == "" {
		return fmt.Sprintf("%s http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Service, e.StatusCode, body)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// RetryDelay exposes the upstream Retry-After hint to retry.Do.
func (e *StatusError) RetryDelay() time.Duration { return e.RetryAfter }

// IsSuccess reports a 2xx status.
func IsSuccess(code int) bool { return code >= 200 && code <= 299 }

// RetryAfterDuration parses the Retry-After header, either delay seconds or
// an HTTP date, falling back when absent or past and clamping to max when
// max > 0.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	return retryAfterAt(resp, fallback, max, time.Now())
}

func retryAfterAt(resp *http.Response, fallback, max time.Duration, now time.Time) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				if secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			} else if at, err := http.ParseTime(ra); err == nil {
				if d := at.Sub(now); d > 0 {
					sleepFor = d
				}
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

// JitterSleep spreads base by +/-20%.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}
