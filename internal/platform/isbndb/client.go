package isbndb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/httpx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/platform/retry"
)

const serviceName = "isbndb"

// Client maps identifiers and free-text queries to normalized book records.
// It has no storage side effects.
type Client interface {
	LookupISBN(ctx context.Context, isbn string) (*domain.Book, error)
	// Search returns candidates in upstream order. Empty means no match.
	Search(ctx context.Context, query string) ([]*domain.Book, error)
}

type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	SearchPageSize int

	// RequestsPerSecond paces outbound calls to the plan quota. Zero disables pacing.
	RequestsPerSecond float64

	// MaxRetryAfter clamps the upstream Retry-After hint.
	MaxRetryAfter time.Duration

	HTTPClient *http.Client
	// Sleep overrides the wait between attempts (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:        envutil.String("ISBNDB_BASE_URL", "https://api2.isbndb.com"),
		APIKey:         envutil.String("ISBNDB_API_KEY", ""),
		Timeout:        envutil.Seconds("ISBNDB_TIMEOUT_SECONDS", 15*time.Second),
		MaxAttempts:    envutil.Int("ISBNDB_MAX_ATTEMPTS", 4),
		BaseBackoff:    500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		MaxRetryAfter:  30 * time.Second,
		SearchPageSize: 20,

		RequestsPerSecond: envutil.Float("ISBNDB_REQUESTS_PER_SECOND", 1),
	}
}

type client struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing ISBNDB_BASE_URL")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing ISBNDB_API_KEY")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 4
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = 20
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &client{
		log:     log.With("service", "ISBNdbClient"),
		cfg:     cfg,
		baseURL: base,
		http:    hc,
		limiter: limiter,
	}, nil
}

func (c *client) LookupISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	const op = "isbndb.LookupISBN"
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "isbn required", nil)
	}
	var out bookEnvelope
	status, err := c.get(ctx, op, "/book/"+url.PathEscape(isbn), nil, &out)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, aggregates.NewError(aggregates.CodeNotFound, op, "no record for isbn "+isbn, err)
		}
		return nil, err
	}
	if out.Book == nil {
		return nil, aggregates.NewError(aggregates.CodeNotFound, op, "empty record for isbn "+isbn, nil)
	}
	return out.Book.normalize(), nil
}

func (c *client) Search(ctx context.Context, query string) ([]*domain.Book, error) {
	const op = "isbndb.Search"
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "query required", nil)
	}
	params := url.Values{}
	params.Set("page", "1")
	params.Set("pageSize", fmt.Sprintf("%d", c.cfg.SearchPageSize))
	var out searchEnvelope
	status, err := c.get(ctx, op, "/books/"+url.PathEscape(query), params, &out)
	if err != nil {
		// Search reports "no results" as 404.
		if status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	books := make([]*domain.Book, 0, len(out.Books))
	for i := range out.Books {
		books = append(books, out.Books[i].normalize())
	}
	return books, nil
}

// get performs one logical request. 429 is retried through retry.Do; every
// other non-2xx ends the loop. The returned status is the last one observed.
func (c *client) get(ctx context.Context, op, path string, params url.Values, out any) (int, error) {
	var lastStatus int
	start := time.Now()
	policy := retry.Policy{
		MaxAttempts: c.cfg.MaxAttempts,
		Backoff:     retry.Exponential(c.cfg.BaseBackoff, c.cfg.MaxBackoff),
		Retryable:   isRateLimited,
		Sleep:       c.cfg.Sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.log.Warn("ISBNdb rate limited, retrying",
				"path", path,
				"attempt", attempt,
				"max_attempts", c.cfg.MaxAttempts,
				"sleep", wait.String(),
			)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		status, raw, err := c.doOnce(ctx, path, params)
		lastStatus = status
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("isbndb decode error: %w", err)
		}
		return nil
	})
	observability.Current().ObserveExternalLookup(op, lookupOutcome(lastStatus, err), time.Since(start))
	if err == nil {
		return lastStatus, nil
	}
	if retry.IsExhausted(err) {
		return lastStatus, aggregates.NewError(aggregates.CodeExternalLookup, op, "rate limit retries exhausted", err)
	}
	var se *httpx.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return lastStatus, err
	}
	return lastStatus, aggregates.Wrap(aggregates.CodeExternalLookup, op, err)
}

func (c *client) doOnce(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp.StatusCode, nil, readErr
	}
	if !httpx.IsSuccess(resp.StatusCode) {
		se := &httpx.StatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
		if resp.StatusCode == http.StatusTooManyRequests {
			se.RetryAfter = httpx.RetryAfterDuration(resp, 0, c.cfg.MaxRetryAfter)
		}
		return resp.StatusCode, raw, se
	}
	return resp.StatusCode, raw, nil
}

func lookupOutcome(status int, err error) string {
	switch {
	case err == nil:
		return "ok"
	case retry.IsExhausted(err):
		return "rate_limited"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func isRateLimited(err error) bool {
	var se *httpx.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}
