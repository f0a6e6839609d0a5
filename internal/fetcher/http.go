package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"novelhub/pkg/utils"
)

// HTTPFetcher downloads static pages with colly. Each attempt uses a fresh
// collector bound to the caller's context.
type HTTPFetcher struct {
	cfg utils.FetcherConfig
	log *zap.Logger
}

func NewHTTP(cfg utils.FetcherConfig, log *zap.Logger) *HTTPFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPFetcher{cfg: cfg, log: log}
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := withRetry(ctx, f.cfg, f.log, url, func() error {
		var err error
		body, err = f.once(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, schema Schema) (*Page, error) {
	return fetchPage(ctx, func(ctx context.Context) ([]byte, error) { return f.Get(ctx, url) }, url, schema)
}

func (f *HTTPFetcher) Close() error { return nil }

func (f *HTTPFetcher) once(ctx context.Context, url string) ([]byte, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}
	c.SetRequestTimeout(f.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		if status > 0 {
			return nil, &statusError{url: url, code: status}
		}
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	c.Wait()

	if status >= http.StatusBadRequest {
		return nil, &statusError{url: url, code: status}
	}
	return body, nil
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("get %s: status %d", e.url, e.code)
}

// retryable reports whether a failed attempt is worth repeating. Client
// errors other than 408 and 429 will not change on retry.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusRequestTimeout, se.code == http.StatusTooManyRequests:
			return true
		case se.code >= 400 && se.code < 500:
			return false
		}
	}
	return true
}

func withRetry(ctx context.Context, cfg utils.FetcherConfig, log *zap.Logger, url string, fn func() error) error {
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	err := retry.Do(
		func() error {
			err := fn()
			if err != nil && !retryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("retrying fetch", zap.String("url", url), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrFetch, url, ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return nil
}
