package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"novelhub/pkg/utils"
)

// BrowserFetcher renders pages in headless Chromium for sites that build
// their content with scripts. The browser is launched on first use and
// shared by all calls until Close.
type BrowserFetcher struct {
	cfg utils.FetcherConfig
	log *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

var _ Paginator = (*BrowserFetcher)(nil)

func NewBrowser(cfg utils.FetcherConfig, log *zap.Logger) *BrowserFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &BrowserFetcher{cfg: cfg, log: log}
}

func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().Headless(f.cfg.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %v", ErrFetch, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("%w: connect browser: %v", ErrFetch, err)
	}

	f.log.Info("browser started", zap.Bool("headless", f.cfg.Headless))
	f.launcher = l
	f.browser = b
	return b, nil
}

func (f *BrowserFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return f.render(ctx, url, "", 0)
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string, schema Schema) (*Page, error) {
	return fetchPage(ctx, func(ctx context.Context) ([]byte, error) {
		return f.render(ctx, url, schema.WaitFor, schema.Delay)
	}, url, schema)
}

func (f *BrowserFetcher) render(ctx context.Context, url, waitFor string, delay time.Duration) ([]byte, error) {
	b, err := f.connect()
	if err != nil {
		return nil, err
	}

	var html string
	err = withRetry(ctx, f.cfg, f.log, url, func() error {
		var err error
		html, err = f.renderOnce(ctx, b, url, waitFor, delay)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (f *BrowserFetcher) renderOnce(ctx context.Context, b *rod.Browser, url, waitFor string, delay time.Duration) (string, error) {
	page, err := f.open(ctx, b, url, waitFor)
	if err != nil {
		return "", err
	}
	defer func() { _ = page.Close() }()

	if err := sleepCtx(ctx, delay); err != nil {
		return "", err
	}

	html, err := page.Timeout(f.cfg.Timeout).HTML()
	if err != nil {
		return "", fmt.Errorf("read html %s: %w", url, err)
	}
	return html, nil
}

// open loads url in a new tab and waits for waitFor. The returned page
// carries ctx but no timeout.
func (f *BrowserFetcher) open(ctx context.Context, b *rod.Browser, url, waitFor string) (*rod.Page, error) {
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}

	p := page.Timeout(f.cfg.Timeout)
	if err := p.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait load %s: %w", url, err)
	}
	if waitFor != "" {
		if _, err := p.Element(waitFor); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("wait for %q on %s: %w", waitFor, url, err)
		}
	}
	return page, nil
}

// FetchPages keeps url open and runs paging.Script between rounds,
// yielding the extracted page after each one. Only opening the page is
// retried; a round that fails ends the listing with what was yielded.
func (f *BrowserFetcher) FetchPages(ctx context.Context, url string, schema Schema, paging Paging, yield func(*Page) bool) error {
	b, err := f.connect()
	if err != nil {
		return err
	}

	var page *rod.Page
	err = withRetry(ctx, f.cfg, f.log, url, func() error {
		var err error
		page, err = f.open(ctx, b, url, schema.WaitFor)
		return err
	})
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()

	if err := sleepCtx(ctx, schema.Delay); err != nil {
		return err
	}

	seen := -1
	for round := 1; ; round++ {
		html, err := page.Timeout(f.cfg.Timeout).HTML()
		if err != nil {
			return fmt.Errorf("%w: read html %s round %d: %v", ErrFetch, url, round, err)
		}
		p, err := fetchPage(ctx, func(context.Context) ([]byte, error) { return []byte(html), nil }, url, schema)
		if err != nil {
			return err
		}
		if len(p.Records) <= seen {
			f.log.Debug("listing stopped growing", zap.String("url", url), zap.Int("round", round), zap.Int("records", seen))
			return nil
		}
		seen = len(p.Records)
		if !yield(p) {
			return nil
		}
		if paging.Script == "" || (paging.MaxRounds > 0 && round >= paging.MaxRounds) {
			return nil
		}

		if _, err := page.Timeout(f.cfg.Timeout).Eval(paging.Script); err != nil {
			return fmt.Errorf("%w: paging script on %s: %v", ErrFetch, url, err)
		}
		if err := sleepCtx(ctx, paging.Pause); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.launcher.Cleanup()
	f.browser, f.launcher = nil, nil
	return err
}
