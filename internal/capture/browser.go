package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
)

// Page is one isolated browser tab.
type Page interface {
	SetViewport(ctx context.Context, size coords.Size) error
	// Navigate loads url and returns once DOMContentLoaded has fired.
	Navigate(ctx context.Context, url string) error
	// DocumentSize measures the full scroll extent of the loaded document.
	DocumentSize(ctx context.Context) (coords.Size, error)
	ScrollTo(ctx context.Context, p coords.Point) error
	Screenshot(ctx context.Context, quality int) ([]byte, error)
	Close() error
}

// Browser opens isolated pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// BrowserRenderer drives a pooled headless browser.
type BrowserRenderer struct {
	pool     *Pool
	settings Settings
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewBrowserRenderer creates a renderer over pool.
func NewBrowserRenderer(pool *Pool, s Settings) *BrowserRenderer {
	return &BrowserRenderer{pool: pool, settings: s, sleep: sleepCtx}
}

func (r *BrowserRenderer) Name() string { return "browser" }

func (r *BrowserRenderer) Available() bool { return r.pool != nil && r.pool.Available() }

// Render captures req in a fresh page. The page is released on every path,
// including cancellation and timeout.
func (r *BrowserRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	page, release, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := page.SetViewport(ctx, req.Viewport); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, r.settings.NavigationTimeout)
	err = page.Navigate(navCtx, req.URL)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}
	if err := r.sleep(ctx, r.settings.NavigationSettle); err != nil {
		return nil, err
	}

	if req.Position != nil {
		doc, err := page.DocumentSize(ctx)
		if err != nil {
			return nil, fmt.Errorf("measure document: %w", err)
		}
		target := coords.ScrollTarget(*req.Position, doc, req.Viewport)
		if err := page.ScrollTo(ctx, target); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
		if err := r.sleep(ctx, r.settings.ScrollSettle); err != nil {
			return nil, err
		}
	}

	img, err := page.Screenshot(ctx, r.settings.Quality)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return img, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
