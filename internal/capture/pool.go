package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("browser pool is closed")

// Launcher starts a browser process.
type Launcher func(ctx context.Context) (Browser, error)

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Size bounds concurrently open pages.
	Size int
	// RetryAfter is how long a failed launch keeps the pool unavailable.
	RetryAfter time.Duration
}

// Pool owns one lazily launched browser shared by all captures. Each
// Acquire opens a fresh isolated page.
type Pool struct {
	launch  Launcher
	opts    PoolOptions
	metrics *monitoring.Metrics
	log     *logging.Logger
	now     func() time.Time

	sem    *semaphore.Weighted
	flight singleflight.Group
	inUse  atomic.Int64

	mu       sync.Mutex
	browser  Browser
	failedAt time.Time
	closed   bool
}

// NewPool creates a pool. A nil launch yields a pool that is never available.
func NewPool(launch Launcher, opts PoolOptions, metrics *monitoring.Metrics, log *logging.Logger) *Pool {
	if opts.Size <= 0 {
		opts.Size = 4
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Minute
	}
	return &Pool{
		launch:  launch,
		opts:    opts,
		metrics: metrics,
		log:     log.Component("capture.pool"),
		now:     time.Now,
		sem:     semaphore.NewWeighted(int64(opts.Size)),
	}
}

// Available reports whether a capture may be attempted: the pool is open
// and no launch failed within the retry window.
func (p *Pool) Available() bool {
	if p.launch == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	return p.failedAt.IsZero() || p.now().Sub(p.failedAt) >= p.opts.RetryAfter
}

// Acquire opens a page, waiting for a free slot. The returned release
// closes the page and frees the slot; it is safe to call more than once.
func (p *Pool) Acquire(ctx context.Context) (Page, func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	freed := false
	free := func() {
		if !freed {
			freed = true
			p.sem.Release(1)
		}
	}

	b, err := p.browserFor(ctx)
	if err != nil {
		free()
		return nil, nil, err
	}
	page, err := b.NewPage(ctx)
	if err != nil {
		free()
		if ctx.Err() == nil {
			// A browser that cannot open pages is presumed dead.
			p.Reset()
		}
		return nil, nil, fmt.Errorf("open page: %w", err)
	}
	p.metrics.SetPagesInUse(int(p.inUse.Add(1)))

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := page.Close(); err != nil {
				p.log.Debug("close page", zap.Error(err))
			}
			p.metrics.SetPagesInUse(int(p.inUse.Add(-1)))
			free()
		})
	}
	return page, release, nil
}

// InUse returns the number of open pages.
func (p *Pool) InUse() int { return int(p.inUse.Load()) }

// browserFor returns the shared browser, launching it once on first use.
// Concurrent callers share a single launch.
func (p *Pool) browserFor(ctx context.Context) (Browser, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.browser != nil {
		b := p.browser
		p.mu.Unlock()
		return b, nil
	}
	p.mu.Unlock()

	if !p.Available() {
		return nil, ErrUnavailable
	}

	v, err, _ := p.flight.Do("browser", func() (any, error) {
		p.mu.Lock()
		if p.browser != nil {
			b := p.browser
			p.mu.Unlock()
			return b, nil
		}
		p.mu.Unlock()

		// The browser outlives the request that triggered the launch.
		b, err := p.launch(context.WithoutCancel(ctx))

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.failedAt = p.now()
			p.log.Error("browser launch failed", zap.Duration("retry_after", p.opts.RetryAfter), zap.Error(err))
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		if p.closed {
			_ = b.Close()
			return nil, ErrPoolClosed
		}
		p.browser = b
		p.failedAt = time.Time{}
		p.log.Info("browser launched", zap.Int("pages", p.opts.Size))
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Browser), nil
}

// Reset drops the current browser so the next Acquire relaunches it.
func (p *Pool) Reset() {
	p.mu.Lock()
	b := p.browser
	p.browser = nil
	p.mu.Unlock()
	if b != nil {
		_ = b.Close()
	}
}

// Close shuts the browser down. Pages still open are closed with it.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	p.log.Info("browser closed")
	return err
}
