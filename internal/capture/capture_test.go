package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00\xff\xd9")

type fakePage struct {
	doc      coords.Size
	navErr   error
	block    bool
	viewport coords.Size
	scrolled *coords.Point
	closed   atomic.Bool
}

func (p *fakePage) SetViewport(_ context.Context, s coords.Size) error { p.viewport = s; return nil }

func (p *fakePage) Navigate(ctx context.Context, _ string) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.navErr
}

func (p *fakePage) DocumentSize(context.Context) (coords.Size, error) { return p.doc, nil }

func (p *fakePage) ScrollTo(_ context.Context, pt coords.Point) error {
	p.scrolled = &pt
	return nil
}

func (p *fakePage) Screenshot(context.Context, int) ([]byte, error) { return jpegBytes, nil }

func (p *fakePage) Close() error { p.closed.Store(true); return nil }

type fakeBrowser struct {
	mu     sync.Mutex
	pages  []*fakePage
	tmpl   fakePage
	closed bool
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &fakePage{doc: b.tmpl.doc, navErr: b.tmpl.navErr, block: b.tmpl.block}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error { b.closed = true; return nil }

func instantSettings() Settings {
	s := DefaultSettings()
	s.NavigationSettle, s.ScrollSettle = 0, 0
	return s
}

func newRenderer(b *fakeBrowser, launches *atomic.Int32) (*BrowserRenderer, *Pool) {
	pool := NewPool(func(context.Context) (Browser, error) {
		if launches != nil {
			launches.Add(1)
		}
		return b, nil
	}, PoolOptions{Size: 2}, nil, logging.NewNop())
	return NewBrowserRenderer(pool, instantSettings()), pool
}

func TestViewportClamp(t *testing.T) {
	s := DefaultSettings()
	tests := []struct {
		name string
		w, h int
		want coords.Size
	}{
		{"defaults", 0, 0, coords.Size{Width: 800, Height: 600}},
		{"inside", 1024, 768, coords.Size{Width: 1024, Height: 768}},
		{"clamped", 1920, 1080, coords.Size{Width: 1200, Height: 900}},
		{"negative", -5, 700, coords.Size{Width: 800, Height: 700}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Viewport(tt.w, tt.h, s))
		})
	}
}

func TestNewRequest(t *testing.T) {
	x, y := 80.0, 120.0
	req, err := NewRequest(types.CaptureRequest{URL: "https://example.com", X: &x, Y: &y}, DefaultSettings())
	require.NoError(t, err)
	require.NotNil(t, req.Position)
	assert.Equal(t, coords.Percent{X: 80, Y: 100}, *req.Position)

	req, err = NewRequest(types.CaptureRequest{URL: "https://example.com", X: &x}, DefaultSettings())
	require.NoError(t, err)
	assert.Nil(t, req.Position, "a position needs both axes")

	_, err = NewRequest(types.CaptureRequest{}, DefaultSettings())
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestBrowserRendererCentersPoint(t *testing.T) {
	b := &fakeBrowser{tmpl: fakePage{doc: coords.Size{Width: 3000, Height: 2000}}}
	r, pool := newRenderer(b, nil)

	img, err := r.Render(context.Background(), Request{
		URL:      "https://example.com",
		Position: &coords.Percent{X: 80, Y: 10},
		Viewport: coords.Size{Width: 800, Height: 600},
	})
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, img)

	require.Len(t, b.pages, 1)
	page := b.pages[0]
	assert.Equal(t, coords.Size{Width: 800, Height: 600}, page.viewport)
	require.NotNil(t, page.scrolled)
	assert.Equal(t, coords.Point{X: 2000, Y: 0}, *page.scrolled)
	assert.True(t, page.closed.Load())
	assert.Zero(t, pool.InUse())
}

func TestBrowserRendererWithoutPositionDoesNotScroll(t *testing.T) {
	b := &fakeBrowser{tmpl: fakePage{doc: coords.Size{Width: 1000, Height: 1000}}}
	r, _ := newRenderer(b, nil)

	_, err := r.Render(context.Background(), Request{URL: "https://example.com", Viewport: coords.Size{Width: 800, Height: 600}})
	require.NoError(t, err)
	assert.Nil(t, b.pages[0].scrolled)
}

func TestBrowserRendererReleasesPageOnTimeout(t *testing.T) {
	b := &fakeBrowser{tmpl: fakePage{block: true}}
	r, pool := newRenderer(b, nil)
	r.settings.NavigationTimeout = 20 * time.Millisecond

	_, err := r.Render(context.Background(), Request{URL: "https://slow.example", Viewport: coords.Size{Width: 800, Height: 600}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, b.pages[0].closed.Load())
	assert.Zero(t, pool.InUse())
}

func TestPoolLaunchesOnce(t *testing.T) {
	var launches atomic.Int32
	b := &fakeBrowser{tmpl: fakePage{doc: coords.Size{Width: 100, Height: 100}}}
	r, pool := newRenderer(b, &launches)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Render(context.Background(), Request{URL: "https://example.com", Viewport: coords.Size{Width: 10, Height: 10}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), launches.Load())
	assert.Len(t, b.pages, 8)
	assert.Zero(t, pool.InUse())

	require.NoError(t, pool.Close())
	assert.True(t, b.closed)
	assert.False(t, pool.Available())
	_, _, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolBoundsConcurrentPages(t *testing.T) {
	b := &fakeBrowser{}
	pool := NewPool(func(context.Context) (Browser, error) { return b, nil }, PoolOptions{Size: 1}, nil, logging.NewNop())

	_, release, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	_, release, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestPoolLaunchFailureCoolsDown(t *testing.T) {
	var attempts atomic.Int32
	pool := NewPool(func(context.Context) (Browser, error) {
		attempts.Add(1)
		return nil, errors.New("no chromium")
	}, PoolOptions{Size: 1, RetryAfter: time.Minute}, nil, logging.NewNop())

	now := time.Now()
	pool.now = func() time.Time { return now }

	assert.True(t, pool.Available())
	_, _, err := pool.Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, pool.Available())

	_, _, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), attempts.Load())

	now = now.Add(2 * time.Minute)
	assert.True(t, pool.Available())
}

type stubRenderer struct {
	name      string
	available bool
	err       error
	calls     int
}

func (s *stubRenderer) Name() string    { return s.name }
func (s *stubRenderer) Available() bool { return s.available }
func (s *stubRenderer) Render(context.Context, Request) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.name), nil
}

func TestServicePreferenceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("remote first", func(t *testing.T) {
		remote := &stubRenderer{name: "remote", available: true}
		browser := &stubRenderer{name: "browser", available: true}
		res, err := NewService(nil, logging.NewNop(), remote, browser).Capture(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, "remote", res.Renderer)
		assert.Zero(t, browser.calls)
	})

	t.Run("falls through on failure", func(t *testing.T) {
		remote := &stubRenderer{name: "remote", available: true, err: errors.New("503")}
		browser := &stubRenderer{name: "browser", available: true}
		res, err := NewService(nil, logging.NewNop(), remote, browser).Capture(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, "browser", res.Renderer)
	})

	t.Run("skips unavailable", func(t *testing.T) {
		remote := &stubRenderer{name: "remote"}
		browser := &stubRenderer{name: "browser", available: true}
		res, err := NewService(nil, logging.NewNop(), remote, browser).Capture(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, "browser", res.Renderer)
		assert.Zero(t, remote.calls)
	})

	t.Run("none available", func(t *testing.T) {
		svc := NewService(nil, logging.NewNop(), &stubRenderer{name: "remote"}, &stubRenderer{name: "browser"})
		assert.False(t, svc.Enabled())
		_, err := svc.Capture(ctx, Request{})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("all fail", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewService(nil, logging.NewNop(), &stubRenderer{name: "browser", available: true, err: boom}).Capture(ctx, Request{})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})
}

func TestRemoteRenderer(t *testing.T) {
	type call struct {
		body remoteBody
		auth string
	}
	calls := make(chan call, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c call
		c.auth = r.Header.Get("Authorization")
		assert.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&c.body))
		calls <- c
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegBytes)
	}))
	defer srv.Close()

	opts := client.DefaultOptions()
	opts.Cache = false
	r := NewRemoteRenderer(client.NewClient(opts), srv.URL, "k3y", 85, time.Second)
	require.True(t, r.Available())

	img, err := r.Render(context.Background(), Request{
		URL:      "https://example.com",
		Position: &coords.Percent{X: 80, Y: 40},
		Viewport: coords.Size{Width: 800, Height: 600},
		Document: coords.Size{Width: 3000, Height: 2000},
	})
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, img)
	got := <-calls
	assert.Equal(t, "Bearer k3y", got.auth)
	assert.Equal(t, remoteBody{
		URL: "https://example.com", X: 80, Y: 40, Width: 800, Height: 600,
		ScrollX: 2000, ScrollY: 500, Format: "jpeg", Quality: 85,
	}, got.body)

	assert.False(t, NewRemoteRenderer(nil, "", "", 85, time.Second).Available())
}

func TestRemoteRendererRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	opts := client.DefaultOptions()
	opts.Cache = false
	r := NewRemoteRenderer(client.NewClient(opts), srv.URL, "", 85, time.Second)
	_, err := r.Render(context.Background(), Request{URL: "https://example.com", Viewport: coords.Size{Width: 800, Height: 600}})
	assert.ErrorContains(t, err, "not an image")
}
