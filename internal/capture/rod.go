package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// documentExtentJS mirrors coords.DocumentExtent inside the page.
const documentExtentJS = `() => {
	const r = document.documentElement, b = document.body || r;
	return {
		width: Math.max(r.scrollWidth, r.offsetWidth, b.scrollWidth, b.offsetWidth),
		height: Math.max(r.scrollHeight, r.offsetHeight, b.scrollHeight, b.offsetHeight)
	};
}`

const scrollToJS = `(x, y) => window.scrollTo(x, y)`

// blockedResources are aborted at the network layer to speed captures up.
var blockedResources = []proto.NetworkResourceType{
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// RodLauncher starts headless Chromium through rod. bin may be empty to use
// the system browser or rod's managed download.
func RodLauncher(bin string, log *logging.Logger) Launcher {
	log = log.Component("capture.rod")
	return func(ctx context.Context) (Browser, error) {
		if bin == "" {
			if path, ok := launcher.LookPath(); ok {
				bin = path
			}
		}
		l := launcher.New().Context(ctx).Headless(true).Leakless(true)
		if bin != "" {
			l = l.Bin(bin)
		}
		controlURL, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}

		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			l.Kill()
			return nil, fmt.Errorf("connect to chromium: %w", err)
		}
		log.Info("chromium started", zap.String("bin", bin))
		return &rodBrowser{browser: browser, launcher: l, log: log}, nil
	}
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	log      *logging.Logger
}

// NewPage opens a tab in its own incognito context so concurrent captures
// never share cookies or storage.
func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	router := page.HijackRequests()
	for _, kind := range blockedResources {
		if err := router.Add("*", kind, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}); err != nil {
			_ = page.Close()
			_ = incognito.Close()
			return nil, fmt.Errorf("block %s: %w", kind, err)
		}
	}
	go router.Run()

	return &rodPage{page: page, incognito: incognito, router: router}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page      *rod.Page
	incognito *rod.Browser
	router    *rod.HijackRouter
}

func (p *rodPage) SetViewport(ctx context.Context, size coords.Size) error {
	return p.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(size.Width),
		Height:            int(size.Height),
		DeviceScaleFactor: 1,
	})
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (p *rodPage) DocumentSize(ctx context.Context) (coords.Size, error) {
	res, err := p.page.Context(ctx).Eval(documentExtentJS)
	if err != nil {
		return coords.Size{}, err
	}
	return coords.Size{
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

func (p *rodPage) ScrollTo(ctx context.Context, pt coords.Point) error {
	_, err := p.page.Context(ctx).Eval(scrollToJS, pt.X, pt.Y)
	return err
}

func (p *rodPage) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	q := quality
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &q,
	})
}

// Close stops interception and disposes the incognito context, which also
// closes the page.
func (p *rodPage) Close() error {
	return errors.Join(p.router.Stop(), p.page.Close(), p.incognito.Close())
}
