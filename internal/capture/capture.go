package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	"go.uber.org/zap"
)

// ErrUnavailable means no renderer is configured or reachable.
var ErrUnavailable = errors.New("capture unavailable: no renderer")

// Format is the encoding every renderer produces.
const Format = "jpeg"

// Settings bounds viewports and paces the browser renderer.
type Settings struct {
	DefaultWidth      int
	DefaultHeight     int
	MaxWidth          int
	MaxHeight         int
	Quality           int
	NavigationTimeout time.Duration
	NavigationSettle  time.Duration
	ScrollSettle      time.Duration
}

// SettingsFrom copies the capture section of the configuration.
func SettingsFrom(c config.CaptureConfig) Settings {
	return Settings{
		DefaultWidth:      c.DefaultWidth,
		DefaultHeight:     c.DefaultHeight,
		MaxWidth:          c.MaxWidth,
		MaxHeight:         c.MaxHeight,
		Quality:           c.Quality,
		NavigationTimeout: c.NavigationTimeout,
		NavigationSettle:  c.NavigationSettle,
		ScrollSettle:      c.ScrollSettle,
	}
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return SettingsFrom(config.Default().Capture)
}

// Request is a normalized capture request.
type Request struct {
	URL string
	// Position is the document-relative point to center; nil captures the top of the page.
	Position *coords.Percent
	Viewport coords.Size
	// Document is the scroll extent measured by the client, when known.
	Document coords.Size
}

// NewRequest validates an API request and clamps its viewport: each axis
// falls back to its default when unset and never exceeds its maximum.
func NewRequest(in types.CaptureRequest, s Settings) (Request, error) {
	if _, err := utils.ParseHTTPURL(in.URL); err != nil {
		return Request{}, &types.ValidationError{Fields: map[string]string{"url": err.Error()}}
	}
	req := Request{
		URL:      in.URL,
		Viewport: Viewport(in.ViewportWidth, in.ViewportHeight, s),
		Document: coords.Size{Width: in.DocumentWidth, Height: in.DocumentHeight},
	}
	if in.X != nil && in.Y != nil {
		pos := coords.Percent{X: *in.X, Y: *in.Y}.Clamp()
		req.Position = &pos
	}
	return req, nil
}

// Viewport applies defaults and maximums to a requested size.
func Viewport(w, h int, s Settings) coords.Size {
	if w <= 0 {
		w = s.DefaultWidth
	}
	if h <= 0 {
		h = s.DefaultHeight
	}
	return coords.Size{Width: float64(min(w, s.MaxWidth)), Height: float64(min(h, s.MaxHeight))}
}

// Renderer produces an encoded screenshot.
type Renderer interface {
	Name() string
	// Available reports whether Render is worth attempting right now.
	Available() bool
	Render(ctx context.Context, req Request) ([]byte, error)
}

// Result is a rendered screenshot.
type Result struct {
	Image    []byte
	Renderer string
}

// Service tries renderers in order.
type Service struct {
	renderers []Renderer
	metrics   *monitoring.Metrics
	log       *logging.Logger
}

// NewService creates a service over renderers in preference order.
func NewService(metrics *monitoring.Metrics, log *logging.Logger, renderers ...Renderer) *Service {
	return &Service{renderers: renderers, metrics: metrics, log: log.Component("capture")}
}

// Enabled reports whether any renderer is currently available.
func (s *Service) Enabled() bool {
	for _, r := range s.renderers {
		if r.Available() {
			return true
		}
	}
	return false
}

// Capture renders req with the first available renderer, falling through to
// the next one when a renderer fails. It returns ErrUnavailable when no
// renderer could be attempted.
func (s *Service) Capture(ctx context.Context, req Request) (*Result, error) {
	var errs []error
	for _, r := range s.renderers {
		if !r.Available() {
			continue
		}
		timer := monitoring.NewTimer()
		img, err := r.Render(ctx, req)
		if err == nil {
			s.metrics.RecordCapture(r.Name(), "success", timer.Elapsed())
			s.log.Info("screenshot captured",
				append(tracing.Fields(ctx),
					zap.String("renderer", r.Name()),
					zap.String("url", req.URL),
					zap.Int("bytes", len(img)),
					zap.Duration("duration", timer.Elapsed()))...)
			return &Result{Image: img, Renderer: r.Name()}, nil
		}

		s.metrics.RecordCapture(r.Name(), "error", timer.Elapsed())
		s.log.Warn("renderer failed", zap.String("renderer", r.Name()), zap.String("url", req.URL), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		s.metrics.RecordCapture("none", "skipped", 0)
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("capture %s: %w", req.URL, errors.Join(errs...))
}
