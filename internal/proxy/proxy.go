package proxy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/providers/http/client"
	"go.uber.org/zap"
)

// Fetcher performs the upstream GET.
type Fetcher interface {
	Get(ctx context.Context, target string, header http.Header) (*client.Response, error)
}

// Injector renders the markup appended to every rewritten HTML page.
type Injector interface {
	Snippet(targetURL, backendURL, breakpoint string) string
}

// Request describes one proxied load.
type Request struct {
	Target  string
	Profile string
	// BackendURL is this server's public base, used for the injected
	// overlay script and sync endpoint.
	BackendURL string
	// Breakpoint, when known, binds the injected overlay to one frame.
	Breakpoint string
}

// Result is what the handler writes back.
type Result struct {
	Status      int
	ContentType string
	Header      http.Header
	Body        []byte
	Kind        Kind
	// Rewritten is false when the body is served exactly as fetched.
	Rewritten bool
}

// cacheHeaders are forwarded for pass-through assets. Framing headers
// (X-Frame-Options, Content-Security-Policy*) are never among them.
var cacheHeaders = []string{"Cache-Control", "ETag", "Last-Modified", "Expires"}

// Service fetches upstream content and makes it embeddable.
type Service struct {
	fetcher  Fetcher
	profiles Profiles
	guard    *Guard
	injector Injector
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewService wires a proxy service.
func NewService(fetcher Fetcher, profiles Profiles, guard *Guard, injector Injector, metrics *monitoring.Metrics, log *logging.Logger) *Service {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	if guard == nil {
		guard = &Guard{}
	}
	return &Service{
		fetcher:  fetcher,
		profiles: profiles,
		guard:    guard,
		injector: injector,
		metrics:  metrics,
		log:      log.Component("proxy"),
	}
}

// FetchAndRewrite loads req.Target with the requested browser profile and
// rewrites it for cross-origin embedding. Upstream 4xx answers are relayed
// with their status; anything the fetcher cannot deliver becomes an
// *UpstreamFetchError. Rewrite failures degrade to pass-through.
func (s *Service) FetchAndRewrite(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	target, err := s.guard.Check(req.Target)
	if err != nil {
		return nil, err
	}
	profile := s.profiles.Lookup(req.Profile)

	resp, err := s.fetcher.Get(ctx, target.String(), profile.Header())
	if err != nil {
		s.metrics.RecordProxyFetch(profile.Name, "unknown", "error", time.Since(start))
		return nil, s.fetchError(target.String(), err)
	}

	result := s.rewrite(ctx, req, resp)

	s.metrics.RecordProxyFetch(profile.Name, string(result.Kind), outcome(resp), time.Since(start))
	s.log.Debug("proxied",
		append(tracing.Fields(ctx),
			zap.String("url", target.String()),
			zap.String("profile", profile.Name),
			zap.String("kind", string(result.Kind)),
			zap.Int("status", result.Status),
			zap.Bool("cached", resp.Cached),
			zap.Int("bytes", len(result.Body)),
		)...)

	return result, nil
}

func (s *Service) fetchError(target string, err error) error {
	fe := &UpstreamFetchError{URL: target, Err: err}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		fe.Status = statusErr.Status
	}
	return fe
}

func (s *Service) rewrite(ctx context.Context, req Request, resp *client.Response) *Result {
	body, decodeErr := DecodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	kind, contentType := Classify(resp.Header.Get("Content-Type"), resp.URL, body)

	result := &Result{
		Status:      resp.Status,
		ContentType: contentType,
		Header:      http.Header{},
		Body:        resp.Body,
		Kind:        kind,
	}

	if decodeErr != nil {
		// Still encoded, so the client must decode it
		result.Header.Set("Content-Encoding", resp.Header.Get("Content-Encoding"))
		if kind != KindOther {
			s.fallback(ctx, &RewriteError{URL: resp.URL, Kind: kind, Err: decodeErr})
		}
		return result
	}
	result.Body = body

	switch kind {
	case KindCSS:
		text, _, err := ToUTF8(body, resp.Header.Get("Content-Type"))
		if err != nil {
			s.fallback(ctx, &RewriteError{URL: resp.URL, Kind: kind, Err: err})
			return result
		}
		result.Body = []byte(RewriteCSS(string(text), resp.URL))
		result.ContentType = "text/css; charset=utf-8"
		result.Rewritten = true

	case KindHTML:
		text, _, err := ToUTF8(body, contentType)
		if err != nil {
			s.fallback(ctx, &RewriteError{URL: resp.URL, Kind: kind, Err: err})
			return result
		}
		snippet := ""
		if s.injector != nil {
			snippet = s.injector.Snippet(req.Target, req.BackendURL, req.Breakpoint)
		}
		out, err := RewriteHTML(text, resp.URL, snippet)
		if err != nil {
			s.fallback(ctx, &RewriteError{URL: resp.URL, Kind: kind, Err: err})
			return result
		}
		result.Body = out
		result.ContentType = "text/html; charset=utf-8"
		result.Rewritten = true

	default:
		for _, h := range cacheHeaders {
			if v := resp.Header.Get(h); v != "" {
				result.Header.Set(h, v)
			}
		}
	}
	return result
}

func (s *Service) fallback(ctx context.Context, err *RewriteError) {
	s.metrics.RecordRewriteFallback(string(err.Kind))
	s.log.Warn("rewrite failed, serving upstream body", append(tracing.Fields(ctx), zap.Error(err))...)
}

func outcome(resp *client.Response) string {
	switch {
	case resp.Cached:
		return "cached"
	case resp.Status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "success"
	}
}
