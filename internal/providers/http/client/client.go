package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"github.com/gregjones/httpcache"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrBodyTooLarge is returned when a response exceeds Options.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// StatusError reports an upstream server failure (5xx).
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d", e.URL, e.Status)
}

// Options configures a Client.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	// Retries applies to idempotent transient failures only; the proxy path
	// runs with zero so upstream failures surface immediately.
	Retries int
	Cache   bool
	// CacheEntries bounds the response cache; zero means DefaultCacheEntries.
	CacheEntries int
	UserAgent    string
	// RateLimit bounds outbound requests per second; zero is unlimited.
	RateLimit float64
}

// DefaultOptions returns settings suitable for the rewriting proxy.
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		MaxRedirects: 5,
		MaxBodyBytes: 50 << 20,
		UserAgent:    "ReviewCanvas/1.0",
	}
}

// Client wraps resty with rate limiting, per-host circuit breakers and an
// optional RFC 7234 cache for static assets.
type Client struct {
	Resty    *resty.Client
	Limiter  *rate.Limiter
	Breakers *resilience.Group

	maxBody int64
}

// Response is a fully read upstream response.
type Response struct {
	// URL is the final URL after redirects.
	URL    string
	Status int
	Header http.Header
	Body   []byte
	Cached bool
}

// NewClient creates a production-ready HTTP client.
func NewClient(opts Options) *Client {
	// Pooled transport from retryablehttp, optionally wrapped by httpcache
	var transport http.RoundTripper = retryablehttp.NewClient().HTTPClient.Transport
	if opts.Cache {
		transport = &httpcache.Transport{
			Transport:           transport,
			Cache:               newAssetCache(opts.CacheEntries),
			MarkCachedResponses: true,
		}
	}

	restyClient := resty.New().
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects)).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(retryPolicy).
		SetDoNotParseResponse(true)
	if opts.UserAgent != "" {
		restyClient.SetHeader("User-Agent", opts.UserAgent)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	breakers := resilience.NewGroup(resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// Origins vary in reliability; trip on a clear streak or a high failure rate
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
		IsSuccessful: isSuccessful,
	})

	return &Client{
		Resty:    restyClient,
		Limiter:  limiter,
		Breakers: breakers,
		maxBody:  opts.MaxBodyBytes,
	}
}

// retryPolicy defers to retryablehttp's classification of transient failures.
func retryPolicy(r *resty.Response, err error) bool {
	var raw *http.Response
	ctx := context.Background()
	if r != nil {
		raw = r.RawResponse
		if r.Request != nil {
			ctx = r.Request.Context()
		}
	}
	if raw == nil && err == nil {
		return false
	}
	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, raw, err)
	return retry
}

// isSuccessful keeps client-side cancellations and non-5xx answers from
// counting against an origin's breaker.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrBodyTooLarge) {
		return true
	}
	return false
}

// Get fetches target with the given request headers.
func (c *Client) Get(ctx context.Context, target string, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, target, header, nil)
}

// PostJSON posts body as JSON. Trace ids from ctx are propagated.
func (c *Client) PostJSON(ctx context.Context, target string, body any, header http.Header) (*Response, error) {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	tracing.Inject(ctx, h)
	return c.do(ctx, http.MethodPost, target, h, body)
}

func (c *Client) do(ctx context.Context, method, target string, header http.Header, body any) (*Response, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid target %q", target)
	}

	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	return resilience.Do(c.Breakers.Get(u.Host), func() (*Response, error) {
		req := c.Resty.R().SetContext(ctx).SetHeaderMultiValues(header)
		if body != nil {
			req.SetBody(body)
		}

		resp, err := req.Execute(method, target)
		if err != nil {
			return nil, err
		}
		return c.read(resp, target)
	})
}

func (c *Client) read(resp *resty.Response, target string) (*Response, error) {
	raw := resp.RawBody()
	defer raw.Close()

	reader := io.Reader(raw)
	if c.maxBody > 0 {
		reader = io.LimitReader(raw, c.maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if c.maxBody > 0 && int64(len(body)) > c.maxBody {
		return nil, ErrBodyTooLarge
	}

	out := &Response{
		URL:    target,
		Status: resp.StatusCode(),
		Header: resp.Header(),
		Body:   body,
		Cached: resp.Header().Get(httpcache.XFromCache) != "",
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		out.URL = resp.RawResponse.Request.URL.String()
	}

	if out.Status >= http.StatusInternalServerError {
		return out, &StatusError{URL: target, Status: out.Status}
	}
	return out, nil
}
