// Package client is the outbound HTTP client shared by the rewriting proxy
// and the remote screenshot renderer.
//
// Transport stack, outermost first:
//   - go-resty/resty: request building, bounded redirects, optional retries
//     classified by go-retryablehttp's default policy
//   - gregjones/httpcache: in-memory RFC 7234 cache for static assets
//   - pooled transport from go-retryablehttp
//
// Every call runs through a circuit breaker keyed by upstream host, so one
// failing origin fails fast without affecting the others. Bodies are read in
// full and bounded by MaxBodyBytes; 5xx answers return both the response and
// a *StatusError.
//
// Example Usage:
//
//	c := client.NewClient(client.DefaultOptions())
//	resp, err := c.Get(ctx, "https://example.com/", profile.Header())
package client
