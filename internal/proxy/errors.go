package proxy

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTarget = errors.New("invalid target url")
	ErrBlockedHost   = errors.New("target host is blocked")
)

// UpstreamFetchError reports a target that could not be fetched: network
// failure, timeout, an open circuit or a 5xx answer. It is not retried.
type UpstreamFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: upstream status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// RewriteError reports a body that could not be rewritten. The proxy logs
// it and serves the upstream body unmodified.
type RewriteError struct {
	URL  string
	Kind Kind
	Err  error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite %s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *RewriteError) Unwrap() error { return e.Err }
