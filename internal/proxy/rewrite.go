package proxy

import (
	"net/url"
	"strings"
)

// Route is the path every rewritten reference is wrapped in.
const Route = "/proxy"

var passthroughSchemes = []string{"data:", "blob:", "javascript:", "mailto:", "tel:", "about:"}

// RewriteURL resolves ref against base and wraps the absolute result as
// /proxy?url=<percent-encoded>. Resolution rules:
//
//	http(s)://...   used as is
//	//host/path     inherits the base scheme
//	/path           inherits the base scheme and host
//	anything else   standard relative resolution against base
//
// Empty refs yield "". Non-fetchable schemes, fragment-only refs and refs
// already pointing at the proxy are returned unchanged, as is any ref that
// fails to resolve.
func RewriteURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if !Rewritable(ref) {
		return ref
	}

	abs, ok := Resolve(ref, base)
	if !ok {
		return ref
	}
	return Wrap(abs)
}

// Rewritable reports whether ref names a fetchable resource that is not
// already proxied.
func Rewritable(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || isProxied(ref) {
		return false
	}
	lower := strings.ToLower(ref)
	for _, scheme := range passthroughSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}

// isProxied matches the proxy route itself, not upstream paths that merely
// start with the same letters such as /proxy-assets/.
func isProxied(ref string) bool {
	return ref == Route || strings.HasPrefix(ref, Route+"?")
}

// Resolve turns ref into an absolute URL using base.
func Resolve(ref, base string) (string, bool) {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref, true
	}

	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(ref, "//"):
		return b.Scheme + ":" + ref, true
	case strings.HasPrefix(ref, "/"):
		return b.Scheme + "://" + b.Host + ref, true
	}

	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(r).String(), true
}

// Wrap returns the proxy path for an absolute URL.
func Wrap(abs string) string {
	return Route + "?url=" + encodeComponent(abs)
}

// encodeComponent percent-encodes every byte outside the unreserved set,
// with spaces as %20 rather than +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
