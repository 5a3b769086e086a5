package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Guard rejects targets whose host matches a configured glob.
type Guard struct {
	patterns []string
}

// NewGuard validates the deny-list patterns.
func NewGuard(patterns []string) (*Guard, error) {
	g := &Guard{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid host pattern %q", p)
		}
		g.patterns = append(g.patterns, p)
	}
	return g, nil
}

// Check parses target and verifies it is an absolute http(s) URL whose host
// is not denied.
func (g *Guard) Check(target string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	host := strings.ToLower(u.Hostname())
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, host); ok {
			return nil, fmt.Errorf("%w: %s", ErrBlockedHost, host)
		}
	}
	return u, nil
}
