package proxy

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Profile is the header set presented to upstreams for one browser engine.
type Profile struct {
	Name           string `yaml:"-" toml:"-"`
	UserAgent      string `yaml:"userAgent" toml:"userAgent"`
	Accept         string `yaml:"accept" toml:"accept"`
	AcceptLanguage string `yaml:"acceptLanguage" toml:"acceptLanguage"`
}

// Header returns the request headers for this profile.
func (p Profile) Header() http.Header {
	return http.Header{
		"User-Agent":      {p.UserAgent},
		"Accept":          {p.Accept},
		"Accept-Language": {p.AcceptLanguage},
		"Accept-Encoding": {AcceptEncoding},
	}
}

// DefaultProfile is used for unknown or empty profile names.
const DefaultProfile = "chromium"

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

// Profiles maps a lowercase profile name to its header set.
type Profiles map[string]Profile

// DefaultProfiles returns the built-in chromium, firefox, webkit and edge
// profiles.
func DefaultProfiles() Profiles {
	return Profiles{
		"chromium": {
			Name:           "chromium",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			Accept:         htmlAccept,
			AcceptLanguage: "en-US,en;q=0.9",
		},
		"firefox": {
			Name:           "firefox",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
			Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			AcceptLanguage: "en-US,en;q=0.5",
		},
		"webkit": {
			Name:           "webkit",
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
			Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			AcceptLanguage: "en-US,en;q=0.9",
		},
		"edge": {
			Name:           "edge",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
			Accept:         htmlAccept,
			AcceptLanguage: "en-US,en;q=0.9",
		},
	}
}

// Lookup returns the named profile, falling back to chromium.
func (p Profiles) Lookup(name string) Profile {
	if prof, ok := p[strings.ToLower(strings.TrimSpace(name))]; ok {
		return prof
	}
	return p[DefaultProfile]
}

// LoadProfiles reads overrides from a YAML or TOML file (chosen by
// extension) and merges them over the defaults. Fields left empty in the
// file keep their default values. An empty path returns the defaults.
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	overrides := map[string]Profile{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &overrides)
	case ".toml":
		err = toml.Unmarshal(data, &overrides)
	default:
		return nil, fmt.Errorf("unsupported profiles format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	for name, o := range overrides {
		key := strings.ToLower(name)
		merged := profiles[key]
		merged.Name = key
		if o.UserAgent != "" {
			merged.UserAgent = o.UserAgent
		}
		if o.Accept != "" {
			merged.Accept = o.Accept
		}
		if o.AcceptLanguage != "" {
			merged.AcceptLanguage = o.AcceptLanguage
		}
		if merged.UserAgent == "" || merged.Accept == "" {
			return nil, fmt.Errorf("profile %q needs userAgent and accept", key)
		}
		profiles[key] = merged
	}
	return profiles, nil
}
