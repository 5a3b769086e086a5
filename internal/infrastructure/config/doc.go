// Package config provides 12-factor configuration management for the
// ReviewCanvas backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional .env file is read by cmd/server before Load runs, and CLI flags
// can override individual values for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP listen address, public base URL, CORS origins
//   - Proxy: upstream timeout, redirect bound, host deny-list, profile file
//   - Capture: remote screenshot API and headless browser pool settings
//   - Storage: document store directory and screenshot retention
//   - Auth: shared secret for verifying externally issued bearer tokens
//   - Sync: client polling intervals and per-socket send queue depth
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Address())
package config
