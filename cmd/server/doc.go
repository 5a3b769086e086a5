// Package main is the entry point for the ReviewCanvas backend server.
//
// The server proxies third-party pages into review frames, injects the
// overlay script, stores comments and canvas reviews, relays live
// collaboration events over WebSocket and captures screenshots around
// comment positions.
//
// Architecture:
//
//	Review UI ─┬─ REST /api ──────── Managers ── Badger store
//	           ├─ /proxy ─────────── Rewriter ── upstream sites
//	           └─ /ws ────────────── Hub (rooms)
//	Overlay (inside proxied page) ── postMessage ── Review UI
//
// Configuration:
//   - Environment variables (12-factor), optionally from .env
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	JWT_SECRET=... ./server -port 3001 -data /var/lib/reviewcanvas
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
