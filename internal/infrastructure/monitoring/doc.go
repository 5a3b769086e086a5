/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the backend
service, tracking HTTP requests, proxy fetches, realtime fan-out, persistence
mutations and screenshot captures.

# Features

- HTTP request metrics (latency, status, size) keyed by route template
- Proxy fetch outcomes per browser profile and rewrite fallbacks
- WebSocket connection, room and broadcast metrics
- Comment/review mutation and mention notification counters
- Capture outcomes per renderer and browser pool occupancy
- Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	defer metrics.Close()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer()
	// ... perform capture ...
	metrics.RecordCapture("browser", "success", timer.Elapsed())
*/
package monitoring
