/*
Package tracing provides lightweight request tracing for debugging production
issues.

# Overview

Every HTTP request gets a span. Trace and span ids are propagated through the
X-Trace-ID and X-Span-ID headers, both inbound (a caller may continue its own
trace) and outbound (the remote capture API receives the ids of the request
that triggered it). Completed spans are drained by a collector goroutine and
logged through zap.

# Usage

	tracer := tracing.New("reviewcanvas", logger.Logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Correlate component logs with the request span
	log.Info("upstream fetched", append(tracing.Fields(ctx), zap.String("url", u))...)

	// Propagate to an outbound call
	tracing.Inject(ctx, req.Header)

# Performance

Spans are buffered (1000) and processed asynchronously; a full buffer drops
spans rather than blocking the request path.
*/
package tracing
