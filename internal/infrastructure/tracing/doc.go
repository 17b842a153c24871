/*
Package tracing assigns every API request a trace and span ID and logs
completed spans through the kernel logger.

# Overview

The kernel is a single process, so there is no wire propagation: a span
is born in the HTTP middleware, travels down the call chain inside the
request context, and is submitted to an in-process collector when the
handler returns. The model borrows OpenTelemetry's vocabulary (traces,
spans, tags) without the dependency.

# Usage

	// Create tracer
	tracer := tracing.New("kernel", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")
	span.Log("message", map[string]interface{}{"detail": "info"})

# Trace Format

The shell may send an X-Trace-ID header to stitch kernel spans into its
own client-side timeline; otherwise the middleware mints a fresh trace
per request. Responses always carry X-Trace-ID and X-Span-ID.

# Performance

Spans are fire-and-forget. The collector drains a bounded channel
(1000 spans) and drops spans under pressure rather than stalling
handlers.
*/
package tracing
