// Package telemetry records what the meld engine does: Prometheus metrics for
// queueing, dispatch and reconciliation, and OpenTelemetry spans covering each
// round trip from dispatch to applied response.
//
// Both Metrics and Tracer are nil-safe: an engine without telemetry passes
// nil and every recording call becomes a no-op.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	eng := engine.New(doc, tr,
//	    engine.WithMetrics(telemetry.NewMetrics(telemetry.WithRegistry(reg))),
//	    engine.WithTracer(telemetry.NewTracer()),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package telemetry
