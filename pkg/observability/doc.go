// Package observability provides structured logging, Prometheus metrics,
// health probes and graceful shutdown for the review service.
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("addr", addr).Info("server listening")
//
// Metrics are registered against a private registry and exposed on the
// management listener:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.SigninCodesIssued.Inc()
package observability
