// Package observability provides logging, metrics, health checks, tracing,
// and graceful shutdown for the Hub SSO bridge.
//
// # Logging
//
// Logger wraps stdlib slog with a JSON handler and chainable field helpers:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("email", email).Warn("hub sso request expired")
//
// Request-scoped loggers travel on the context; FromContext attaches the
// request ID automatically.
//
// # Metrics
//
// NewMetrics registers Prometheus collectors for login traffic, signature
// validation outcomes, and user provisioning. The /metrics endpoint is
// served from the health port, never the public port.
//
// # Health
//
// HealthChecker exposes liveness and readiness probes. Readiness checks the
// user database and, when configured, the replay-cache Redis. An absent
// shared secret reports the SSO feature as disabled (degraded): the process
// is healthy but the login endpoint answers 503.
//
// # Tracing
//
// InitOTel wires optional OpenTelemetry trace and metric export over OTLP
// gRPC. When disabled it is a no-op.
package observability
