// Package httpclient provides the HTTP client factory shared by the search
// backend and the completion providers.
//
// Clients are created with secure defaults:
//   - Request logging with sanitized URLs (sensitive parameters redacted)
//   - User-Agent header injection
//   - W3C traceparent propagation when the request context carries a span
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//
// There is deliberately no retry layer here. Search is never retried, and
// completions are retried by llm.Invoker, which owns the attempt budget.
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "newsmood-groq/1.0"
//	cfg.Timeout = 60 * time.Second
//	client, err := httpclient.New(cfg)
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: successful requests
//   - Warn level: failed requests (4xx/5xx status, errors)
//   - Fields: method, url (sanitized), status, duration_ms, error, trace_id
package httpclient
