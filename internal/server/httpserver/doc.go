// Package httpserver provides the HTTP server of pcompress-server.
//
// Endpoints, built on net/http's pattern-matching ServeMux:
//
//   - GET  /health
//   - GET  /metrics (Prometheus)
//   - GET  /chains?user=&graph_hash=&limit=
//   - GET  /chains/{id}, /chains/{id}/file, /chains/{id}/replay?location=&diff=
//   - POST /chains (multipart upload, X-API-Key when configured)
//
// Every request passes through panic recovery, a ULID request id, the audit
// log, a per-IP token bucket and request metrics.
package httpserver
