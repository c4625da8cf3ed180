// Package api hosts the HTTP server, middleware, and handlers that expose link
// checks over HTTP. Notable routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/check streams one NDJSON entry per checked link.
//   - GET /v1/runs and /v1/runs/{run_id} report recent runs started through
//     the API.
package api
