// ABOUTME: Package health exposes liveness, readiness and metrics for the shopkeeper process
// ABOUTME: Serves plain HTTP and the standard gRPC health protocol

// Package health serves the operational endpoints of the bot process:
//
//   - GET /health - liveness, always 200 while the process runs
//   - GET /health/ready - 200 when the store answers a ping, 503 otherwise
//   - GET <metrics.path> - Prometheus exposition when metrics are enabled
//
// When server.grpc_addr is set the standard grpc.health.v1.Health service is
// also served under the name "shopkeeper". It reports SERVING once the
// Matrix sync is running and a readiness check succeeds.
package health
