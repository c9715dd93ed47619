// Package server runs the HTTP surface of jobhealth: the health report,
// liveness and readiness probes, and optional Prometheus exposition.
//
// Every response carries an X-Request-ID header. An incoming ID is echoed,
// otherwise a random UUID is generated.
//
// Run blocks until its context is cancelled, then shuts the listener down
// gracefully within Config.ShutdownTimeout.
package server
