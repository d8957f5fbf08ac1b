// Package app wires the churn dashboard together and owns its lifecycle:
// configuration, logging, OpenTelemetry, the dashboard service, the
// WebSocket hub and the HTTP server.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, CHURN_* environment)
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Create business metrics, the WebSocket hub and the dashboard service
//	4. Build the chi router and the HTTP server
//
// # Routes
//
//	/ws                    dashboard snapshots over WebSocket (?session=<id>)
//	/metrics               Prometheus exposition
//	/api/sessions/...      dashboard sessions
//	/api/health[/ready|/live], /api/version
//	/api/logs              browser log relay
//
// The WebSocket route sits outside the request timeout and the middleware
// that wraps the ResponseWriter.
//
// # Usage
//
//	a, err := app.New()
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns once ctx is cancelled or SIGINT/SIGTERM arrives. In-flight
// requests are drained for up to ShutdownTimeout, WebSocket clients are
// closed and telemetry is flushed. The package never calls os.Exit.
package app
