// Package services implements the business logic layer of the churn
// dashboard. It sits between the HTTP and WebSocket transports and the pure
// pipeline in dataprocessing and exporter.
//
// # Sessions
//
// DashboardService keeps one immutable domain.DashboardState per session.
// Mutations (upload, filter change, page navigation) are serialized per
// session and replace the state wholesale; every read derives its output
// from the current state, so derived values are never stale.
//
//	svc := services.NewDashboardService(cfg.Dashboard, logger,
//	    services.WithMetrics(metrics),
//	    services.WithPublisher(hub),
//	)
//	info, _ := svc.CreateSession(ctx)
//	report, err := svc.Ingest(ctx, info.ID, services.Upload{Filename: "telco.csv", Body: f})
//	snap, err := svc.SetFilters(ctx, info.ID, domain.FilterState{Contract: "Month-to-month"})
//
// Filtered views are memoized in a ViewCache keyed by dataset ID and filter
// state. Idle sessions are closed by Sweep.
//
// # Health
//
// HealthService backs the liveness, readiness and version endpoints.
package services
