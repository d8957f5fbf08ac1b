// Package http implements the HTTP handlers of the churn dashboard API.
// Handlers stay thin: they decode and validate requests, call the dashboard
// service and render JSON or file downloads.
//
// # Routes
//
//	POST   /api/sessions                         create a session
//	GET    /api/sessions/{id}                    full snapshot
//	POST   /api/sessions/{id}/dataset            upload CSV or XLSX
//	PUT    /api/sessions/{id}/filters            replace filters
//	GET    /api/sessions/{id}/churn/{dimension}  grouped churn rates
//	POST   /api/sessions/{id}/page               page navigation
//	GET    /api/sessions/{id}/export             filtered CSV download
//
// # Error Handling
//
// Every failure goes through errors.ErrorHandler and is answered with an
// RFC 7807 problem document:
//
//	{
//	    "type": "/errors/session/not-found",
//	    "title": "Session Not Found",
//	    "status": 404,
//	    "detail": "session not found",
//	    "instance": "/api/sessions/0b1c.../summary"
//	}
//
// # Testing
//
// Handler tests drive a chi router through httptest, either against a
// testify mock of DashboardServiceInterface or against the real service.
package http
