// Package api implements the HTTP REST API server for TaskDeck.
//
// This package provides:
//   - REST endpoints for account, session, and task management
//   - JWT bearer authentication with an admin-only management surface
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Responses
//
// Every response uses the same envelope:
//
//	{"success": true, "message": "...", "data": {...}}
//	{"success": false, "message": "...", "errors": [{"field": "...", "message": "..."}]}
//
// The errors array appears only on validation failures; data appears only on
// success.
//
// # Authorization
//
// Requests carry an access token in the Authorization header. The middleware
// verifies the signature and expiry, then stores the claims in the request
// context for handlers. Regular users operate only on their own tasks — a
// request for another owner's task returns 404, not 403, so task IDs are not
// confirmable by probing. Admins see everything and additionally manage
// accounts, subject to self-protection rules (no self-demotion, no
// self-deletion).
package api
