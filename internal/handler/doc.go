// Package handler implements the HTTP handlers served in watch mode.
//
// # Handlers
//
// SnapshotHandler serves the topology snapshots kept in the SQLite store:
//
//	GET /api/snapshots[?subnet=]                   snapshot summaries, newest first
//	GET /api/snapshots/{id}                        full topology document
//	GET /api/snapshots/{id}/links/{link}/paths     host pairs routed over a link
//	GET /api/subnets/{subnet}/latest               newest snapshot of a subnet
//
// Server wires these together with /metrics, /healthz and the /events
// Server-Sent Events stream.
//
// # Response Format
//
// Success responses return JSON with status 200.
// Error responses return JSON with {error, details} structure.
package handler
