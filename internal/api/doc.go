// Package api implements the HTTP server and WebSocket hub for growctl.
//
// This package provides:
//   - WebSocket hub that carries the JSON control protocol to browsers
//   - Configuration backup and restore endpoints
//   - Health, system info and Prometheus metrics endpoints
//   - The dashboard UI with client-side routing fallback
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server never touches controller state directly. Inbound WebSocket
// frames are handed to a single forwarder goroutine that pushes them into
// the ingress ring drained by the controller loop. Outbound frames arrive
// through the Hub's Broadcast and SendTo methods. HTTP handlers that need
// a consistent view (backup, restore, system info) call the Core, which
// runs the work on the controller loop and waits for the result.
//
// There is no authentication: the controller is meant for a trusted LAN.
package api
