// Package server wires the playground together: configuration, logging,
// metrics, the runner gate, the snippet registry, and the HTTP/WebSocket
// routes.
package server
