// Package ws provides WebSocket handling for live playground sessions.
//
// Each connection owns one host controller: the client edits and runs code,
// and output events stream back as they are collected, without polling.
//
// Message Types (Client → Server):
//   - set_source: Replace the session's source text
//   - run: Execute the current source in a fresh runner
//   - reset: Restore the built-in default sample
//   - clear: Clear the output log and error banner
//   - snippet: Load a built-in snippet into the source
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection greeting with the session ID
//   - snapshot: Full source/output/banner state
//   - run_started: A run began; the output panel should clear
//   - output: One output event (log, error, or alert)
//   - banner: Error banner set or cleared
//   - run_complete: The run's runner was torn down
//   - pong: Keep-alive reply
//   - error: Malformed or unknown client message
//
// Example Usage:
//
//	handler := ws.NewHandler(cfg, gate, snippets, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
