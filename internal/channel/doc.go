// Package channel implements a resilient realtime messaging channel over a
// single WebSocket connection.
//
// The Service:
//   - Owns the transport lifecycle and the connection state machine
//   - Reconnects on failure with exponential backoff, jitter, and a
//     circuit breaker after repeated failures
//   - Monitors liveness with a heartbeat and forces a reconnect on timeout
//   - Routes inbound messages to pattern-based subscriptions
//   - Queues outbound messages while disconnected and flushes them in order
//   - Deduplicates redelivered notifications by stable identifier
package channel
