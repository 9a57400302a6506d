// Package timeouts defines shared timeout constants used across the relay.
// Centralizing these values prevents drift between boundaries and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StoreCall caps a single durable membership store operation so a slow disk
// degrades join/disconnect latency without wedging the connection loop.
const StoreCall = 3 * time.Second
