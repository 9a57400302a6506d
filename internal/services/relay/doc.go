// Package relay implements the real-time group-messaging relay.
//
// It keeps connection registry state, room fan-out, and durable membership
// reconciliation isolated from transport framing so the websocket layer stays
// a thin adapter around session events.
package relay
