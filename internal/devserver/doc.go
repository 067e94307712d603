// Package devserver is a small event server speaking the same websocket
// protocol the dashboard consumes.
//
// Clients open /index?subscribe=true&query=... and receive every matching
// event as a JSON text message. Events enter through POST /events or from
// the optional host telemetry emitter, are kept in an in-memory index of
// the latest event per host and service, and expire by TTL.
//
// It exists to exercise the dashboard locally and in tests.
package devserver
