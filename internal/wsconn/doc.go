// Package wsconn implements subscription.Connector over websockets.
//
// Each Conn owns exactly one *websocket.Conn. The read side runs on a
// delivery goroutine that pushes messages into a mutex-guarded queue and
// calls the wakeup callback; the polling side drains that queue without
// blocking. Closing a Conn releases the socket (both directions at once),
// cancels an in-flight handshake and silences the wakeup callback.
package wsconn
