// Package subscription defines the contract between a subscription
// controller and the transport that carries a live event stream.
//
// This package defines the core abstractions:
//   - Message: one item delivered by a connection (open, text, binary, error, close)
//   - Subscription: a single live connection polled without blocking
//   - Connector: creates subscriptions for an endpoint
//
// A Subscription owns both directions of its connection; closing it
// releases the whole connection at once and silences its wakeup
// callback. The wakeup callback runs on a delivery goroutine and only
// signals that PollNext may have something to return:
//
//	sub, err := connector.Connect(endpoint, func() { notify() })
//	if err != nil {
//		return err // a *ConnectError
//	}
//	defer sub.Close()
//
//	for {
//		msg, ok := sub.PollNext()
//		if !ok {
//			break // nothing queued right now
//		}
//		handle(msg)
//	}
package subscription
