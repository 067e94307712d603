// Package controller implements the per-widget subscription controller.
//
// A Controller is driven by its host once per frame through Tick. Each
// tick it derives the desired endpoint from the base address and the
// query text, reconnects when the base changed, when it has no
// subscription, or when a non-empty query was just committed, and then
// drains everything the subscription has queued into a bounded buffer.
//
// A Controller is used from a single goroutine; only the wakeup callback
// handed to the transport runs elsewhere.
package controller
