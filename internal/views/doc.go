// Package views renders controller snapshots as terminal widgets.
//
// Every view owns one controller. Rendering only reads the controller's
// snapshot, so the host decides when controllers tick.
package views
