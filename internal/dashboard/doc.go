// Package dashboard is the interactive bubbletea host for streamdash.
//
// The model owns every workspace, widget, and controller. Controllers are
// ticked on each frame message: a periodic tick plus wakeups coalesced
// from the subscriptions. All controller access happens on the program's
// update goroutine.
package dashboard
