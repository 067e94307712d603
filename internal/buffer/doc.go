// Package buffer provides the bounded, oldest-first-evicting buffer that
// holds the recent history of one widget.
package buffer
