// Package system provides a real clock implementation.
package system

import "time"

// Clock implements pipeline.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time. Archive day files are keyed by the
// local date, matching the layout of archives produced by earlier versions.
func (Clock) Now() time.Time {
	return time.Now()
}
