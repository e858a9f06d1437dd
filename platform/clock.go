// Package platform collects the small seams the core depends on but does not
// implement itself: a monotonic clock and a source of randomness (§6).
// Every other package takes these as injected values rather
// than calling global functions, so tests can supply deterministic fakes.
package platform

import "time"

// Clock is the monotonic time seam. Micros and Millis must be monotonically
// non-decreasing for a single process lifetime but carry no epoch guarantee;
// callers that compare two readings must go through DeltaAssumeWrap rather
// than plain subtraction.
type Clock interface {
	Micros() uint32
	Millis() uint32
}

// SystemClock is the default Clock, backed by time.Now/time.Since against a
// fixed reference instant taken when the SystemClock is constructed.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock referenced to the current instant.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// DeltaAssumeWrap returns the forward distance from `earlier` to `later` on a
// wrapping unsigned counter, assuming `later` is conceptually "after"
// `earlier` even if the counter has wrapped around zero once in between.
func DeltaAssumeWrap(later, earlier uint32) uint32 {
	return later - earlier
}
