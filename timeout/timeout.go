// Package timeout implements the monotonic-clock deadline and profiling
// helpers (§3 "PeriodicTimeout", §4 design notes) used throughout the module
// in place of blocking waits: every suspension point in c3p is a poll against
// one of these.
package timeout

import "github.com/xtaci/c3p/platform"

// PeriodicTimeout is a period, a deadline mark, and an enabled flag. A
// disabled timer or one with a zero period is always considered expired.
type PeriodicTimeout struct {
	clock    platform.Clock
	period   uint32 // milliseconds
	deadline uint32
	enabled  bool
}

// New creates a PeriodicTimeout against clock with the given period in
// milliseconds. The timer starts disabled; call Reset to arm it.
func New(clock platform.Clock, periodMs uint32) *PeriodicTimeout {
	return &PeriodicTimeout{clock: clock, period: periodMs}
}

// Enable arms or disarms the timer without touching the deadline.
func (t *PeriodicTimeout) Enable(on bool) { t.enabled = on }

// Enabled reports the armed state.
func (t *PeriodicTimeout) Enabled() bool { return t.enabled }

// SetPeriod changes the period in milliseconds. It does not reset the
// deadline; call Reset to do both atomically.
func (t *PeriodicTimeout) SetPeriod(periodMs uint32) { t.period = periodMs }

// Period returns the configured period in milliseconds.
func (t *PeriodicTimeout) Period() uint32 { return t.period }

// Reset arms the timer with the given period (0 keeps the current period)
// and sets the deadline to now+period. If the resulting period is 0 the
// timer stays perpetually expired, matching PeriodicTimeout's "period zero"
// policy.
func (t *PeriodicTimeout) Reset(periodMs uint32) {
	if periodMs != 0 {
		t.period = periodMs
	}
	t.enabled = true
	t.deadline = t.clock.Millis() + t.period
}

// Expired reports whether the deadline has passed, or whether the timer is
// disabled/zero-period (both count as expired per §3).
func (t *PeriodicTimeout) Expired() bool {
	if !t.enabled || t.period == 0 {
		return true
	}
	return platform.DeltaAssumeWrap(t.clock.Millis(), t.deadline) < (1 << 31)
}

// Remaining returns the milliseconds left before expiry, or 0 if already
// expired/disabled.
func (t *PeriodicTimeout) Remaining() uint32 {
	if t.Expired() {
		return 0
	}
	return platform.DeltaAssumeWrap(t.deadline, t.clock.Millis())
}

// Stopwatch accumulates wall-clock profiling samples: count, total, min, max.
// Used by Scheduler to profile per-schedule execution time (§3 "Scheduler
// item").
type Stopwatch struct {
	clock      platform.Clock
	running    bool
	startedAt  uint32
	count      uint32
	totalMicro uint64
	minMicro   uint32
	maxMicro   uint32
}

// NewStopwatch creates a Stopwatch against clock.
func NewStopwatch(clock platform.Clock) *Stopwatch {
	return &Stopwatch{clock: clock}
}

// Start marks the beginning of a profiled interval.
func (s *Stopwatch) Start() {
	s.running = true
	s.startedAt = s.clock.Micros()
}

// Mark closes the interval opened by Start and folds it into the running
// statistics. It is a no-op if Start was never called.
func (s *Stopwatch) Mark() {
	if !s.running {
		return
	}
	s.running = false
	elapsed := platform.DeltaAssumeWrap(s.clock.Micros(), s.startedAt)
	s.count++
	s.totalMicro += uint64(elapsed)
	if s.count == 1 || elapsed < s.minMicro {
		s.minMicro = elapsed
	}
	if elapsed > s.maxMicro {
		s.maxMicro = elapsed
	}
}

// Count returns the number of completed intervals.
func (s *Stopwatch) Count() uint32 { return s.count }

// TotalMicros returns the sum of all completed interval durations.
func (s *Stopwatch) TotalMicros() uint64 { return s.totalMicro }

// MeanMicros returns the arithmetic mean interval duration, 0 if none yet.
func (s *Stopwatch) MeanMicros() uint64 {
	if s.count == 0 {
		return 0
	}
	return s.totalMicro / uint64(s.count)
}

// MinMicros returns the shortest completed interval.
func (s *Stopwatch) MinMicros() uint32 { return s.minMicro }

// MaxMicros returns the longest completed interval.
func (s *Stopwatch) MaxMicros() uint32 { return s.maxMicro }

// Reset clears all accumulated statistics.
func (s *Stopwatch) Reset() {
	s.running = false
	s.count = 0
	s.totalMicro = 0
	s.minMicro = 0
	s.maxMicro = 0
}
