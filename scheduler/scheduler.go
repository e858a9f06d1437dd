// Package scheduler implements C3PScheduler (§3, §4.4): a cooperative,
// microsecond-resolution polled scheduler. Two calls drive it —
// AdvanceScheduler from a timer tick, ServiceSchedules from a task loop — and
// nothing else causes a Schedule's Action to run. The due-time bookkeeping
// (an accumulated-time counter compared against a period, reset rather than
// decremented by multiples on fire) is modeled on the heap-ordered due-time
// tracking in xtaci/kcp-go's TimedSched
// (vendor/github.com/xtaci/kcp-go/v5/timedsched.go), adapted from that
// package's goroutine-per-worker design to this module's single-threaded,
// externally-ticked polling model (§5: no component spawns threads).
package scheduler

import (
	"github.com/xtaci/c3p/platform"
	"github.com/xtaci/c3p/timeout"
)

// Action is the callable a Schedule executes when it becomes due.
type Action func()

// Schedule is a named, periodic or one-shot action. Recurrences == -1 means
// infinite; a positive value decrements on each fire and disables the
// schedule at zero. AutoClear removes a disabled schedule from the scheduler
// entirely at the end of the ServiceSchedules pass that finds it disabled.
type Schedule struct {
	Name        string
	PeriodUs    uint64
	Recurrences int64
	AutoClear   bool
	Enabled     bool
	Action      Action

	accumulatedUs uint64
	slipUs        int64
	stopwatch     *timeout.Stopwatch
}

// SlipMicros returns the lag between this schedule's ideal fire time and the
// service call that actually fired it, as of its most recent firing.
func (s *Schedule) SlipMicros() int64 { return s.slipUs }

// Stopwatch exposes the profiling stopwatch wrapped around this schedule's
// action executions.
func (s *Schedule) Stopwatch() *timeout.Stopwatch { return s.stopwatch }

// Scheduler holds an active queue and a new-additions queue, and a
// microsecond phase counter advanced by AdvanceScheduler.
type Scheduler struct {
	clock        platform.Clock
	phaseUs      uint64
	pendingUs    uint64
	active       []*Schedule
	additions    []*Schedule
	globalSlipUs int64
}

// New returns an empty Scheduler whose per-schedule stopwatches profile
// against clock.
func New(clock platform.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Add enqueues a new schedule. It is not visible to ServiceSchedules until
// that function's next call, matching the active/new-additions split in the
// data model (§3).
func (s *Scheduler) Add(sch *Schedule) {
	if sch.stopwatch == nil {
		sch.stopwatch = timeout.NewStopwatch(s.clock)
	}
	s.additions = append(s.additions, sch)
}

// Remove drops a schedule (from either queue) by name.
func (s *Scheduler) Remove(name string) {
	s.active = removeNamed(s.active, name)
	s.additions = removeNamed(s.additions, name)
}

func removeNamed(list []*Schedule, name string) []*Schedule {
	out := list[:0]
	for _, sch := range list {
		if sch.Name != name {
			out = append(out, sch)
		}
	}
	return out
}

// AdvanceScheduler records deltaUs microseconds of elapsed time since the
// last call. It never fires an action by itself.
func (s *Scheduler) AdvanceScheduler(deltaUs uint32) {
	s.phaseUs += uint64(deltaUs)
	s.pendingUs += uint64(deltaUs)
}

// PhaseMicros returns the cumulative microseconds ever advanced.
func (s *Scheduler) PhaseMicros() uint64 { return s.phaseUs }

// GlobalSlipMicros returns the running total of fire-time lag across every
// schedule that has ever fired.
func (s *Scheduler) GlobalSlipMicros() int64 { return s.globalSlipUs }

// ServiceSchedules folds pending elapsed time into every schedule and fires
// each one that has become due, exactly once regardless of how many whole
// periods have elapsed since its last firing (rate-limited catch-up, not
// backlog replay). New additions are merged in add-order before schedules
// are evaluated, and schedules that exhausted their recurrences and are
// AutoClear are dropped after this pass.
func (s *Scheduler) ServiceSchedules() {
	if len(s.additions) > 0 {
		s.active = append(s.active, s.additions...)
		s.additions = nil
	}

	elapsed := s.pendingUs
	s.pendingUs = 0

	for _, sch := range s.active {
		if !sch.Enabled || sch.PeriodUs == 0 {
			continue
		}
		sch.accumulatedUs += elapsed
		if sch.accumulatedUs < sch.PeriodUs {
			continue
		}

		slip := int64(sch.accumulatedUs - sch.PeriodUs)
		sch.slipUs = slip
		s.globalSlipUs += slip
		sch.accumulatedUs = 0 // drop any backlog; no multi-fire replay

		sch.stopwatch.Start()
		if sch.Action != nil {
			sch.Action()
		}
		sch.stopwatch.Mark()

		if sch.Recurrences > 0 {
			sch.Recurrences--
			if sch.Recurrences == 0 {
				sch.Enabled = false
			}
		}
	}

	filtered := s.active[:0]
	for _, sch := range s.active {
		if sch.AutoClear && !sch.Enabled {
			continue
		}
		filtered = append(filtered, sch)
	}
	s.active = filtered
}

// Schedules returns the currently active schedules in add-order, for
// inspection/testing.
func (s *Scheduler) Schedules() []*Schedule {
	return s.active
}
