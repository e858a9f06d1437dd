package scheduler

import (
	"testing"

	"github.com/xtaci/c3p/platform"
)

func TestFiresOncePerServiceRegardlessOfMultiples(t *testing.T) {
	sch := New(platform.NewSystemClock())
	fired := 0
	sch.Add(&Schedule{
		Name:        "tick",
		PeriodUs:    1000,
		Recurrences: -1,
		Enabled:     true,
		Action:      func() { fired++ },
	})

	sch.AdvanceScheduler(5000) // 5 whole periods elapsed
	sch.ServiceSchedules()

	if fired != 1 {
		t.Fatalf("fired = %d, want 1 (rate-limited catch-up, not backlog replay)", fired)
	}
}

func TestNoFireBetweenAdvanceCalls(t *testing.T) {
	sch := New(platform.NewSystemClock())
	fired := 0
	sch.Add(&Schedule{Name: "t", PeriodUs: 100, Recurrences: -1, Enabled: true, Action: func() { fired++ }})
	sch.ServiceSchedules() // merge addition

	sch.AdvanceScheduler(50)
	sch.AdvanceScheduler(60)
	if fired != 0 {
		t.Fatalf("fired before ServiceSchedules was called")
	}
	sch.ServiceSchedules()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestFiniteRecurrenceDisablesAndAutoClears(t *testing.T) {
	sch := New(platform.NewSystemClock())
	fired := 0
	sch.Add(&Schedule{Name: "once", PeriodUs: 10, Recurrences: 1, AutoClear: true, Enabled: true, Action: func() { fired++ }})
	sch.ServiceSchedules()

	sch.AdvanceScheduler(10)
	sch.ServiceSchedules()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if len(sch.Schedules()) != 0 {
		t.Fatalf("expected auto-cleared schedule to be removed")
	}

	sch.AdvanceScheduler(100)
	sch.ServiceSchedules()
	if fired != 1 {
		t.Fatalf("disabled schedule fired again: %d", fired)
	}
}

func TestAddOrderDeterminesFireOrder(t *testing.T) {
	sch := New(platform.NewSystemClock())
	var order []string
	sch.Add(&Schedule{Name: "a", PeriodUs: 10, Recurrences: -1, Enabled: true, Action: func() { order = append(order, "a") }})
	sch.Add(&Schedule{Name: "b", PeriodUs: 10, Recurrences: -1, Enabled: true, Action: func() { order = append(order, "b") }})
	sch.ServiceSchedules()

	sch.AdvanceScheduler(10)
	sch.ServiceSchedules()

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("fire order = %v, want [a b]", order)
	}
}

func TestDisabledScheduleNeverFires(t *testing.T) {
	sch := New(platform.NewSystemClock())
	fired := false
	sch.Add(&Schedule{Name: "off", PeriodUs: 10, Enabled: false, Action: func() { fired = true }})
	sch.ServiceSchedules()
	sch.AdvanceScheduler(1000)
	sch.ServiceSchedules()
	if fired {
		t.Fatalf("disabled schedule fired")
	}
}
