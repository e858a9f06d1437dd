package timeout

import "testing"

type manualClock struct{ ms uint32 }

func (c *manualClock) Micros() uint32    { return c.ms * 1000 }
func (c *manualClock) Millis() uint32    { return c.ms }
func (c *manualClock) Advance(ms uint32) { c.ms += ms }

func TestUnarmedTimerIsExpired(t *testing.T) {
	clock := &manualClock{}
	to := New(clock, 100)
	if !to.Expired() {
		t.Fatalf("a never-armed timer should read as expired")
	}
	if to.Remaining() != 0 {
		t.Fatalf("Remaining on an unarmed timer = %d, want 0", to.Remaining())
	}
}

func TestResetArmsAndExpires(t *testing.T) {
	clock := &manualClock{}
	to := New(clock, 100)
	to.Reset(0)

	if to.Expired() {
		t.Fatalf("freshly-armed timer should not be expired")
	}
	if r := to.Remaining(); r != 100 {
		t.Fatalf("Remaining = %d, want 100", r)
	}

	clock.Advance(60)
	if r := to.Remaining(); r != 40 {
		t.Fatalf("Remaining = %d, want 40", r)
	}

	clock.Advance(40)
	if !to.Expired() {
		t.Fatalf("timer should expire exactly at its deadline")
	}
	if to.Remaining() != 0 {
		t.Fatalf("Remaining after expiry = %d, want 0", to.Remaining())
	}
}

func TestResetOverridesPeriod(t *testing.T) {
	clock := &manualClock{}
	to := New(clock, 100)
	to.Reset(25)
	if to.Period() != 25 {
		t.Fatalf("Period = %d, want 25", to.Period())
	}
	clock.Advance(25)
	if !to.Expired() {
		t.Fatalf("expected expiry at the overridden period")
	}
}

func TestZeroPeriodIsAlwaysExpired(t *testing.T) {
	clock := &manualClock{}
	to := New(clock, 0)
	to.Reset(0)
	if !to.Expired() {
		t.Fatalf("zero-period timer should always be expired")
	}
}

func TestDisableForcesExpired(t *testing.T) {
	clock := &manualClock{}
	to := New(clock, 100)
	to.Reset(0)
	to.Enable(false)
	if !to.Expired() {
		t.Fatalf("a disarmed timer should read as expired")
	}
}

func TestExpiryAcrossWrap(t *testing.T) {
	clock := &manualClock{ms: 0xFFFFFFF0}
	to := New(clock, 100)
	to.Reset(0) // deadline wraps past zero

	if to.Expired() {
		t.Fatalf("should not be expired right after arming near wrap")
	}
	clock.Advance(100)
	if !to.Expired() {
		t.Fatalf("should expire after the period even across the counter wrap")
	}
}

func TestStopwatchStatistics(t *testing.T) {
	clock := &manualClock{}
	sw := NewStopwatch(clock)

	sw.Start()
	clock.Advance(2) // 2000us
	sw.Mark()

	sw.Start()
	clock.Advance(5) // 5000us
	sw.Mark()

	if sw.Count() != 2 {
		t.Fatalf("Count = %d, want 2", sw.Count())
	}
	if sw.TotalMicros() != 7000 {
		t.Fatalf("TotalMicros = %d, want 7000", sw.TotalMicros())
	}
	if sw.MeanMicros() != 3500 {
		t.Fatalf("MeanMicros = %d, want 3500", sw.MeanMicros())
	}
	if sw.MinMicros() != 2000 || sw.MaxMicros() != 5000 {
		t.Fatalf("min/max = %d/%d, want 2000/5000", sw.MinMicros(), sw.MaxMicros())
	}
}

func TestStopwatchMarkWithoutStartIsNoop(t *testing.T) {
	clock := &manualClock{}
	sw := NewStopwatch(clock)
	sw.Mark()
	if sw.Count() != 0 {
		t.Fatalf("Mark without Start should record nothing")
	}
}
