// Package fsm implements StateMachineT (§3, §4.5): a generic, enum-keyed
// finite state machine with a bounded route queue, a lockout window between
// transitions, and two client-supplied hooks (CanExit, OnEnter). The template
// itself only ever reports aggregate outcomes; all transition policy lives in
// the hooks, matching the reference implementation's split between the FSM
// template and its owning class.
package fsm

import (
	"fmt"
	"io"

	"github.com/xtaci/c3p/platform"
	"github.com/xtaci/c3p/timeout"
)

// EnumDef describes one legal state: its value, a human label, and an
// opaque flags word for caller-defined per-state attributes.
type EnumDef[S comparable] struct {
	Value S
	Label string
	Flags uint32
}

// EnumDefList is the const table describing every legal value of S.
type EnumDefList[S comparable] []EnumDef[S]

func (l EnumDefList[S]) find(v S) (EnumDef[S], bool) {
	for _, d := range l {
		if d.Value == v {
			return d, true
		}
	}
	return EnumDef[S]{}, false
}

func (l EnumDefList[S]) label(v S) string {
	if d, ok := l.find(v); ok {
		return d.Label
	}
	return fmt.Sprintf("%v", v)
}

// Hooks are the two client-supplied transition gates. CanExit reports
// whether the machine may leave `current`; OnEnter attempts to move into
// `next` and reports whether it succeeded.
type Hooks[S comparable] interface {
	CanExit(current S) bool
	OnEnter(next S) bool
}

// Machine is a StateMachineT instance over enum kind S.
type Machine[S comparable] struct {
	defs       EnumDefList[S]
	hooks      Hooks[S]
	current    S
	prior      S
	plan       []S
	maxPlan    int
	slowdownMs uint32
	lockout    *timeout.PeriodicTimeout
}

// New constructs a Machine starting in `initial`, validated against defs.
// maxPlanLen bounds the route FIFO; slowdownMs is the minimum inter-
// transition delay re-armed after every successful transition.
func New[S comparable](clock platform.Clock, defs EnumDefList[S], hooks Hooks[S], initial S, maxPlanLen int, slowdownMs uint32) (*Machine[S], error) {
	if _, ok := defs.find(initial); !ok {
		return nil, fmt.Errorf("fsm: initial state %v not in EnumDefList", initial)
	}
	return &Machine[S]{
		defs:       defs,
		hooks:      hooks,
		current:    initial,
		prior:      initial,
		maxPlan:    maxPlanLen,
		slowdownMs: slowdownMs,
		lockout:    timeout.New(clock, 0),
	}, nil
}

// CurrentState returns the current state.
func (m *Machine[S]) CurrentState() S { return m.current }

// PriorState returns the state occupied before the most recent transition.
func (m *Machine[S]) PriorState() S { return m.prior }

// IsStable reports whether the route plan is empty.
func (m *Machine[S]) IsStable() bool { return len(m.plan) == 0 }

// IsWaiting reports whether the post-transition lockout window has not yet
// expired.
func (m *Machine[S]) IsWaiting() bool { return !m.lockout.Expired() }

func (m *Machine[S]) validateAll(states []S) error {
	for _, s := range states {
		if _, ok := m.defs.find(s); !ok {
			return fmt.Errorf("fsm: state %v not in EnumDefList", s)
		}
	}
	return nil
}

// SetRoute replaces the plan with states, rejecting (leaving the plan
// unchanged) if any state is unknown to the EnumDefList or the route would
// exceed the FIFO's bound.
func (m *Machine[S]) SetRoute(states ...S) error {
	if err := m.validateAll(states); err != nil {
		return err
	}
	if len(states) > m.maxPlan {
		return fmt.Errorf("fsm: route length %d exceeds bound %d", len(states), m.maxPlan)
	}
	m.plan = append([]S(nil), states...)
	return nil
}

// AppendRoute enqueues states behind the current plan.
func (m *Machine[S]) AppendRoute(states ...S) error {
	if err := m.validateAll(states); err != nil {
		return err
	}
	if len(m.plan)+len(states) > m.maxPlan {
		return fmt.Errorf("fsm: appended route would exceed bound %d", m.maxPlan)
	}
	m.plan = append(m.plan, states...)
	return nil
}

// PrependState puts s next, shifting the rest of the plan back.
func (m *Machine[S]) PrependState(s S) error {
	if _, ok := m.defs.find(s); !ok {
		return fmt.Errorf("fsm: state %v not in EnumDefList", s)
	}
	if len(m.plan)+1 > m.maxPlan {
		return fmt.Errorf("fsm: prepend would exceed bound %d", m.maxPlan)
	}
	m.plan = append([]S{s}, m.plan...)
	return nil
}

// Poll attempts one transition if the plan is non-empty and no lockout is
// active: it calls CanExit(current), and if true, attempts
// OnEnter(plan[0]). On success the transition is recorded (prior/current
// updated, plan head consumed) and the lockout is re-armed. On failure
// (either hook returning false) state is left unchanged and the plan is not
// advanced — a plan entry that fails forever is a caller bug, never silently
// dropped. Poll returns whether a transition occurred.
func (m *Machine[S]) Poll() bool {
	if len(m.plan) == 0 || m.IsWaiting() {
		return false
	}
	if !m.hooks.CanExit(m.current) {
		return false
	}
	next := m.plan[0]
	if !m.hooks.OnEnter(next) {
		return false
	}
	m.prior = m.current
	m.current = next
	m.plan = m.plan[1:]
	m.lockout.Reset(m.slowdownMs)
	return true
}

// PrintFSM writes a human-readable report of the machine's state to out.
func (m *Machine[S]) PrintFSM(out io.Writer) {
	fmt.Fprintf(out, "-- FSM --\n")
	fmt.Fprintf(out, "  Current:  %s\n", m.defs.label(m.current))
	fmt.Fprintf(out, "  Prior:    %s\n", m.defs.label(m.prior))
	fmt.Fprintf(out, "  Stable:   %v\n", m.IsStable())
	fmt.Fprintf(out, "  Waiting:  %v\n", m.IsWaiting())
	fmt.Fprintf(out, "  Plan:     ")
	for i, s := range m.plan {
		if i > 0 {
			fmt.Fprintf(out, " -> ")
		}
		fmt.Fprintf(out, "%s", m.defs.label(s))
	}
	fmt.Fprintf(out, "\n")
}
