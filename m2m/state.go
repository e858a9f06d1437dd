package m2m

import "github.com/xtaci/c3p/fsm"

// State is one of M2MLink's session states, per §4.9.
type State int

const (
	StateUninit State = iota
	StatePendingSetup
	StateSyncTentative
	StateSyncCasting
	StateSyncReceived
	StateReady
	StateDisconnected
	StateHungup
	StateCorruptedTransport
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "UNINIT"
	case StatePendingSetup:
		return "PENDING_SETUP"
	case StateSyncTentative:
		return "SYNC_TENTATIVE"
	case StateSyncCasting:
		return "SYNC_CASTING"
	case StateSyncReceived:
		return "SYNC_RECEIVED"
	case StateReady:
		return "READY"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateHungup:
		return "HUNGUP"
	case StateCorruptedTransport:
		return "CORRUPTED_TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

var stateDefs = fsm.EnumDefList[State]{
	{Value: StateUninit, Label: "UNINIT"},
	{Value: StatePendingSetup, Label: "PENDING_SETUP"},
	{Value: StateSyncTentative, Label: "SYNC_TENTATIVE"},
	{Value: StateSyncCasting, Label: "SYNC_CASTING"},
	{Value: StateSyncReceived, Label: "SYNC_RECEIVED"},
	{Value: StateReady, Label: "READY"},
	{Value: StateDisconnected, Label: "DISCONNECTED"},
	{Value: StateHungup, Label: "HUNGUP"},
	{Value: StateCorruptedTransport, Label: "CORRUPTED_TRANSPORT"},
}

// linkHooks adapts Link's state-entry side effects onto fsm.Hooks: every
// transition a Link requests is already legal by construction (the Link
// decides when to call SetRoute, not an external caller), so CanExit never
// vetoes; OnEnter performs the state's entry action and always succeeds.
type linkHooks struct {
	l *Link
}

func (h linkHooks) CanExit(State) bool { return true }

func (h linkHooks) OnEnter(next State) bool {
	h.l.onEnterState(next)
	return true
}
