package m2m

import (
	"fmt"

	"github.com/xtaci/c3p/buffer"
	"github.com/xtaci/c3p/fsm"
	"github.com/xtaci/c3p/pipeline"
	"github.com/xtaci/c3p/platform"
	"github.com/xtaci/c3p/timeout"
	"github.com/xtaci/c3p/typed"
)

// Options configures a Link's handshake and liveness timing.
type Options struct {
	MTU                 int
	AckTimeoutMs        uint32
	SyncIntervalMs      uint32
	KeepaliveIntervalMs uint32
	KeepaliveGraceMs    uint32
}

// DefaultOptions returns reasonable defaults for a cooperative, polled link.
func DefaultOptions() Options {
	return Options{
		MTU:                 1200,
		AckTimeoutMs:        3000,
		SyncIntervalMs:      250,
		KeepaliveIntervalMs: 5000,
		KeepaliveGraceMs:    12000,
	}
}

// Counters track the recoverable-error and lifecycle events §4.9 and §7
// require to be observable rather than silent.
type Counters struct {
	GarbageBytes     int
	UnmatchedReplies int
	TimedOutMessages int
}

type inFlightEntry struct {
	payload  *typed.KeyValuePair
	deadline *timeout.PeriodicTimeout
}

// ApplicationHandler receives a non-reply APPLICATION frame's payload.
type ApplicationHandler func(payload *typed.KeyValuePair, id uint16, needsReply bool)

// ReplyHandler receives either a matched reply (timedOut=false) or a
// timeout notification for an in-flight message (timedOut=true, payload
// nil).
type ReplyHandler func(id uint16, payload *typed.KeyValuePair, timedOut bool)

// LogHandler receives a LOG frame's text payload.
type LogHandler func(text string)

// Link is one endpoint of an M2MLink session. It implements
// pipeline.Accepter for inbound wire bytes and drives an outbound
// pipeline.Accepter (the transport sink) for bytes to the wire.
type Link struct {
	downstream pipeline.Accepter
	clock      platform.Clock
	opts       Options

	machine *fsm.Machine[State]

	inbound       []byte
	outboundQueue [][]byte

	inFlight    map[uint16]*inFlightEntry
	nextID      uint16
	syncRXCount int

	syncTimer      *timeout.PeriodicTimeout
	keepaliveTimer *timeout.PeriodicTimeout
	keepaliveGrace *timeout.PeriodicTimeout

	OnApplication ApplicationHandler
	OnReply       ReplyHandler
	OnLog         LogHandler

	Counters Counters
}

const inboundCapacity = 64 * 1024

// New returns a Link in state UNINIT, driving outbound bytes to
// downstream. Call Start to begin the handshake, then Poll repeatedly
// (the link makes progress only on explicit calls, per §5's cooperative
// concurrency model).
func New(downstream pipeline.Accepter, clock platform.Clock, opts Options) *Link {
	l := &Link{
		downstream: downstream,
		clock:      clock,
		opts:       opts,
		inFlight:   make(map[uint16]*inFlightEntry),
		nextID:     1,
	}
	m, err := fsm.New(clock, stateDefs, linkHooks{l}, StateUninit, 1, 0)
	if err != nil {
		panic(err) // StateUninit is always in stateDefs; this cannot happen
	}
	l.machine = m
	l.syncTimer = timeout.New(clock, opts.SyncIntervalMs)
	l.keepaliveTimer = timeout.New(clock, opts.KeepaliveIntervalMs)
	l.keepaliveGrace = timeout.New(clock, opts.KeepaliveGraceMs)
	return l
}

// State returns the current session state.
func (l *Link) State() State { return l.machine.CurrentState() }

func (l *Link) transitionTo(next State) {
	if err := l.machine.SetRoute(next); err != nil {
		panic(fmt.Sprintf("m2m: %v", err)) // every target State is always in stateDefs
	}
	l.machine.Poll()
}

// onEnterState performs the side effects of entering a state. It must
// never itself request another transition (fsm.Machine.Poll calls this
// synchronously; a nested SetRoute+Poll would corrupt the outer call's
// in-flight plan mutation). Any state that needs a follow-on transition
// schedules it for the next servicePoll tick instead.
func (l *Link) onEnterState(next State) {
	switch next {
	case StatePendingSetup:
		l.syncRXCount = 0
		l.inFlight = make(map[uint16]*inFlightEntry)
		l.outboundQueue = nil
		l.inbound = nil
		l.enqueue(encodeFrame(CodeSync, false, false, 0, nil))
		l.syncTimer.Reset(l.opts.SyncIntervalMs)
	case StateSyncTentative:
		// Anything buffered predates the re-sync; SYNC frames are
		// retransmitted, so dropping it loses nothing that matters.
		l.inbound = nil
		l.syncTimer.Reset(l.opts.SyncIntervalMs)
	case StateReady:
		l.keepaliveTimer.Reset(l.opts.KeepaliveIntervalMs)
		l.keepaliveGrace.Reset(l.opts.KeepaliveGraceMs)
	case StateDisconnected:
		l.outboundQueue = nil
	case StateCorruptedTransport:
		l.reapExpiredInFlight()
	}
}

// Start begins the handshake (UNINIT -> PENDING_SETUP).
func (l *Link) Start() { l.transitionTo(StatePendingSetup) }

// Hangup sends DISCONNECT and moves to HUNGUP; servicePoll advances to
// DISCONNECTED once the outbound queue has drained.
func (l *Link) Hangup() {
	l.enqueue(encodeFrame(CodeDisconnect, false, false, 0, nil))
	l.transitionTo(StateHungup)
}

// Reset returns the link to PENDING_SETUP, discarding in-flight state and
// restarting the sync handshake, per §4.9.
func (l *Link) Reset() { l.transitionTo(StatePendingSetup) }

func (l *Link) enqueue(frame []byte) {
	l.outboundQueue = append(l.outboundQueue, frame)
}

func (l *Link) allocID() uint16 {
	id := l.nextID
	l.nextID++
	if l.nextID == 0 {
		l.nextID = 1
	}
	return id
}

// Send enqueues an APPLICATION message. If expectReply is set, a fresh
// nonzero ID is assigned and the message is tracked in the in-flight
// table with the configured ack timeout until a matching reply arrives or
// it expires.
func (l *Link) Send(payload *typed.KeyValuePair, expectReply bool) (uint16, error) {
	encoded, err := payload.MarshalCBOR()
	if err != nil {
		return 0, fmt.Errorf("m2m: encode payload: %w", err)
	}
	var id uint16
	if expectReply {
		id = l.allocID()
	}
	l.enqueue(encodeFrame(CodeApplication, expectReply, false, id, encoded))
	if expectReply {
		deadline := timeout.New(l.clock, l.opts.AckTimeoutMs)
		deadline.Reset(0)
		l.inFlight[id] = &inFlightEntry{payload: payload, deadline: deadline}
	}
	return id, nil
}

// Reply sends payload back as the reply to message id.
func (l *Link) Reply(id uint16, payload *typed.KeyValuePair) error {
	encoded, err := payload.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("m2m: encode reply: %w", err)
	}
	l.enqueue(encodeFrame(CodeApplication, false, true, id, encoded))
	return nil
}

// SendLog sends a LOG frame carrying text.
func (l *Link) SendLog(text string) {
	l.enqueue(encodeFrame(CodeLog, false, false, 0, []byte(text)))
}

func (l *Link) reapExpiredInFlight() {
	for id, e := range l.inFlight {
		if e.deadline.Expired() {
			delete(l.inFlight, id)
			l.Counters.TimedOutMessages++
			if l.OnReply != nil {
				l.OnReply(id, nil, true)
			}
		}
	}
}

func (l *Link) drainOutbound() error {
	for len(l.outboundQueue) > 0 {
		frame := l.outboundQueue[0]
		if l.downstream.BufferAvailable() < len(frame) {
			return nil
		}
		res, err := l.downstream.PushBuffer(buffer.FromBytes(frame))
		if err != nil {
			return err
		}
		if res != pipeline.Full {
			return nil
		}
		l.outboundQueue = l.outboundQueue[1:]
	}
	return nil
}

// servicePoll performs at most one state transition, mirroring
// AsyncSequencer's one-tier-per-poll guarantee (§5).
func (l *Link) servicePoll() {
	switch l.State() {
	case StatePendingSetup:
		l.transitionTo(StateSyncTentative)
	case StateSyncTentative, StateSyncCasting:
		if l.syncTimer.Expired() {
			l.enqueue(encodeFrame(CodeSync, false, false, 0, nil))
			l.syncTimer.Reset(0)
		}
	case StateReady:
		if l.keepaliveTimer.Expired() {
			l.enqueue(encodeFrame(CodeKeepalive, false, false, 0, nil))
			l.keepaliveTimer.Reset(0)
		}
		if l.keepaliveGrace.Expired() {
			l.syncRXCount = 0
			l.transitionTo(StateSyncTentative)
		}
	case StateHungup:
		if len(l.outboundQueue) == 0 {
			l.transitionTo(StateDisconnected)
		}
	case StateCorruptedTransport:
		l.transitionTo(StatePendingSetup)
	}
}

// Poll drains the outbound queue against the transport's advertised
// capacity, reaps timed-out in-flight messages, and services the session
// state machine. Call it on every tick of the host's event loop.
func (l *Link) Poll() error {
	l.reapExpiredInFlight()
	if err := l.drainOutbound(); err != nil {
		return err
	}
	l.servicePoll()
	return nil
}

// BufferAvailable implements pipeline.Accepter for inbound wire bytes.
func (l *Link) BufferAvailable() int {
	avail := inboundCapacity - len(l.inbound)
	if avail < 0 {
		return 0
	}
	return avail
}

// PushBuffer implements pipeline.Accepter: it accepts raw transport bytes
// and parses as many complete frames as are available.
func (l *Link) PushBuffer(c *buffer.Chain) (pipeline.ClaimResult, error) {
	n := c.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	avail := l.BufferAvailable()
	if avail == 0 {
		return pipeline.Rejected, nil
	}
	take := n
	if take > avail {
		take = avail
	}
	chunk := buffer.New()
	c.CopyToBuffer(chunk, take, 0)
	l.inbound = append(l.inbound, chunk.Bytes()...)
	c.Cull(take)

	l.parseInbound()

	if take == n {
		return pipeline.Full, nil
	}
	return pipeline.Partial, nil
}

// parseInbound locates and dispatches as many complete, checksum-valid
// frames as l.inbound currently holds. A leading byte that is not a known
// Code, or a checksum mismatch, discards one byte as garbage and resumes the
// search at the next offset, per §4.9's "bytes before a valid header are
// discarded as garbage".
func (l *Link) parseInbound() {
	for {
		if len(l.inbound) > 0 && Code(l.inbound[0]) > CodeApplication {
			l.Counters.GarbageBytes++
			l.inbound = l.inbound[1:]
			continue
		}
		hdrLen, ok := peekHeaderLen(l.inbound)
		if !ok || len(l.inbound) < hdrLen {
			return
		}
		if !checksumValid(l.inbound, hdrLen) {
			l.Counters.GarbageBytes++
			l.inbound = l.inbound[1:]
			continue
		}
		h := decodeHeader(l.inbound, hdrLen)
		if h.payloadLen > inboundCapacity-hdrLen {
			// A payload that can never fit the inbound buffer is a
			// garbage run that happened to checksum-validate.
			l.Counters.GarbageBytes++
			l.inbound = l.inbound[1:]
			continue
		}
		total := hdrLen + h.payloadLen
		if len(l.inbound) < total {
			return
		}
		payload := append([]byte(nil), l.inbound[hdrLen:total]...)
		l.inbound = l.inbound[total:]
		l.handleFrame(h, payload)
	}
}
