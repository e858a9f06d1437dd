package m2m

import "github.com/xtaci/c3p/typed"

// handleFrame dispatches one fully-parsed, checksum-valid frame.
func (l *Link) handleFrame(h frameHeader, payload []byte) {
	if h.code == CodeSync {
		l.handleSync()
		return
	}

	// Any non-SYNC traffic received before two consecutive SYNCs breaks
	// the "consecutive" requirement; restart the count.
	if l.syncRXCount < 2 && (l.State() == StateSyncTentative || l.State() == StateSyncCasting) {
		l.syncRXCount = 0
	}

	switch h.code {
	case CodeConnect:
		l.handleConnect()
	case CodeKeepalive:
		l.keepaliveGrace.Reset(0)
	case CodeDisconnect:
		l.transitionTo(StateDisconnected)
	case CodeLog:
		if l.OnLog != nil {
			l.OnLog(string(payload))
		}
	case CodeApplication:
		l.handleApplication(h, payload)
	}
}

func (l *Link) handleSync() {
	l.syncRXCount++
	if l.State() == StateSyncTentative {
		l.transitionTo(StateSyncCasting)
	}
	if l.syncRXCount >= 2 && l.State() != StateSyncReceived && l.State() != StateReady {
		l.transitionTo(StateSyncReceived)
		l.sendConnect()
	}
}

func (l *Link) sendConnect() {
	opts := typed.New()
	opts.Append(typed.NewUint32(uint32(l.opts.MTU)), "mtu")
	opts.Append(typed.NewUint32(l.opts.AckTimeoutMs), "ack_timeout_ms")
	opts.Append(typed.NewString("cbor"), "encoding")
	encoded, err := opts.MarshalCBOR()
	if err != nil {
		return
	}
	l.enqueue(encodeFrame(CodeConnect, false, false, 0, encoded))
}

func (l *Link) handleConnect() {
	if l.State() == StateSyncReceived {
		l.transitionTo(StateReady)
	}
}

func (l *Link) handleApplication(h frameHeader, payload []byte) {
	l.keepaliveGrace.Reset(0) // any traffic is evidence of a live peer

	kvp, err := typed.Unserialize(payload)
	if err != nil {
		l.transitionTo(StateCorruptedTransport)
		return
	}

	if h.isReply {
		if _, ok := l.inFlight[h.id]; !ok {
			l.Counters.UnmatchedReplies++
			return
		}
		delete(l.inFlight, h.id)
		if l.OnReply != nil {
			l.OnReply(h.id, kvp, false)
		}
		return
	}

	if l.OnApplication != nil {
		l.OnApplication(kvp, h.id, h.needsReply)
	}
}
