// Package m2m implements M2MLink (§4.9): a bidirectional, session-oriented
// messaging layer over any byte transport implementing the pipeline
// contract, with a sync/keepalive handshake, a reply/timeout-tracked
// message lifecycle, and checksum-validated framing that recovers from
// transport corruption without losing the session's negotiated state.
package m2m

import "fmt"

// Code identifies a frame's purpose, per §4.9's closed set.
type Code uint8

const (
	CodeSync Code = iota
	CodeConnect
	CodeDisconnect
	CodeKeepalive
	CodeLog
	CodeApplication
)

func (c Code) String() string {
	switch c {
	case CodeSync:
		return "SYNC"
	case CodeConnect:
		return "CONNECT"
	case CodeDisconnect:
		return "DISCONNECT"
	case CodeKeepalive:
		return "KEEPALIVE"
	case CodeLog:
		return "LOG"
	case CodeApplication:
		return "APPLICATION"
	default:
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
}

// Header flag bits, per §6's wire layout:
// byte1: flags (bits: NEEDS_REPLY, IS_REPLY, ID_PRESENT, LEN_BYTES[0..1], RESERVED)
const (
	flagLenMask    = 0x03
	flagNeedsReply = 1 << 2
	flagIsReply    = 1 << 3
	flagIDPresent  = 1 << 4
)

func lenBytesFor(n int) int {
	switch {
	case n == 0:
		return 0
	case n <= 0xff:
		return 1
	case n <= 0xffff:
		return 2
	default:
		return 3
	}
}

// frameHeader is the decoded form of one wire header.
type frameHeader struct {
	code       Code
	needsReply bool
	isReply    bool
	id         uint16
	payloadLen int
	encodedLen int // header length on the wire, for convenience
}

// encodeFrame builds one complete wire frame: header (with a checksum that
// makes the header bytes sum to zero mod 256) followed by payload.
func encodeFrame(code Code, needsReply, isReply bool, id uint16, payload []byte) []byte {
	lb := lenBytesFor(len(payload))
	idPresent := needsReply || isReply
	hdrLen := 3 + lb
	if idPresent {
		hdrLen += 2
	}

	frame := make([]byte, hdrLen+len(payload))
	frame[0] = byte(code)

	fl := byte(lb)
	if needsReply {
		fl |= flagNeedsReply
	}
	if isReply {
		fl |= flagIsReply
	}
	if idPresent {
		fl |= flagIDPresent
	}
	frame[1] = fl

	pos := 3
	for i := 0; i < lb; i++ {
		frame[pos+i] = byte(len(payload) >> (8 * i))
	}
	pos += lb
	if idPresent {
		frame[pos] = byte(id)
		frame[pos+1] = byte(id >> 8)
	}

	var sum byte
	for i := 0; i < hdrLen; i++ {
		if i != 2 {
			sum += frame[i]
		}
	}
	frame[2] = byte(-sum)

	copy(frame[hdrLen:], payload)
	return frame
}

// peekHeaderLen reports the header length implied by buf's flags byte,
// without validating the checksum. It returns ok=false if buf does not yet
// hold at least 2 bytes (the minimum needed to read the flags byte).
func peekHeaderLen(buf []byte) (hdrLen int, ok bool) {
	if len(buf) < 2 {
		return 0, false
	}
	fl := buf[1]
	lb := int(fl & flagLenMask)
	hdrLen = 3 + lb
	if fl&flagIDPresent != 0 {
		hdrLen += 2
	}
	return hdrLen, true
}

// checksumValid reports whether the hdrLen bytes of buf sum to zero mod
// 256, per §4.9's "checksum covers the header only".
func checksumValid(buf []byte, hdrLen int) bool {
	var sum byte
	for i := 0; i < hdrLen; i++ {
		sum += buf[i]
	}
	return sum == 0
}

// decodeHeader parses a validated header of length hdrLen from the front
// of buf.
func decodeHeader(buf []byte, hdrLen int) frameHeader {
	fl := buf[1]
	lb := int(fl & flagLenMask)
	h := frameHeader{
		code:       Code(buf[0]),
		needsReply: fl&flagNeedsReply != 0,
		isReply:    fl&flagIsReply != 0,
		encodedLen: hdrLen,
	}
	for i := 0; i < lb; i++ {
		h.payloadLen |= int(buf[3+i]) << (8 * i)
	}
	if fl&flagIDPresent != 0 {
		idOff := 3 + lb
		h.id = uint16(buf[idOff]) | uint16(buf[idOff+1])<<8
	}
	return h
}
