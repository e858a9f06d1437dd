// Package pipeline defines the BufferAccepter contract (§3, §4.6): a
// chainable byte sink with advertised free capacity and back-pressure. Sinks
// consume immediately, queue in a bounded structure, or forward downstream;
// none may retain a reference to caller memory past the call, and a
// rejecting sink must not have mutated the caller's chain.
package pipeline

import "github.com/xtaci/c3p/buffer"

// ClaimResult is the tri-state return of PushBuffer.
type ClaimResult int

const (
	// Full means every byte offered was accepted.
	Full ClaimResult = iota
	// Partial means a byte prefix was accepted; the remainder is left in
	// the caller's chain, in order, with no bytes skipped or reordered.
	Partial
	// Rejected means nothing was accepted; the caller's chain is
	// untouched.
	Rejected
)

func (c ClaimResult) String() string {
	switch c {
	case Full:
		return "full"
	case Partial:
		return "partial"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Accepter is the BufferAccepter contract. PushBuffer takes ownership of
// whatever prefix of c it claims; on return, c holds only what was not
// accepted. BufferAvailable advertises the maximum number of bytes the sink
// will accept on its next call (subject to transform scaling for codecs).
type Accepter interface {
	PushBuffer(c *buffer.Chain) (ClaimResult, error)
	BufferAvailable() int
}

// Push drains all of src into dst by repeated PushBuffer calls, honoring
// back-pressure (it stops as soon as dst rejects a push, or claims only part
// of src, returning the final ClaimResult and any error). This is
// the non-test-harness convenience entry point most codecs and callers use
// instead of hand-rolling a retry loop.
func Push(dst Accepter, src *buffer.Chain) (ClaimResult, error) {
	last := Full
	for src.Length() > 0 {
		res, err := dst.PushBuffer(src)
		if err != nil {
			return res, err
		}
		last = res
		if res == Rejected {
			return res, nil
		}
		if res == Partial && src.Length() > 0 {
			// Downstream is saturated; stop rather than spin.
			return res, nil
		}
	}
	return last, nil
}
