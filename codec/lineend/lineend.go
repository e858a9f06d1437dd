// Package lineend implements LineEndingCodec (§4.6.2): stream-aligned line
// terminator normalization. It is a pipeline.Accepter that rewrites a
// configured subset of {CR, LF, CRLF} terminators to a single target
// terminator, optionally holding the final unterminated fragment of each
// push until a subsequent push or Flush completes it. Terminator scanning
// runs on search.Scanner (MultiStringSearch), which reports the earliest
// match across the configured terminator needles with a longest-match
// tiebreak; only the streaming hold-back and CRLF-split-across-pushes
// disambiguation live here.
package lineend

import (
	"fmt"

	"github.com/xtaci/c3p/buffer"
	"github.com/xtaci/c3p/pipeline"
	"github.com/xtaci/c3p/search"
)

// Terminator names a line-ending sequence.
type Terminator int

const (
	CR Terminator = iota
	LF
	CRLF
	NoTerminator
)

func (t Terminator) bytes() []byte {
	switch t {
	case CR:
		return []byte{'\r'}
	case LF:
		return []byte{'\n'}
	case CRLF:
		return []byte{'\r', '\n'}
	default:
		return nil
	}
}

// Codec is a streaming line-terminator normalizer.
type Codec struct {
	downstream     pipeline.Accepter
	target         Terminator
	replaceCR      bool
	replaceLF      bool
	replaceCRLF    bool
	HoldUntilBreak bool

	scanner *search.Scanner
	pending []byte
}

// New returns a Codec targeting `target`, replacing whichever of CR/LF/CRLF
// appear in replace.
func New(downstream pipeline.Accepter, target Terminator, replace ...Terminator) *Codec {
	c := &Codec{downstream: downstream, target: target}
	for _, r := range replace {
		switch r {
		case CR:
			c.replaceCR = true
		case LF:
			c.replaceLF = true
		case CRLF:
			c.replaceCRLF = true
		}
	}
	var needles [][]byte
	if c.twoByteEligible() {
		needles = append(needles, []byte{'\r', '\n'})
	}
	if c.replaceCR {
		needles = append(needles, []byte{'\r'})
	}
	if c.replaceLF {
		needles = append(needles, []byte{'\n'})
	}
	c.scanner = search.New(needles...)
	return c
}

func (c *Codec) twoByteEligible() bool {
	return c.replaceCRLF || (c.replaceCR && c.replaceLF)
}

// scan performs one pass over raw, driven by the multi-needle scanner. It
// returns the transformed output, how far into raw it consumed (less than
// len(raw) only when a trailing lone CR was held back pending CRLF
// disambiguation and final is false), and how far into raw/out the last
// complete terminator match reached (used by the holdUntilBreak accounting).
func (c *Codec) scan(raw []byte, final bool) (out []byte, consumedIdx, lastMatchRawIdx, lastMatchOutLen int) {
	pos := 0
	for {
		m, found := c.scanner.Scan(raw, pos)
		if !found {
			break
		}
		// A lone CR at the very end of a non-final window could be the
		// first half of a CRLF; hold it rather than rewrite it.
		if !final && c.twoByteEligible() && m.Length == 1 && raw[m.Offset] == '\r' && m.Offset == len(raw)-1 {
			out = append(out, raw[pos:m.Offset]...)
			return out, m.Offset, lastMatchRawIdx, lastMatchOutLen
		}
		out = append(out, raw[pos:m.Offset]...)
		out = append(out, c.target.bytes()...)
		pos = search.AdvancePast(m)
		lastMatchRawIdx = pos
		lastMatchOutLen = len(out)
	}
	tail := raw[pos:]
	// Same half-CRLF hold for a trailing CR that is not itself a needle
	// (replaceCRLF set without replaceCR).
	if !final && c.twoByteEligible() && len(tail) > 0 && tail[len(tail)-1] == '\r' {
		out = append(out, tail[:len(tail)-1]...)
		return out, len(raw) - 1, lastMatchRawIdx, lastMatchOutLen
	}
	out = append(out, tail...)
	return out, len(raw), lastMatchRawIdx, lastMatchOutLen
}

// expansionFactor is the worst-case output growth per input byte: 2 when a
// single-byte terminator can be rewritten to a longer target (lone CR or LF
// becoming CRLF), 1 otherwise.
func (c *Codec) expansionFactor() int {
	if (c.replaceCR || c.replaceLF) && len(c.target.bytes()) > 1 {
		return 2
	}
	return 1
}

// BufferAvailable reports raw input capacity: the downstream's advertised
// bytes divided by the worst-case expansion factor, less any held fragment
// (which will consume downstream capacity when it finally flushes). This
// guarantees a push sized within the advertisement always fits downstream.
func (c *Codec) BufferAvailable() int {
	da := c.downstream.BufferAvailable()/c.expansionFactor() - len(c.pending)
	if da < 0 {
		return 0
	}
	return da
}

// PushBuffer implements pipeline.Accepter.
func (c *Codec) PushBuffer(in *buffer.Chain) (pipeline.ClaimResult, error) {
	n := in.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	avail := c.BufferAvailable()
	if avail == 0 {
		return pipeline.Rejected, nil
	}
	take := n
	if take > avail {
		take = avail
	}

	chunk := buffer.New()
	in.CopyToBuffer(chunk, take, 0)
	raw := append(append([]byte{}, c.pending...), chunk.Bytes()...)

	out, consumedIdx, lastMatchRawIdx, lastMatchOutLen := c.scan(raw, false)

	var emit []byte
	var newPending []byte
	if c.HoldUntilBreak {
		emit = out[:lastMatchOutLen]
		newPending = append([]byte(nil), raw[lastMatchRawIdx:]...)
	} else {
		emit = out
		newPending = append([]byte(nil), raw[consumedIdx:]...)
	}

	if len(emit) > 0 {
		res, err := c.downstream.PushBuffer(buffer.FromBytes(emit))
		if err != nil {
			return pipeline.Rejected, err
		}
		if res != pipeline.Full {
			return pipeline.Rejected, fmt.Errorf("lineend: downstream rejected output sized within its own advertised capacity")
		}
	}
	c.pending = newPending
	in.Cull(take)
	if take == n {
		return pipeline.Full, nil
	}
	return pipeline.Partial, nil
}

// Flush resolves any held fragment (including an ambiguous trailing lone
// CR) as final and forwards it downstream. Call at end of stream.
func (c *Codec) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	out, _, _, _ := c.scan(c.pending, true)
	c.pending = nil
	if len(out) == 0 {
		return nil
	}
	res, err := c.downstream.PushBuffer(buffer.FromBytes(out))
	if err != nil {
		return err
	}
	if res != pipeline.Full {
		return fmt.Errorf("lineend: downstream rejected flush output")
	}
	return nil
}
