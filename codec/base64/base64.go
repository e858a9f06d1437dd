// Package base64 implements the Base64 pipeline codec (§4.6.1): two
// stateless-per-chunk transforms, each itself a pipeline.Accepter, that
// forward transformed bytes to a downstream sink. The encoder follows
// standard Base64 with '=' padding; the decoder accepts strict Base64 by
// default and rejects invalid characters or bad padding, with an opt-in lax
// mode per §9's "unsafe decode" switch.
package base64

import (
	"encoding/base64"
	"fmt"

	"github.com/xtaci/c3p/buffer"
	"github.com/xtaci/c3p/pipeline"
)

// Encoder streams raw bytes in and Base64 text out, buffering the 0-2 byte
// remainder that doesn't yet form a complete 3-byte group.
type Encoder struct {
	downstream pipeline.Accepter
	pending    []byte
}

// NewEncoder returns an Encoder forwarding encoded text to downstream.
func NewEncoder(downstream pipeline.Accepter) *Encoder {
	return &Encoder{downstream: downstream}
}

// BufferAvailable reports how many raw input bytes can currently be
// accepted: downstream capacity scaled by 3/4, rounded down to a whole
// 3-byte group.
func (e *Encoder) BufferAvailable() int {
	groups := e.downstream.BufferAvailable() / 4
	if groups < 0 {
		groups = 0
	}
	return groups * 3
}

// PushBuffer implements pipeline.Accepter.
func (e *Encoder) PushBuffer(c *buffer.Chain) (pipeline.ClaimResult, error) {
	n := c.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	avail := e.BufferAvailable()
	if avail == 0 {
		return pipeline.Rejected, nil
	}
	take := n
	if take > avail {
		take = avail
	}

	chunk := buffer.New()
	c.CopyToBuffer(chunk, take, 0)
	raw := append(append([]byte{}, e.pending...), chunk.Bytes()...)
	groupLen := (len(raw) / 3) * 3
	toEncode := raw[:groupLen]
	leftover := append([]byte(nil), raw[groupLen:]...)

	if len(toEncode) > 0 {
		encoded := base64.StdEncoding.EncodeToString(toEncode)
		res, err := e.downstream.PushBuffer(buffer.FromBytes([]byte(encoded)))
		if err != nil {
			return pipeline.Rejected, err
		}
		if res != pipeline.Full {
			return pipeline.Rejected, fmt.Errorf("base64: downstream rejected output sized within its own advertised capacity")
		}
	}

	e.pending = leftover
	c.Cull(take)
	if take == n {
		return pipeline.Full, nil
	}
	return pipeline.Partial, nil
}

// Flush encodes any buffered remainder (0, 1, or 2 bytes) with '=' padding
// and forwards it downstream. Call once at end of stream.
func (e *Encoder) Flush() error {
	if len(e.pending) == 0 {
		return nil
	}
	encoded := base64.StdEncoding.EncodeToString(e.pending)
	e.pending = nil
	res, err := e.downstream.PushBuffer(buffer.FromBytes([]byte(encoded)))
	if err != nil {
		return err
	}
	if res != pipeline.Full {
		return fmt.Errorf("base64: downstream rejected flush output")
	}
	return nil
}

// Decoder streams Base64 text in and raw bytes out. By default it is
// strict: invalid characters or malformed padding are a hard rejection. Lax
// enables tolerant decoding that strips characters outside the standard
// alphabet before decoding, per §9's documented speed/safety switch.
type Decoder struct {
	downstream pipeline.Accepter
	pending    []byte
	Lax        bool
}

// NewDecoder returns a Decoder forwarding decoded bytes to downstream.
func NewDecoder(downstream pipeline.Accepter) *Decoder {
	return &Decoder{downstream: downstream}
}

// BufferAvailable reports how many input characters can currently be
// accepted: downstream capacity scaled by 4/3, rounded down to a whole
// 4-character group.
func (d *Decoder) BufferAvailable() int {
	groups := d.downstream.BufferAvailable() / 3
	if groups < 0 {
		groups = 0
	}
	return groups * 4
}

func isStdBase64Char(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '+' || b == '/' || b == '=':
		return true
	}
	return false
}

func stripInvalid(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for _, b := range s {
		if isStdBase64Char(b) {
			out = append(out, b)
		}
	}
	return out
}

// PushBuffer implements pipeline.Accepter.
func (d *Decoder) PushBuffer(c *buffer.Chain) (pipeline.ClaimResult, error) {
	n := c.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	avail := d.BufferAvailable()
	if avail == 0 {
		return pipeline.Rejected, nil
	}
	take := n
	if take > avail {
		take = avail
	}

	peek := buffer.New()
	c.CopyToBuffer(peek, take, 0)
	raw := append(append([]byte{}, d.pending...), peek.Bytes()...)
	if d.Lax {
		raw = stripInvalid(raw)
	}
	groupLen := (len(raw) / 4) * 4
	toDecode := raw[:groupLen]
	leftover := append([]byte(nil), raw[groupLen:]...)

	if len(toDecode) == 0 {
		d.pending = raw
		c.Cull(take)
		return pipeline.Full, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(string(toDecode))
	if err != nil {
		return pipeline.Rejected, fmt.Errorf("base64: invalid input: %w", err)
	}

	c.Cull(take)
	d.pending = leftover
	res, perr := d.downstream.PushBuffer(buffer.FromBytes(decoded))
	if perr != nil {
		return pipeline.Rejected, perr
	}
	if res != pipeline.Full {
		return pipeline.Rejected, fmt.Errorf("base64: downstream rejected decoded output sized within its own advertised capacity")
	}
	if take == n {
		return pipeline.Full, nil
	}
	return pipeline.Partial, nil
}
