// Package snappy adapts github.com/golang/snappy's block compressor to the
// pipeline.Accepter contract (§4.6). Snappy compresses whole blocks, not
// a running byte stream, so this codec buffers raw input until Flush and
// frames each compressed block with a 4-byte little-endian length prefix
// on the wire — the same length-prefixed framing idiom xtaci/kcptun's smux
// layer uses for its own frames, adapted here to a single-codec pipeline
// stage rather than a multiplexed session.
package snappy

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"

	"github.com/xtaci/c3p/buffer"
	"github.com/xtaci/c3p/pipeline"
)

const lengthPrefixSize = 4

// Encoder buffers raw bytes and, on Flush, emits one length-prefixed
// Snappy-compressed block downstream.
type Encoder struct {
	downstream pipeline.Accepter
	pending    []byte
}

func NewEncoder(downstream pipeline.Accepter) *Encoder {
	return &Encoder{downstream: downstream}
}

// BufferAvailable always accepts more raw bytes into the pending block;
// the codec only pushes downstream pressure at Flush time, when the
// compressed block is actually written.
func (e *Encoder) BufferAvailable() int {
	return 1 << 20
}

// PushBuffer implements pipeline.Accepter by appending to the pending
// block; nothing is forwarded downstream until Flush.
func (e *Encoder) PushBuffer(c *buffer.Chain) (pipeline.ClaimResult, error) {
	n := c.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	e.pending = append(e.pending, c.Bytes()...)
	c.Cull(n)
	return pipeline.Full, nil
}

// Flush compresses the accumulated block and writes it downstream as
// [4-byte little-endian length][compressed bytes]. Call once per block
// boundary (e.g. end of message, end of stream).
func (e *Encoder) Flush() error {
	if len(e.pending) == 0 {
		return nil
	}
	compressed := snappy.Encode(nil, e.pending)
	e.pending = nil

	framed := make([]byte, lengthPrefixSize+len(compressed))
	binary.LittleEndian.PutUint32(framed, uint32(len(compressed)))
	copy(framed[lengthPrefixSize:], compressed)

	res, err := e.downstream.PushBuffer(buffer.FromBytes(framed))
	if err != nil {
		return err
	}
	if res != pipeline.Full {
		return fmt.Errorf("snappy: downstream rejected compressed block")
	}
	return nil
}

// Decoder accumulates length-prefixed Snappy blocks and forwards each
// decompressed block downstream as soon as it is complete.
type Decoder struct {
	downstream pipeline.Accepter
	pending    []byte
}

func NewDecoder(downstream pipeline.Accepter) *Decoder {
	return &Decoder{downstream: downstream}
}

func (d *Decoder) BufferAvailable() int {
	return 1 << 20
}

// PushBuffer implements pipeline.Accepter, draining as many complete
// blocks as are available in the accumulated input.
func (d *Decoder) PushBuffer(c *buffer.Chain) (pipeline.ClaimResult, error) {
	n := c.Length()
	if n == 0 {
		return pipeline.Full, nil
	}
	d.pending = append(d.pending, c.Bytes()...)
	c.Cull(n)

	for {
		if len(d.pending) < lengthPrefixSize {
			break
		}
		blockLen := int(binary.LittleEndian.Uint32(d.pending))
		if len(d.pending) < lengthPrefixSize+blockLen {
			break
		}
		compressed := d.pending[lengthPrefixSize : lengthPrefixSize+blockLen]
		decompressed, err := snappy.Decode(nil, compressed)
		if err != nil {
			return pipeline.Rejected, fmt.Errorf("snappy: corrupt block: %w", err)
		}
		d.pending = d.pending[lengthPrefixSize+blockLen:]

		if len(decompressed) > 0 {
			res, perr := d.downstream.PushBuffer(buffer.FromBytes(decompressed))
			if perr != nil {
				return pipeline.Rejected, perr
			}
			if res != pipeline.Full {
				return pipeline.Rejected, fmt.Errorf("snappy: downstream rejected decompressed block")
			}
		}
	}
	return pipeline.Full, nil
}
