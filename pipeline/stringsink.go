package pipeline

import "github.com/xtaci/c3p/buffer"

// StringBuilderSink is a capped-length capture sink: it accepts bytes until
// its configured limit would be exceeded, then rejects further pushes
// outright (§4.6 "Reference sinks").
type StringBuilderSink struct {
	limit int
	buf   *buffer.Chain
}

// NewStringBuilderSink returns a sink that accepts at most limit bytes
// total. limit <= 0 means unbounded.
func NewStringBuilderSink(limit int) *StringBuilderSink {
	return &StringBuilderSink{limit: limit, buf: buffer.New()}
}

// BufferAvailable returns the remaining capacity.
func (s *StringBuilderSink) BufferAvailable() int {
	if s.limit <= 0 {
		return 1 << 30
	}
	room := s.limit - s.buf.Length()
	if room < 0 {
		room = 0
	}
	return room
}

// PushBuffer implements Accepter.
func (s *StringBuilderSink) PushBuffer(c *buffer.Chain) (ClaimResult, error) {
	avail := s.BufferAvailable()
	n := c.Length()
	if n == 0 {
		return Full, nil
	}
	if avail == 0 {
		return Rejected, nil
	}
	if n <= avail {
		s.buf.ConcatHandoff(c)
		return Full, nil
	}
	s.buf.ConcatHandoffLimit(c, avail)
	return Partial, nil
}

// String returns everything captured so far.
func (s *StringBuilderSink) String() string { return s.buf.String() }

// Len returns the number of bytes captured so far.
func (s *StringBuilderSink) Len() int { return s.buf.Length() }

// Reset discards captured content.
func (s *StringBuilderSink) Reset() { s.buf = buffer.New() }
