package pipeline

import "github.com/xtaci/c3p/buffer"

// TestSink is a reference sink used by codec and link tests to drive chunked
// offerings through a pipeline and record exact call-count, claim category,
// and expectation matching (§4.6 "Test source/sink").
type TestSink struct {
	Cap      int // 0 means unbounded
	Received *buffer.Chain
	Calls    int
	Claims   []ClaimResult
}

// NewTestSink returns a TestSink with the given capacity (0 = unbounded).
func NewTestSink(cap int) *TestSink {
	return &TestSink{Cap: cap, Received: buffer.New()}
}

func (s *TestSink) BufferAvailable() int {
	if s.Cap <= 0 {
		return 1 << 30
	}
	room := s.Cap - s.Received.Length()
	if room < 0 {
		room = 0
	}
	return room
}

func (s *TestSink) PushBuffer(c *buffer.Chain) (ClaimResult, error) {
	s.Calls++
	avail := s.BufferAvailable()
	n := c.Length()
	if n == 0 {
		s.Claims = append(s.Claims, Full)
		return Full, nil
	}
	if avail == 0 {
		s.Claims = append(s.Claims, Rejected)
		return Rejected, nil
	}
	take := n
	res := Full
	if take > avail {
		take = avail
		res = Partial
	}
	s.Received.ConcatHandoffLimit(c, take)
	s.Claims = append(s.Claims, res)
	return res, nil
}

// ExpectLength reports whether exactly want bytes were received.
func (s *TestSink) ExpectLength(want int) bool { return s.Received.Length() == want }

// ExpectTerminatedBy reports whether the captured bytes end with suffix.
func (s *TestSink) ExpectTerminatedBy(suffix string) bool {
	got := s.Received.String()
	if len(suffix) > len(got) {
		return false
	}
	return got[len(got)-len(suffix):] == suffix
}

// TestSource drives data through a downstream Accepter in fixed-size
// chunks, honoring back-pressure: a Partial or Rejected claim re-queues the
// unconsumed remainder ahead of the rest of the source data.
type TestSource struct {
	Sink      Accepter
	ChunkSize int
}

// NewTestSource returns a TestSource that offers data to sink in chunkSize
// pieces (chunkSize <= 0 offers everything remaining in one call).
func NewTestSource(sink Accepter, chunkSize int) *TestSource {
	return &TestSource{Sink: sink, ChunkSize: chunkSize}
}

// Drive offers all of data to the source's sink and returns the number of
// PushBuffer calls made.
func (s *TestSource) Drive(data []byte) (int, error) {
	remaining := buffer.FromBytes(data)
	calls := 0
	for remaining.Length() > 0 {
		n := s.ChunkSize
		if n <= 0 || n > remaining.Length() {
			n = remaining.Length()
		}
		chunk := buffer.New()
		chunk.ConcatHandoffLimit(remaining, n)

		res, err := s.Sink.PushBuffer(chunk)
		calls++
		if err != nil {
			return calls, err
		}
		if res == Full {
			continue
		}
		// Partial/Rejected: whatever is left in chunk goes back in front.
		merged := buffer.New()
		merged.ConcatHandoff(chunk)
		merged.ConcatHandoff(remaining)
		remaining = merged
		if res == Rejected && s.Sink.BufferAvailable() <= 0 {
			break
		}
	}
	return calls, nil
}
