package pipeline

import (
	"fmt"

	"github.com/xtaci/c3p/buffer"
)

// Fork is a two-way copy sink: every byte pushed to it is forwarded
// identically to both a left and a right downstream sink. Its advertised
// capacity is the minimum of the two downstreams', and a push is accepted
// only insofar as both sides can accept identical bytes (§4.6).
type Fork struct {
	Left, Right Accepter
}

// NewFork returns a Fork forwarding to left and right.
func NewFork(left, right Accepter) *Fork {
	return &Fork{Left: left, Right: right}
}

// BufferAvailable returns min(Left.BufferAvailable(), Right.BufferAvailable()).
func (f *Fork) BufferAvailable() int {
	l, r := f.Left.BufferAvailable(), f.Right.BufferAvailable()
	if l < r {
		return l
	}
	return r
}

// PushBuffer implements Accepter.
func (f *Fork) PushBuffer(c *buffer.Chain) (ClaimResult, error) {
	avail := f.BufferAvailable()
	total := c.Length()
	if total == 0 {
		return Full, nil
	}
	if avail <= 0 {
		return Rejected, nil
	}
	take := total
	if take > avail {
		take = avail
	}

	leftCopy := buffer.New()
	c.CopyToBuffer(leftCopy, take, 0)
	rightCopy := buffer.New()
	c.CopyToBuffer(rightCopy, take, 0)

	lr, lerr := f.Left.PushBuffer(leftCopy)
	if lerr != nil {
		return Rejected, lerr
	}
	rr, rerr := f.Right.PushBuffer(rightCopy)
	if rerr != nil {
		return Rejected, rerr
	}
	if lr != Full || rr != Full {
		return Rejected, fmt.Errorf("pipeline: fork downstream claimed less than its advertised capacity (left=%s right=%s)", lr, rr)
	}

	c.Cull(take)
	if take == total {
		return Full, nil
	}
	return Partial, nil
}
