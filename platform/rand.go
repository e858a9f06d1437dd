package platform

// RandomSource is the random-fill seam (§6): RandomFill and RandomUint32. If
// the hosting environment has no entropy source, PCG32 below provides one
// seeded from a 64-bit value.
type RandomSource interface {
	RandomFill(buf []byte)
	RandomUint32() uint32
}

// PCG32 is a small, deterministic, seedable pseudo-random generator used as
// the bundled fallback RandomSource when no platform RNG is available. It is
// the O'Neill PCG-XSH-RR 32/64 variant: a 64-bit LCG state with a permuted
// output function.
type PCG32 struct {
	state uint64
	inc   uint64
}

const (
	pcgMultiplier uint64 = 6364136223846793005
	pcgIncrement  uint64 = 1442695040888963407
)

// NewPCG32 seeds a generator from a 64-bit seed and a 64-bit stream selector.
func NewPCG32(seed, seq uint64) *PCG32 {
	p := &PCG32{}
	p.inc = (seq << 1) | 1
	p.state = 0
	p.next()
	p.state += seed
	p.next()
	return p
}

func (p *PCG32) next() uint32 {
	old := p.state
	p.state = old*pcgMultiplier + p.inc
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return (xorshifted >> rot) | (xorshifted << ((-rot) & 31))
}

// RandomUint32 returns the next 32-bit output.
func (p *PCG32) RandomUint32() uint32 {
	return p.next()
}

// RandomFill fills buf with successive PCG32 outputs, little-endian.
func (p *PCG32) RandomFill(buf []byte) {
	i := 0
	for i < len(buf) {
		v := p.next()
		for shift := 0; shift < 4 && i < len(buf); shift++ {
			buf[i] = byte(v >> (8 * shift))
			i++
		}
	}
}
