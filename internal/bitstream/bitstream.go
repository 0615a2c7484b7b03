// Package bitstream exposes the "give me N bits" / "give me N bits bulk"
// contract generators draw against. It hides whether bits come straight from
// the PRNG or are being recorded into (or replayed from) an attached bit
// pool, so a generator callback never needs to know which mode it is in.
package bitstream

import (
	"errors"

	"github.com/orizon-lang/proptest/internal/bitpool"
)

// ErrInvalidArgument is returned when Bits is asked for fewer than 1 or more
// than 64 bits.
var ErrInvalidArgument = errors.New("bitstream: width must be in [1, 64]")

// PRNG is the minimal 64-bit stream contract the source needs; it is
// satisfied by *xrand.Xoroshiro128Plus.
type PRNG interface {
	Uint64() uint64
}

// Source is the bit source described in spec §4.1. The zero value is not
// usable; construct with New.
type Source struct {
	prng PRNG
	pool *bitpool.Pool

	buf     uint64
	bufBits uint
}

// New returns a Source drawing directly from prng until a pool is attached.
func New(prng PRNG) *Source {
	return &Source{prng: prng}
}

// Attach binds a bit pool to the source. At most one pool may be attached at
// a time; attaching while one is already attached panics, since this signals
// a bug in the runner's exclusive-borrow discipline (spec §5, §9).
func (s *Source) Attach(p *bitpool.Pool) {
	if s.pool != nil {
		panic("bitstream: a pool is already attached")
	}
	s.pool = p
}

// Detach releases the attached pool (if any) and returns it.
func (s *Source) Detach() *bitpool.Pool {
	p := s.pool
	s.pool = nil
	return p
}

// Attached reports whether a pool is currently attached.
func (s *Source) Attached() bool { return s.pool != nil }

func mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// Bits returns the low n bits (1<=n<=64) of an internal buffer, refilling
// from the PRNG (or the attached pool) as needed, little-endian.
func (s *Source) Bits(n uint) (uint64, error) {
	if n < 1 || n > 64 {
		return 0, ErrInvalidArgument
	}
	if s.pool != nil {
		if s.pool.Shrinking() {
			return s.pool.DrawShrink(n), nil
		}
		return s.pool.Draw(n, s.prng.Uint64), nil
	}
	return s.directBits(n), nil
}

// directBits implements the no-pool-attached buffered read. The buffer holds
// bufBits valid bits in its low end; when more are needed, a fresh 64-bit
// PRNG word supplies the shortfall, and its remaining high bits become the
// new buffer.
func (s *Source) directBits(n uint) uint64 {
	if s.bufBits >= n {
		v := s.buf & mask(n)
		s.buf >>= n
		s.bufBits -= n
		return v
	}
	need := n - s.bufBits
	low := s.buf
	w := s.prng.Uint64()
	extra := w & mask(need)
	v := (low | (extra << s.bufBits)) & mask(n)

	if need >= 64 {
		s.buf = 0
		s.bufBits = 0
	} else {
		s.buf = w >> need
		s.bufBits = 64 - need
	}
	return v
}

// Bulk fills ceil(n/64) 64-bit words of out with n bits, little-endian,
// zeroing the destination first. When a pool is attached the whole draw is
// recorded (or replayed) as a single request of width n, per spec §3; when
// no pool is attached it decomposes into the same buffered reads Bits uses,
// so the two are guaranteed consistent with any other decomposition of n.
func (s *Source) Bulk(n uint64, out []uint64) error {
	need := int((n + 63) / 64)
	if n > 0 && len(out) < need {
		return ErrInvalidArgument
	}
	for i := 0; i < need; i++ {
		out[i] = 0
	}
	if n == 0 {
		return nil
	}
	if s.pool != nil {
		if s.pool.Shrinking() {
			s.pool.DrawBulkShrink(n, out[:need])
		} else {
			s.pool.DrawBulk(n, out[:need], s.prng.Uint64)
		}
		return nil
	}
	remaining := n
	idx := 0
	for remaining > 0 {
		w := remaining
		if w > 64 {
			w = 64
		}
		out[idx] = s.directBits(uint(w))
		remaining -= w
		idx++
	}
	return nil
}
