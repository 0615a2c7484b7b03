// Package bitpool implements the recorded bit buffer that backs autoshrink:
// a byte array of PRNG output annotated with the bit-width of each draw made
// while generating an instance. Pools can be replayed, mutated, and
// truncated to produce simpler candidate inputs (see package autoshrink).
package bitpool

import (
	"github.com/orizon-lang/proptest/internal/hash64"
)

// Pool is the growable byte buffer plus request log described in spec §3/§4.2.
//
// A pool has two modes. In generation mode (the default for a freshly
// constructed pool) draws extend the buffer on demand by pulling fresh 64-bit
// words from the caller's PRNG and append an entry to the request log. In
// shrink mode the buffer's content is frozen: draws never refill, reads past
// Limit yield zero forever, and no request is logged.
type Pool struct {
	bits       []byte
	bitsFilled uint64 // valid bits in bits[]
	requests   []uint32
	consumed   uint64
	limit      uint64
	generation uint64
	index      []uint64 // cumulative bit offset per request ordinal; nil until BuildIndex
	shrinking  bool
}

// New allocates a pool with the given initial bit capacity and limit. The
// limit is enforced only by shrink-mode draws (DrawShrink), which yield zero
// bits at or past it, a limit of 0 included; generation-mode Draw ignores it.
// requestCeil preallocates the request log slice capacity.
func New(initBits, limit uint64, requestCeil int) *Pool {
	p := &Pool{limit: limit}
	p.growToByteCapacity(byteCapacityFor(initBits))
	if requestCeil > 0 {
		p.requests = make([]uint32, 0, requestCeil)
	}
	return p
}

// byteCapacityFor rounds a bit count up to a byte capacity aligned to 64
// bits (8 bytes), per the pool's allocation invariant.
func byteCapacityFor(bits uint64) uint64 {
	bytes := (bits + 7) / 8
	return ((bytes + 7) / 8) * 8
}

func (p *Pool) growToByteCapacity(n uint64) {
	if uint64(len(p.bits)) >= n {
		return
	}
	newCap := uint64(len(p.bits))
	if newCap == 0 {
		newCap = 8
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]byte, newCap)
	copy(grown, p.bits)
	p.bits = grown
}

// BitsFilled returns the number of valid bits currently recorded.
func (p *Pool) BitsFilled() uint64 { return p.bitsFilled }

// Consumed returns the read cursor.
func (p *Pool) Consumed() uint64 { return p.consumed }

// Limit returns the current read ceiling.
func (p *Pool) Limit() uint64 { return p.limit }

// SetLimit overrides the read ceiling, e.g. to tighten it after a mutation
// pass (spec §4.4).
func (p *Pool) SetLimit(limit uint64) { p.limit = limit }

// Generation returns the diagnostic generation counter.
func (p *Pool) Generation() uint64 { return p.generation }

// Requests returns the recorded request log (bit widths), in draw order.
// The returned slice must not be mutated by the caller.
func (p *Pool) Requests() []uint32 { return p.requests }

// SetShrinking switches the pool into (or out of) shrink mode.
func (p *Pool) SetShrinking(v bool) { p.shrinking = v }

// Shrinking reports whether the pool is in shrink (frozen) mode.
func (p *Pool) Shrinking() bool { return p.shrinking }

// AppendRequest records a draw of the given bit width in the request log.
// A zero-width request is a no-op.
func (p *Pool) AppendRequest(width uint32) {
	if width == 0 {
		return
	}
	p.requests = append(p.requests, width)
	p.index = nil // stale
}

// ReadAt reads width (<=64) bits starting at bitOffset, little-endian.
func (p *Pool) ReadAt(bitOffset uint64, width uint) uint64 {
	if width == 0 {
		return 0
	}
	if width > 64 {
		panic("bitpool: ReadAt width exceeds 64")
	}
	var buf [9]byte
	byteStart := bitOffset / 8
	bitStart := bitOffset % 8
	nBytes := int((bitStart + uint64(width) + 7) / 8)
	for i := 0; i < nBytes; i++ {
		idx := byteStart + uint64(i)
		if idx < uint64(len(p.bits)) {
			buf[i] = p.bits[idx]
		}
	}
	var v uint64
	for i := nBytes - 1; i >= 0; i-- {
		v = (v << 8) | uint64(buf[i])
	}
	v >>= bitStart
	if width < 64 {
		v &= (uint64(1) << width) - 1
	}
	return v
}

// WriteAt writes the low width (<=64) bits of value starting at bitOffset,
// little-endian, growing the buffer if necessary.
func (p *Pool) WriteAt(bitOffset uint64, width uint, value uint64) {
	if width == 0 {
		return
	}
	if width > 64 {
		panic("bitpool: WriteAt width exceeds 64")
	}
	endBit := bitOffset + uint64(width)
	p.growToByteCapacity(byteCapacityFor(endBit))

	byteStart := bitOffset / 8
	bitStart := bitOffset % 8
	nBytes := int((bitStart + uint64(width) + 7) / 8)

	var buf [9]byte
	for i := 0; i < nBytes; i++ {
		idx := byteStart + uint64(i)
		if idx < uint64(len(p.bits)) {
			buf[i] = p.bits[idx]
		}
	}
	var cur uint64
	for i := nBytes - 1; i >= 0; i-- {
		cur = (cur << 8) | uint64(buf[i])
	}
	mask := (uint64(1) << width) - 1
	if width == 64 {
		mask = ^uint64(0)
	}
	cur &^= mask << bitStart
	cur |= (value & mask) << bitStart
	for i := 0; i < nBytes; i++ {
		buf[i] = byte(cur)
		cur >>= 8
	}
	for i := 0; i < nBytes; i++ {
		idx := byteStart + uint64(i)
		if idx < uint64(len(p.bits)) {
			p.bits[idx] = buf[i]
		}
	}
	if endBit > p.bitsFilled {
		p.bitsFilled = endBit
	}
}

// Draw consumes width bits in generation mode, refilling from source (which
// must return one fresh 64-bit PRNG word per call) whenever the buffer does
// not yet hold enough bits, and logs the request. Panics if called on a
// shrinking pool or if width > 64; callers in bitstream guard both.
func (p *Pool) Draw(width uint, source func() uint64) uint64 {
	if p.shrinking {
		panic("bitpool: Draw called on a shrinking pool")
	}
	need := p.consumed + uint64(width)
	for p.bitsFilled < need {
		word := source()
		p.WriteAt(p.bitsFilled, 64, word)
	}
	v := p.ReadAt(p.consumed, width)
	p.consumed += uint64(width)
	p.AppendRequest(uint32(width))
	return v
}

// DrawShrink consumes width bits in shrink mode: reads are frozen, truncated
// at Limit, and never logged. Once Consumed reaches Limit all further draws
// yield zero forever.
func (p *Pool) DrawShrink(width uint) uint64 {
	if p.consumed >= p.limit {
		return 0
	}
	avail := width
	if p.consumed+uint64(avail) > p.limit {
		avail = uint(p.limit - p.consumed)
	}
	var v uint64
	if avail > 0 {
		v = p.ReadAt(p.consumed, avail)
	}
	p.consumed += uint64(width)
	if p.consumed > p.limit {
		p.consumed = p.limit
	}
	return v
}

// ReadWideAt reads width bits (which may exceed 64) starting at bitOffset
// into out, little-endian, one word at a time. out must already be
// zero-filled for any bits beyond width within its last word.
func (p *Pool) ReadWideAt(bitOffset, width uint64, out []uint64) {
	off := bitOffset
	remaining := width
	idx := 0
	for remaining > 0 {
		w := remaining
		if w > 64 {
			w = 64
		}
		out[idx] = p.ReadAt(off, uint(w))
		off += w
		remaining -= w
		idx++
	}
}

// DrawBulk consumes width bits (possibly >64) in generation mode, refilling
// from source as needed, and logs a single request entry for the whole
// draw — bulk requests are recorded as one entry sized to the full bit
// count, not as a series of smaller entries (spec §3).
func (p *Pool) DrawBulk(width uint64, out []uint64, source func() uint64) {
	if p.shrinking {
		panic("bitpool: DrawBulk called on a shrinking pool")
	}
	need := p.consumed + width
	for p.bitsFilled < need {
		word := source()
		p.WriteAt(p.bitsFilled, 64, word)
	}
	p.ReadWideAt(p.consumed, width, out)
	p.consumed += width
	p.requests = append(p.requests, uint32(width))
	p.index = nil
}

// DrawBulkShrink consumes width bits (possibly >64) in shrink mode: frozen,
// truncated at Limit, never logged.
func (p *Pool) DrawBulkShrink(width uint64, out []uint64) {
	avail := width
	if p.consumed >= p.limit {
		avail = 0
	} else if p.consumed+width > p.limit {
		avail = p.limit - p.consumed
	}
	if avail > 0 {
		p.ReadWideAt(p.consumed, avail, out)
	}
	p.consumed += width
	if p.consumed > p.limit {
		p.consumed = p.limit
	}
}

// BuildIndex fills the cumulative offset array mapping request ordinal to
// bit offset, if it is not already present.
func (p *Pool) BuildIndex() {
	if p.index != nil {
		return
	}
	idx := make([]uint64, len(p.requests)+1)
	var off uint64
	for i, w := range p.requests {
		idx[i] = off
		off += uint64(w)
	}
	idx[len(p.requests)] = off
	p.index = idx
}

// Index returns the cumulative offset array built by BuildIndex, or nil.
func (p *Pool) Index() []uint64 { return p.index }

// RequestOffset returns the bit offset at which request ordinal i begins.
// BuildIndex must have been called first.
func (p *Pool) RequestOffset(i int) uint64 {
	if p.index == nil {
		panic("bitpool: RequestOffset called before BuildIndex")
	}
	return p.index[i]
}

// TruncateTrailingZeroBytes reduces BitsFilled to end at the last non-zero
// byte, then clamps Limit to the new filled length. This is the mechanism by
// which unused trailing bits fall off a candidate pool after mutation.
func (p *Pool) TruncateTrailingZeroBytes() {
	lastByte := int((p.bitsFilled + 7) / 8)
	i := lastByte - 1
	for i >= 0 && p.bits[i] == 0 {
		i--
	}
	newFilled := uint64(i+1) * 8
	if newFilled < p.bitsFilled {
		p.bitsFilled = newFilled
	}
	if p.limit > p.bitsFilled {
		p.limit = p.bitsFilled
	}
}

// HashConsumed feeds the consumed prefix of the pool (full bytes, plus any
// trailing partial byte masked to the remaining bit count) into the hasher
// and returns the digest. Used to make bloom deduplication work for any
// autoshrink argument lacking a user hash callback.
func (p *Pool) HashConsumed() uint64 {
	h := hash64.Init()
	fullBytes := p.consumed / 8
	if fullBytes > 0 {
		h.Sink(p.bits[:fullBytes])
	}
	if rem := p.consumed % 8; rem > 0 && fullBytes < uint64(len(p.bits)) {
		mask := byte((uint64(1) << rem) - 1)
		h.Sink([]byte{p.bits[fullBytes] & mask})
	}
	return h.Done()
}

// CloneEmpty builds a fresh candidate pool with its own byte capacity, limit
// and request-log capacity, used by autoshrink to build a mutation/drop
// candidate from an existing pool.
func (p *Pool) CloneEmpty(byteCapacity, limit uint64, requestCeil int) *Pool {
	c := &Pool{
		bits:       make([]byte, byteCapacity),
		limit:      limit,
		generation: p.generation + 1,
	}
	if requestCeil > 0 {
		c.requests = make([]uint32, 0, requestCeil)
	}
	return c
}

// RawBytes exposes the underlying byte buffer up to BitsFilled's containing
// bytes, for autoshrink's memcpy-style mutation passes. The returned slice
// aliases the pool's storage.
func (p *Pool) RawBytes() []byte {
	n := (p.bitsFilled + 7) / 8
	return p.bits[:n]
}

// SetRequests replaces the request log wholesale (used by autoshrink's drop
// pass, which rebuilds the log for the surviving requests).
func (p *Pool) SetRequests(reqs []uint32) {
	p.requests = reqs
	p.index = nil
}

// SetConsumed overrides the read cursor (used after autoshrink rebuilds a
// candidate pool's contents).
func (p *Pool) SetConsumed(c uint64) { p.consumed = c }

// SetBitsFilled overrides the filled-length marker (used after autoshrink
// rebuilds a candidate pool's contents).
func (p *Pool) SetBitsFilled(n uint64) { p.bitsFilled = n }
