// Package bloom implements the duplicate-argument-tuple filter described in
// spec §4.3: a fixed array of lazily-allocated blocks, each a chain of
// sub-filters that grows on saturation instead of rehashing the whole
// structure. Once a sub-filter's four bits are all set on insertion, the
// block prepends a bigger sibling rather than accepting a higher false
// positive rate forever.
package bloom

// hashCount is the number of bit positions touched per sub-filter per key,
// fixed by the blocked-bloom construction (spec §3).
const hashCount = 4

// DefaultTopBits is the log2 of the number of top-level blocks.
const DefaultTopBits = 9

// DefaultMinFilterBits is the log2 size of a freshly allocated sub-filter.
const DefaultMinFilterBits = 9

// subFilter is one generation of bits within a block's chain. size2 is the
// log2 of its bit count.
type subFilter struct {
	size2 uint
	bits  []uint64 // len = 1<<size2 bits, packed 64 per word
	next  *subFilter
}

func newSubFilter(size2 uint) *subFilter {
	nWords := (uint64(1) << size2) / 64
	if nWords == 0 {
		nWords = 1
	}
	return &subFilter{size2: size2, bits: make([]uint64, nWords)}
}

func (s *subFilter) get(bit uint64) bool {
	return s.bits[bit/64]&(1<<(bit%64)) != 0
}

// set sets bit to 1.
func (s *subFilter) set(bit uint64) {
	s.bits[bit/64] |= 1 << (bit % 64)
}

// Filter is the top-level blocked bloom filter. The zero value is not
// usable; construct with New.
type Filter struct {
	topBits      uint
	minFilter    uint
	blocks       []*subFilter // chain head per block, nil until first mark
	overgrew     bool         // sticky: set once any block hit the hash-bit ceiling
}

// New allocates a filter with 1<<topBits blocks, each lazily populated on
// first Mark. topBits and minFilterBits default to the spec's reference
// constants (9 and 9) when given as zero.
func New(topBits, minFilterBits uint) *Filter {
	if topBits == 0 {
		topBits = DefaultTopBits
	}
	if minFilterBits == 0 {
		minFilterBits = DefaultMinFilterBits
	}
	return &Filter{
		topBits:   topBits,
		minFilter: minFilterBits,
		blocks:    make([]*subFilter, uint64(1)<<topBits),
	}
}

// Overgrew reports whether any block ever stopped growing because
// top_bits + hashCount*size2 would have exceeded 64 hash bits.
func (f *Filter) Overgrew() bool { return f.overgrew }

func splitHash(h uint64, topBits uint) (block uint64, rest uint64) {
	mask := (uint64(1) << topBits) - 1
	return h & mask, h >> topBits
}

// chunks extracts hashCount size2-bit indices from rest, each modulo the
// sub-filter's bit count. rest must carry at least hashCount*size2 bits;
// callers never grow a sub-filter past that ceiling (see Mark).
func chunks(rest uint64, size2 uint) [hashCount]uint64 {
	var out [hashCount]uint64
	m := (uint64(1) << size2) - 1
	for i := 0; i < hashCount; i++ {
		out[i] = rest & m
		rest >>= size2
	}
	return out
}

// Check reports whether key may have been marked before. A chain reports
// "maybe" only if every sub-filter in it reports "maybe"; an empty block
// always reports false. A key marked before its block's chain grew has its
// bits only in the older sub-filters, so it reports false unless the newer
// sub-filters happen to have its bits set as well.
func (f *Filter) Check(hash uint64) bool {
	blockIdx, rest := splitHash(hash, f.topBits)
	sf := f.blocks[blockIdx]
	if sf == nil {
		return false
	}
	for cur := sf; cur != nil; cur = cur.next {
		idx := chunks(rest, cur.size2)
		allSet := true
		for _, bit := range idx {
			if !cur.get(bit) {
				allSet = false
				break
			}
		}
		if !allSet {
			return false
		}
	}
	return true
}

// Mark records key. If the block is empty, it allocates a fresh head
// sub-filter at minFilter size2. If setting the four bits in the current
// head finds all four already 1 (saturation), a new, larger sub-filter is
// prepended and becomes the sole target of future marks for this block —
// older sub-filters stay readable by Check but are never written again.
func (f *Filter) Mark(hash uint64) {
	blockIdx, rest := splitHash(hash, f.topBits)
	head := f.blocks[blockIdx]
	if head == nil {
		head = newSubFilter(f.minFilter)
		f.blocks[blockIdx] = head
	}

	if f.topBits+hashCount*head.size2 > 64 {
		// Already at the hash-bit ceiling: mark into the existing head and
		// stop growing, per spec §4.3.
		f.setBits(head, rest)
		return
	}

	idx := chunks(rest, head.size2)
	allWereSet := true
	for _, bit := range idx {
		if !head.get(bit) {
			allWereSet = false
		}
		head.set(bit)
	}
	if !allWereSet {
		return
	}

	// Saturated: grow.
	grown := head.size2 + 1
	if f.topBits+hashCount*grown > 64 {
		f.overgrew = true
		return
	}
	next := newSubFilter(grown)
	next.next = head
	f.blocks[blockIdx] = next
	f.setBits(next, rest)
}

func (f *Filter) setBits(sf *subFilter, rest uint64) {
	for _, bit := range chunks(rest, sf.size2) {
		sf.set(bit)
	}
}
