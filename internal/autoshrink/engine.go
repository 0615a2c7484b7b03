package autoshrink

import (
	"math/bits"

	"github.com/orizon-lang/proptest/internal/bitpool"
)

// Outcome reports what Shrink produced.
type Outcome int

const (
	// OutcomeCandidate means a candidate pool was built and should be
	// replayed against the user's alloc callback.
	OutcomeCandidate Outcome = iota
	// OutcomeNoMoreTactics means the tactic counter reached its ceiling, or
	// there was nothing left to shrink.
	OutcomeNoMoreTactics
)

// Config holds the tunables autoshrink draws from the type's
// autoshrink-config descriptor (spec §3).
type Config struct {
	MaxFailedShrinks   uint32 // tactic ceiling; default 100
	LeaveTrailingZeros bool   // skip trailing-zero truncation, for tests
	DisableMandatoryDrop bool // test-only: skip the "always drop one" rule
}

// DefaultMaxFailedShrinks is the spec's reference ceiling on the tactic
// counter before a shrink gives up on an argument.
const DefaultMaxFailedShrinks = 100

const (
	dropBitsWidth   = 5
	dropThreshold   = 0
	minMaxChanges   = 5
	shiftRange      = 4 // shift amount drawn from [1,4]
)

// Shrink attempts one shrink tactic against original, per spec §4.4. tactic
// is the caller's monotonically advancing attempt counter; once it reaches
// cfg.MaxFailedShrinks (or DefaultMaxFailedShrinks if zero), Shrink reports
// OutcomeNoMoreTactics without touching the model or drawing any bits.
//
// decide is used to draw the bits that steer every decision the engine
// makes (which requests to drop, which action to apply, how far to shift,
// and so on) — ordinarily *bitstream.Source.Bits with its pool detached, so
// shrink decisions consume the same PRNG stream the rest of the runner
// uses.
func Shrink(original *bitpool.Pool, model *Model, decide func(n uint) uint64, cfg Config, tactic uint32) (*bitpool.Pool, Outcome) {
	ceiling := cfg.MaxFailedShrinks
	if ceiling == 0 {
		ceiling = DefaultMaxFailedShrinks
	}
	if tactic >= ceiling {
		return nil, OutcomeNoMoreTactics
	}

	original.BuildIndex()
	requestCount := len(original.Requests())
	if requestCount == 0 {
		return nil, OutcomeNoMoreTactics
	}

	model.ResetAttempt()

	var candidate *bitpool.Pool
	if model.ShouldDrop(decide, requestCount) {
		candidate = dropPass(original, decide, model, cfg)
	} else {
		candidate = mutationPass(original, decide, model)
	}

	if !cfg.LeaveTrailingZeros {
		candidate.TruncateTrailingZeroBytes()
	}
	return candidate, OutcomeCandidate
}

// dropPass builds a candidate pool containing every request from original
// except the ones chosen to drop: one mandatory drop (unless disabled) plus
// any request whose per-request draw falls at or under dropThreshold.
// Requests wider than 64 bits drop a random sub-window instead of the whole
// request, since a single ReadAt/WriteAt cannot move more than 64 bits at a
// time.
func dropPass(original *bitpool.Pool, decide func(n uint) uint64, model *Model, cfg Config) *bitpool.Pool {
	requests := original.Requests()
	n := len(requests)

	mandatory := -1
	if !cfg.DisableMandatoryDrop {
		idxBits := bitCountFor(uint64(n))
		mandatory = int(decide(idxBits) % uint64(n))
	}

	candidate := original.CloneEmpty(uint64(len(original.RawBytes())), original.Limit(), n)
	var dstOffset uint64
	newRequests := make([]uint32, 0, n)
	anyDropped := false

	for i, width := range requests {
		srcOffset := original.RequestOffset(i)

		if width > 64 {
			// A wide request picked by the mandatory index or by its own
			// threshold draw loses a random half-width sub-window instead of
			// the whole thing, since a single ReadAt/WriteAt cannot move more
			// than 64 bits at a time. When the window would run past the end
			// of the request, or the request is not picked, it is copied
			// whole (dropAt == width skips nothing).
			half := width / 2
			if half == 0 {
				half = 1
			}
			keepWidth := width
			dropAt := width
			if i == mandatory || decide(dropBitsWidth) <= dropThreshold {
				at := uint32(decide(bitCountFor(uint64(width))) % uint64(width))
				if at+half <= width {
					dropAt, keepWidth = at, width-half
					anyDropped = true
				}
			}
			copyWideBits(candidate, dstOffset, original, srcOffset, keepWidth, dropAt, half)
			dstOffset += uint64(keepWidth)
			newRequests = append(newRequests, keepWidth)
			continue
		}

		if i == mandatory {
			anyDropped = true
			continue
		}

		draw := decide(dropBitsWidth)
		if draw <= dropThreshold {
			anyDropped = true
			continue
		}

		v := original.ReadAt(srcOffset, uint(width))
		candidate.WriteAt(dstOffset, uint(width), v)
		dstOffset += uint64(width)
		newRequests = append(newRequests, width)
	}

	candidate.SetBitsFilled(dstOffset)
	candidate.SetConsumed(dstOffset)
	candidate.SetRequests(newRequests)
	if candidate.Limit() == 0 || candidate.Limit() > dstOffset {
		candidate.SetLimit(dstOffset)
	}
	model.NoteAttempt(ActionDrop, anyDropped)
	return candidate
}

// copyWideBits copies a width-bit field from src (at srcOffset) to dst (at
// dstOffset), skipping the [dropAt, dropAt+dropWidth) sub-window — used by
// dropPass for requests over 64 bits, and leaves the surviving bits packed
// contiguously.
func copyWideBits(dst *bitpool.Pool, dstOffset uint64, src *bitpool.Pool, srcOffset uint64, keepWidth uint32, dropAt, dropWidth uint32) {
	var written uint32
	var srcBit uint32
	for written < keepWidth {
		if srcBit == dropAt {
			srcBit += dropWidth
			continue
		}
		chunk := uint32(64)
		if remain := keepWidth - written; remain < chunk {
			chunk = remain
		}
		if dropAt > srcBit && dropAt-srcBit < chunk {
			chunk = dropAt - srcBit
		}
		v := src.ReadAt(srcOffset+uint64(srcBit), uint(chunk))
		dst.WriteAt(dstOffset+uint64(written), uint(chunk), v)
		written += chunk
		srcBit += chunk
	}
}

// mutationPass clones original's bits verbatim, then applies up to
// 10*changeBudget weighted mutations to randomly chosen requests, where
// changeBudget = popcount(random maxChanges bits) + 1. The candidate's
// Limit is tightened afterward to half the unconsumed tail, so replay
// cannot expand past what was actually exercised.
func mutationPass(original *bitpool.Pool, decide func(n uint) uint64, model *Model) *bitpool.Pool {
	requests := append([]uint32(nil), original.Requests()...)
	n := len(requests)

	raw := original.RawBytes()
	candidate := original.CloneEmpty(uint64(len(raw)), original.Limit(), n)
	for i := 0; i < len(raw); i += 8 {
		end := i + 8
		if end > len(raw) {
			end = len(raw)
		}
		var word uint64
		for j := end - 1; j >= i; j-- {
			word = (word << 8) | uint64(raw[j])
		}
		candidate.WriteAt(uint64(i)*8, 64, word)
	}
	candidate.SetBitsFilled(original.BitsFilled())
	candidate.SetConsumed(original.Consumed())
	candidate.SetRequests(requests)
	candidate.BuildIndex()

	maxChanges := uint(minMaxChanges)
	for (uint64(1) << maxChanges) < uint64(n) {
		maxChanges++
	}
	changeBudget := bits.OnesCount64(decide(maxChanges)) + 1
	allNarrow := true
	for _, w := range requests {
		if w > 64 {
			allNarrow = false
			break
		}
	}
	if allNarrow && changeBudget > n {
		changeBudget = n
	}

	attempts := 10 * changeBudget
	applied := 0
	idxBits := bitCountFor(uint64(n))
	for attempt := 0; attempt < attempts && applied < changeBudget; attempt++ {
		idx := int(decide(idxBits) % uint64(n))
		action := model.GetWeightedMutation(decide)
		changed := applyMutation(candidate, idx, requests, action, decide)
		if changed {
			applied++
		}
		model.NoteAttempt(action, changed)
	}

	tail := candidate.BitsFilled() - candidate.Consumed()
	candidate.SetLimit(candidate.Consumed() + tail/2)
	return candidate
}

// applyMutation applies action to the bits of request idx in-place on pool,
// using pool's cumulative index (already built by the caller). Returns
// whether the bits actually changed.
func applyMutation(pool *bitpool.Pool, idx int, requests []uint32, action Action, decide func(n uint) uint64) bool {
	width := requests[idx]
	offset := pool.RequestOffset(idx)

	switch action {
	case ActionShift:
		return applyShift(pool, offset, width, decide)
	case ActionMask:
		return applyMask(pool, offset, width, decide)
	case ActionSwap:
		return applySwap(pool, idx, requests, decide)
	case ActionSub:
		return applySub(pool, offset, width, decide)
	default:
		return false
	}
}

func applyShift(pool *bitpool.Pool, offset uint64, width uint32, decide func(n uint) uint64) bool {
	if width > 64 {
		width = 64 // shift only ever touches the low word of a wide request
	}
	amount := uint(1 + decide(2)%shiftRange)
	v := pool.ReadAt(offset, uint(width))
	nv := v >> amount
	if nv == v {
		return false
	}
	pool.WriteAt(offset, uint(width), nv)
	return true
}

func applyMask(pool *bitpool.Pool, offset uint64, width uint32, decide func(n uint) uint64) bool {
	if width > 64 {
		width = 64
	}
	full := mask64(uint(width))
	m := (decide(uint(width)) | decide(uint(width))) & full
	if m == full {
		bit := decide(uint(width)) % uint64(width)
		m &^= 1 << bit
	}
	v := pool.ReadAt(offset, uint(width))
	nv := v & m
	if nv == v {
		return false
	}
	pool.WriteAt(offset, uint(width), nv)
	return true
}

func applySub(pool *bitpool.Pool, offset uint64, width uint32, decide func(n uint) uint64) bool {
	if width > 64 {
		width = 64
	}
	v := pool.ReadAt(offset, uint(width))
	if v == 0 {
		return false
	}
	sub := decide(uint(width))
	delta := sub % v
	if delta == 0 {
		delta = 1
	}
	nv := v - delta
	pool.WriteAt(offset, uint(width), nv)
	return true
}

// applySwap exchanges the bits of request idx with the next later request
// of the same width, provided the later value is strictly less (enforcing
// lexicographic progress); it never swaps a wide (>64 bit) request, which
// the spec instead handles by swapping sub-windows within a single
// request — a refinement left for a future pass.
func applySwap(pool *bitpool.Pool, idx int, requests []uint32, decide func(n uint) uint64) bool {
	width := requests[idx]
	if width > 64 {
		return false
	}
	for j := idx + 1; j < len(requests); j++ {
		if requests[j] != width {
			continue
		}
		offA := pool.RequestOffset(idx)
		offB := pool.RequestOffset(j)
		a := pool.ReadAt(offA, uint(width))
		b := pool.ReadAt(offB, uint(width))
		if b >= a {
			return false
		}
		pool.WriteAt(offA, uint(width), b)
		pool.WriteAt(offB, uint(width), a)
		return true
	}
	return false
}

func mask64(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}
