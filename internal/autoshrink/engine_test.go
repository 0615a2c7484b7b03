package autoshrink

import (
	"testing"

	"github.com/orizon-lang/proptest/internal/bitpool"
	"github.com/orizon-lang/proptest/internal/xrand"
)

func decisionSource(seed uint64) func(n uint) uint64 {
	prng := xrand.New(seed)
	var buf uint64
	var bufBits uint
	return func(n uint) uint64 {
		for bufBits < n {
			buf |= prng.Uint64() << bufBits
			bufBits += 64
		}
		mask := uint64(1)<<n - 1
		v := buf & mask
		buf >>= n
		bufBits -= n
		return v
	}
}

func buildPool(widths []uint32, values []uint64) *bitpool.Pool {
	p := bitpool.New(0, 0, len(widths))
	var off uint64
	for i, w := range widths {
		p.WriteAt(off, uint(w), values[i])
		off += uint64(w)
	}
	p.SetBitsFilled(off)
	p.SetConsumed(off)
	for _, w := range widths {
		p.AppendRequest(w)
	}
	return p
}

func TestShrinkReportsNoMoreTacticsAtCeiling(t *testing.T) {
	p := buildPool([]uint32{8, 8}, []uint64{1, 2})
	m := NewModel()
	_, outcome := Shrink(p, m, decisionSource(1), Config{MaxFailedShrinks: 3}, 3)
	if outcome != OutcomeNoMoreTactics {
		t.Fatalf("expected OutcomeNoMoreTactics at the ceiling")
	}
}

func TestShrinkEmptyPoolHasNoMoreTactics(t *testing.T) {
	p := bitpool.New(64, 0, 4)
	m := NewModel()
	_, outcome := Shrink(p, m, decisionSource(1), Config{}, 0)
	if outcome != OutcomeNoMoreTactics {
		t.Fatalf("expected OutcomeNoMoreTactics for a pool with no requests")
	}
}

func TestShrinkProducesSmallerOrEqualCandidate(t *testing.T) {
	p := buildPool([]uint32{16, 16, 16, 16}, []uint64{0xFFFF, 0xABCD, 0x1234, 0x0})
	m := NewModel()
	candidate, outcome := Shrink(p, m, decisionSource(42), Config{}, 0)
	if outcome != OutcomeCandidate {
		t.Fatalf("expected a candidate")
	}
	if candidate.Consumed() > p.Consumed() {
		t.Fatalf("candidate consumed %d should not exceed original %d", candidate.Consumed(), p.Consumed())
	}
}

func TestDropPassForcedAlwaysDropsOneRequest(t *testing.T) {
	p := buildPool([]uint32{8, 8, 8}, []uint64{1, 2, 3})
	m := NewModel()
	// Exercise dropPass directly with mandatory-drop enabled (the default),
	// after building the request index as Shrink does before calling it.
	p.BuildIndex()
	candidate := dropPass(p, decisionSource(5), m, Config{})
	if len(candidate.Requests()) >= len(p.Requests()) {
		t.Fatalf("mandatory drop should remove at least one request: got %d of %d", len(candidate.Requests()), len(p.Requests()))
	}
}

func TestMutationPassPreservesRequestCount(t *testing.T) {
	p := buildPool([]uint32{20, 20, 20}, []uint64{0xABCDE, 0x54321, 0x0FFFF})
	m := NewModel()
	candidate := mutationPass(p, decisionSource(7), m)
	if len(candidate.Requests()) != len(p.Requests()) {
		t.Fatalf("mutation must not change the request count: got %d want %d", len(candidate.Requests()), len(p.Requests()))
	}
}

func TestApplySubNeverIncreasesValue(t *testing.T) {
	p := buildPool([]uint32{16}, []uint64{100})
	p.BuildIndex()
	decide := decisionSource(3)
	before := p.ReadAt(p.RequestOffset(0), 16)
	applySub(p, p.RequestOffset(0), 16, decide)
	after := p.ReadAt(p.RequestOffset(0), 16)
	if after >= before {
		t.Fatalf("SUB should strictly decrease a nonzero value: before %d after %d", before, after)
	}
}

func TestApplySwapRequiresStrictProgress(t *testing.T) {
	requests := []uint32{16, 16}
	p := buildPool(requests, []uint64{5, 100})
	p.BuildIndex()
	decide := decisionSource(9)
	changed := applySwap(p, 0, requests, decide)
	if changed {
		t.Fatalf("swap should refuse when the later value is not strictly smaller")
	}

	requests2 := []uint32{16, 16}
	p2 := buildPool(requests2, []uint64{100, 5})
	p2.BuildIndex()
	changed2 := applySwap(p2, 0, requests2, decide)
	if !changed2 {
		t.Fatalf("swap should proceed when the later value is strictly smaller")
	}
}
