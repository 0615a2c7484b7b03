package bitstream

import (
	"testing"

	"github.com/orizon-lang/proptest/internal/bitpool"
	"github.com/orizon-lang/proptest/internal/xrand"
)

func TestDirectBitsDecompositionInvariant(t *testing.T) {
	widths := [][]uint{
		{64},
		{32, 32},
		{11, 13, 15, 17, 8},
		{1, 1, 1, 1, 1, 1, 1, 1},
		{63, 1},
	}
	for _, ws := range widths {
		a := New(xrand.New(42))
		b := New(xrand.New(42))

		var total uint
		var gotA []uint64
		for _, w := range ws {
			v, err := a.Bits(w)
			if err != nil {
				t.Fatalf("a.Bits(%d): %v", w, err)
			}
			gotA = append(gotA, v)
			total += w
		}
		// Same seed, same total width drawn in a single call must equal the
		// decomposed draws packed back together, first draw lowest.
		want, err := b.Bits(total)
		if err != nil {
			t.Fatalf("b.Bits(%d): %v", total, err)
		}
		var packed uint64
		var shift uint
		for i, w := range ws {
			packed |= gotA[i] << shift
			shift += w
		}
		if packed != want {
			t.Fatalf("widths %v: packed draws %#x != single draw %#x", ws, packed, want)
		}
	}
}

func TestBitsRejectsOutOfRangeWidth(t *testing.T) {
	s := New(xrand.New(1))
	if _, err := s.Bits(0); err != ErrInvalidArgument {
		t.Fatalf("width 0: got %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Bits(65); err != ErrInvalidArgument {
		t.Fatalf("width 65: got %v, want ErrInvalidArgument", err)
	}
}

func TestBulkEquivalentToRepeatedBits(t *testing.T) {
	a := New(xrand.New(7))
	b := New(xrand.New(7))

	out := make([]uint64, 3)
	if err := a.Bulk(130, out); err != nil {
		t.Fatalf("Bulk: %v", err)
	}

	var want []uint64
	for _, w := range []uint{64, 64, 2} {
		v, err := b.Bits(w)
		if err != nil {
			t.Fatalf("Bits(%d): %v", w, err)
		}
		want = append(want, v)
	}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("bulk word %d = %#x, want %#x", i, out[i], w)
		}
	}
}

func TestAttachTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double Attach")
		}
	}()
	s := New(xrand.New(1))
	s.Attach(bitpool.New(64, 0, 4))
	s.Attach(bitpool.New(64, 0, 4))
}

func TestAttachedDrawsFromPoolAndLogsRequest(t *testing.T) {
	s := New(xrand.New(99))
	p := bitpool.New(0, 0, 4)
	s.Attach(p)

	v1, err := s.Bits(20)
	if err != nil {
		t.Fatalf("Bits: %v", err)
	}
	if p.Consumed() != 20 {
		t.Fatalf("consumed = %d, want 20", p.Consumed())
	}
	reqs := p.Requests()
	if len(reqs) != 1 || reqs[0] != 20 {
		t.Fatalf("unexpected request log: %v", reqs)
	}

	out := make([]uint64, 2)
	if err := s.Bulk(100, out); err != nil {
		t.Fatalf("Bulk: %v", err)
	}
	reqs = p.Requests()
	if len(reqs) != 2 || reqs[1] != 100 {
		t.Fatalf("bulk draw must log as one entry sized to the full width: %v", reqs)
	}

	detached := s.Detach()
	if detached != p {
		t.Fatalf("Detach returned a different pool")
	}
	if s.Attached() {
		t.Fatalf("Attached should be false after Detach")
	}
	_ = v1
}

func TestShrinkModeReplaysFrozenPool(t *testing.T) {
	p := bitpool.New(64, 0, 4)
	p.WriteAt(0, 40, 0xABCDE12345&((1<<40)-1))
	p.SetBitsFilled(64)
	p.SetLimit(40)
	p.SetShrinking(true)

	s := New(xrand.New(1))
	s.Attach(p)

	v, err := s.Bits(40)
	if err != nil {
		t.Fatalf("Bits: %v", err)
	}
	if v != p.ReadAt(0, 40) {
		t.Fatalf("shrink-mode read mismatch")
	}
	if len(p.Requests()) != 0 {
		t.Fatalf("shrink-mode draws must not log requests")
	}
}
