package bitpool

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	p := New(128, 0, 4)
	p.WriteAt(0, 11, 0x5AB)
	p.WriteAt(11, 13, 0x1ABC)
	p.WriteAt(24, 15, 0x4321)

	if got := p.ReadAt(0, 11); got != 0x5AB {
		t.Fatalf("first field: got %#x want %#x", got, 0x5AB)
	}
	if got := p.ReadAt(11, 13); got != 0x1ABC {
		t.Fatalf("second field: got %#x want %#x", got, 0x1ABC)
	}
	if got := p.ReadAt(24, 15); got != 0x4321 {
		t.Fatalf("third field: got %#x want %#x", got, 0x4321)
	}
}

func TestBitPackingDecompositionInvariant(t *testing.T) {
	// Drawing n1, n2, ... bits via successive writes at increasing offsets
	// must equal the same total moved through a different decomposition
	// (one 64-bit word plus the remainder), bit for bit.
	p1 := New(256, 0, 8)
	widths := []uint{11, 13, 15, 17, 19}
	values := []uint64{0x3FF, 0x1FFF, 0x5A5A, 0x10101, 0x7FFFF & 0x5AAAA}
	var off uint64
	for i, w := range widths {
		p1.WriteAt(off, w, values[i])
		off += uint64(w)
	}

	total := uint(0)
	for _, w := range widths {
		total += w
	}
	p2 := New(256, 0, 8)
	p2.WriteAt(0, 64, p1.ReadAt(0, 64))
	p2.WriteAt(64, total-64, p1.ReadAt(64, total-64))

	off = 0
	for i, w := range widths {
		if got := p2.ReadAt(off, w); got != values[i] {
			t.Fatalf("decomposition mismatch at field %d: %#x != %#x", i, got, values[i])
		}
		off += uint64(w)
	}
}

func TestDrawGenerationModeRefillsAndLogs(t *testing.T) {
	p := New(0, 0, 4)
	var words []uint64 = []uint64{0x1111111111111111, 0x2222222222222222}
	i := 0
	source := func() uint64 {
		w := words[i%len(words)]
		i++
		return w
	}
	v1 := p.Draw(40, source)
	v2 := p.Draw(40, source)
	if p.Consumed() != 80 {
		t.Fatalf("consumed = %d, want 80", p.Consumed())
	}
	reqs := p.Requests()
	if len(reqs) != 2 || reqs[0] != 40 || reqs[1] != 40 {
		t.Fatalf("unexpected request log: %v", reqs)
	}
	var sum uint64
	for _, w := range reqs {
		sum += uint64(w)
	}
	if sum != p.Consumed() {
		t.Fatalf("sum(requests)=%d != consumed=%d", sum, p.Consumed())
	}
	if v1 == 0 && v2 == 0 {
		t.Fatalf("expected non-zero draws from non-zero source words")
	}
}

func TestDrawShrinkModeFreezesAndTruncates(t *testing.T) {
	p := New(64, 0, 4)
	p.WriteAt(0, 64, 0xFFFFFFFFFFFFFFFF)
	p.SetBitsFilled(64)
	p.SetLimit(40)
	p.SetShrinking(true)

	v := p.DrawShrink(64) // crosses limit: truncated to 40 available bits
	want := p.ReadAt(0, 40)
	if v != want {
		t.Fatalf("truncated draw = %#x, want %#x", v, want)
	}
	if len(p.Requests()) != 0 {
		t.Fatalf("shrink-mode draws must not append to the request log")
	}
	if p.Consumed() != 40 {
		t.Fatalf("consumed should clamp to limit: got %d", p.Consumed())
	}

	// Further draws past the limit yield zero forever.
	if v2 := p.DrawShrink(8); v2 != 0 {
		t.Fatalf("draw past limit should yield zero, got %#x", v2)
	}
}

func TestZeroWidthRequestIsNoOp(t *testing.T) {
	p := New(64, 0, 4)
	before := len(p.Requests())
	p.AppendRequest(0)
	if len(p.Requests()) != before {
		t.Fatalf("zero-width AppendRequest must be a no-op")
	}
	if v := p.ReadAt(0, 0); v != 0 {
		t.Fatalf("zero-width ReadAt must return 0, got %#x", v)
	}
}

func TestTruncateTrailingZeroBytes(t *testing.T) {
	p := New(64, 0, 4)
	p.WriteAt(0, 16, 0xBEEF)
	p.SetBitsFilled(64) // pretend the tail is all zero
	p.SetLimit(64)
	p.TruncateTrailingZeroBytes()
	if p.BitsFilled() != 16 {
		t.Fatalf("expected trailing zero truncation to 16 bits, got %d", p.BitsFilled())
	}
	if p.Limit() != 16 {
		t.Fatalf("expected limit clamped to 16, got %d", p.Limit())
	}
}

func TestHashConsumedDeterministic(t *testing.T) {
	p := New(64, 0, 4)
	p.WriteAt(0, 20, 0xABCDE)
	p.SetConsumed(20)

	q := New(64, 0, 4)
	q.WriteAt(0, 20, 0xABCDE)
	q.SetConsumed(20)

	if p.HashConsumed() != q.HashConsumed() {
		t.Fatalf("identical consumed prefixes should hash identically")
	}
}

func TestBuildIndexCumulativeOffsets(t *testing.T) {
	p := New(64, 0, 4)
	p.AppendRequest(11)
	p.AppendRequest(13)
	p.AppendRequest(15)
	p.BuildIndex()
	if p.RequestOffset(0) != 0 || p.RequestOffset(1) != 11 || p.RequestOffset(2) != 24 {
		t.Fatalf("unexpected cumulative offsets: %v", p.Index())
	}
}
