// Package typeinfo ships ready-made proptest.TypeInfo descriptors for the
// handful of Go primitive shapes almost every property needs, mirroring
// what theft_aux.c/theft_aux_builtin.c supply for the C reference engine
// and what the teacher's internal/testrunner/prop/generators.go supplies
// for its own rand.Rand-based generators. It is a convenience layer
// outside the core engine (spec.md §1 "Out of scope": built-in type
// descriptors) — internal/proptest never imports it.
package typeinfo

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/orizon-lang/proptest/internal/bitstream"
	"github.com/orizon-lang/proptest/internal/hash64"
	"github.com/orizon-lang/proptest/internal/proptest"
)

// autoshrinkDefault is the AutoshrinkConfig every builtin descriptor enables
// by default: there is no hand-written Shrink for these shapes, the bit
// pool mutation tactics do the job directly on the bits Alloc consumed.
var autoshrinkDefault = proptest.AutoshrinkConfig{
	Enable:          true,
	InitialPoolBits: 512,
}

// Bool returns a descriptor for bool, backed by a single bit.
func Bool() proptest.TypeInfo[bool] {
	return proptest.TypeInfo[bool]{
		Alloc: func(src *bitstream.Source) (bool, error) {
			v, err := src.Bits(1)
			return v == 1, err
		},
		Hash: func(v bool) uint64 {
			if v {
				return 1
			}
			return 0
		},
		Print:      func(w io.Writer, v bool) { fmt.Fprintf(w, "%v", v) },
		Autoshrink: autoshrinkDefault,
	}
}

// Byte returns a descriptor for byte.
func Byte() proptest.TypeInfo[byte] {
	return proptest.TypeInfo[byte]{
		Alloc: func(src *bitstream.Source) (byte, error) {
			v, err := src.Bits(8)
			return byte(v), err
		},
		Hash:       func(v byte) uint64 { return uint64(v) },
		Print:      func(w io.Writer, v byte) { fmt.Fprintf(w, "%#02x", v) },
		Autoshrink: autoshrinkDefault,
	}
}

// Uint64 returns a descriptor for the full uint64 range.
func Uint64() proptest.TypeInfo[uint64] {
	return proptest.TypeInfo[uint64]{
		Alloc: func(src *bitstream.Source) (uint64, error) {
			return src.Bits(64)
		},
		Hash:       func(v uint64) uint64 { return v },
		Print:      func(w io.Writer, v uint64) { fmt.Fprintf(w, "%d", v) },
		Autoshrink: autoshrinkDefault,
	}
}

// IntRange returns a descriptor for int values in [lo, hi] (inclusive).
// The draw width scales with the span, so a tight range shrinks in far
// fewer steps than drawing a full 64-bit word and reducing afterward —
// the same "draw only as many bits as the range needs" idea as
// theft_aux_builtin.c's bounded integer builder.
func IntRange(lo, hi int) proptest.TypeInfo[int] {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := uint64(hi-lo) + 1
	width := bitWidth(span)
	return proptest.TypeInfo[int]{
		Alloc: func(src *bitstream.Source) (int, error) {
			raw, err := src.Bits(width)
			if err != nil {
				return 0, err
			}
			return lo + int(raw%span), nil
		},
		Hash:       func(v int) uint64 { return uint64(v - lo) },
		Print:      func(w io.Writer, v int) { fmt.Fprintf(w, "%d", v) },
		Autoshrink: autoshrinkDefault,
	}
}

func bitWidth(span uint64) uint {
	w := uint(1)
	for (uint64(1) << w) < span {
		w++
	}
	if w > 64 {
		w = 64
	}
	return w
}

// Slice returns a descriptor for []T built from elem, with length capped at
// maxLen. Length and each element are drawn from the same bit pool, so
// DROP/SHIFT mutations on the pool naturally shrink both the length and the
// elements (spec.md §4.4) without a hand-written Shrink — the adapted
// analogue of ShrinkSlice in internal/testrunner/prop/generators.go, which
// shrank by recursively halving a materialized slice instead.
func Slice[T any](elem proptest.TypeInfo[T], maxLen int) proptest.TypeInfo[[]T] {
	lenWidth := bitWidth(uint64(maxLen) + 1)
	return proptest.TypeInfo[[]T]{
		Alloc: func(src *bitstream.Source) ([]T, error) {
			raw, err := src.Bits(lenWidth)
			if err != nil {
				return nil, err
			}
			n := int(raw % uint64(maxLen+1))
			out := make([]T, n)
			for i := 0; i < n; i++ {
				v, err := elem.Alloc(src)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		},
		Hash: func(v []T) uint64 {
			h := hash64.Init()
			for _, x := range v {
				if elem.Hash != nil {
					var b [8]byte
					binary.LittleEndian.PutUint64(b[:], elem.Hash(x))
					h.Sink(b[:])
				}
			}
			return h.Done()
		},
		Print: func(w io.Writer, v []T) {
			fmt.Fprint(w, "[")
			for i, x := range v {
				if i > 0 {
					fmt.Fprint(w, " ")
				}
				if elem.Print != nil {
					elem.Print(w, x)
				} else {
					fmt.Fprintf(w, "%+v", x)
				}
			}
			fmt.Fprint(w, "]")
		},
		Autoshrink: autoshrinkDefault,
	}
}

// String returns a descriptor for printable-ASCII strings up to maxLen
// bytes, the same shape theft_aux_builtin.c's bounded-string builder
// produces.
func String(maxLen int) proptest.TypeInfo[string] {
	bytesTI := Byte()
	sliceTI := Slice(bytesTI, maxLen)
	return proptest.TypeInfo[string]{
		Alloc: func(src *bitstream.Source) (string, error) {
			raw, err := sliceTI.Alloc(src)
			if err != nil {
				return "", err
			}
			out := make([]byte, len(raw))
			for i, b := range raw {
				out[i] = ' ' + b%95 // printable ASCII 0x20..0x7e
			}
			return string(out), nil
		},
		Hash:       func(v string) uint64 { return hash64.OnePass([]byte(v)) },
		Print:      func(w io.Writer, v string) { fmt.Fprintf(w, "%q", v) },
		Autoshrink: autoshrinkDefault,
	}
}
