package proptest

import (
	"io"

	protoerrors "github.com/orizon-lang/proptest/internal/errors"
	"github.com/orizon-lang/proptest/internal/fork"
	"github.com/orizon-lang/proptest/internal/xrand"
)

// RegisterFork1 registers a 1-ary property with internal/fork under key,
// so that a re-exec'd fork-mode child can find and re-evaluate it purely
// from a seed. Call this (or RegisterFork2 for a 2-ary property; no other
// arity has a registration helper) at program startup, before fork.MaybeRunChild — see
// internal/fork's package doc. Pass the same key as RunConfig.Fork.Key
// when calling Run1 for this property.
func RegisterFork1[A any](key string, a1 TypeInfo[A], prop func(A) bool) error {
	if err := a1.validate(); err != nil {
		return err
	}
	fork.Register(key, func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		if t1.generate(prng) != nil {
			return false
		}
		defer t1.free()
		return prop(t1.cur)
	})
	return nil
}

// RegisterFork2 is RegisterFork1 for a 2-ary property.
func RegisterFork2[A, B any](key string, a1 TypeInfo[A], a2 TypeInfo[B], prop func(A, B) bool) error {
	if err := a1.validate(); err != nil {
		return err
	}
	if err := a2.validate(); err != nil {
		return err
	}
	fork.Register(key, func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		if t1.generate(prng) != nil || t2.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		return prop(t1.cur, t2.cur)
	})
	return nil
}

// GenerateResult is the outcome of a single-shot Generate call (spec §6).
type GenerateResult int

const (
	GenerateOk GenerateResult = iota
	GenerateSkip
	GenerateErrorAlloc
	// GenerateErrorMemory mirrors RunErrorMemory (spec §6's enumerated
	// GenerateResult set): reserved for an allocation failure in the
	// engine's own pool/hash bookkeeping, as opposed to the user's Alloc
	// callback returning an error. Go's allocator reports memory
	// exhaustion by panicking rather than by an error value, so nothing
	// in this engine currently produces it.
	GenerateErrorMemory
	GenerateErrorBadArgs
)

// Generate reproduces a single argument from seed without running any
// property: alloc, print to w, free. This is the regression-reproduction
// entry point spec §6 names alongside run — given a FailingSeed from a
// prior Report, it lets a caller render the same input again without
// re-running the whole trial loop (spec §5 SUPPLEMENTED FEATURES: the
// original's single-known-bad-seed replay mode).
func Generate[A any](w io.Writer, seed uint64, a1 TypeInfo[A]) GenerateResult {
	if err := a1.validate(); err != nil {
		return GenerateErrorBadArgs
	}
	prng := xrand.New(seed)
	t1 := newArgument(0, a1)
	if err := t1.generate(prng); err != nil {
		if err == ErrAllocSkip {
			return GenerateSkip
		}
		return GenerateErrorAlloc
	}
	defer t1.free()
	io.WriteString(w, t1.print())
	return GenerateOk
}

func badArgsReport(reason string) Report {
	return Report{Result: RunErrorBadArgs, Err: protoerrors.BadArgs(reason, nil)}
}

func printAll(slots []slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.print()
	}
	return out
}

// Run1 runs prop against cfg.Trials generated instances of a1, shrinking
// and reporting a minimal failing case on failure (spec §4.5-§4.6).
func Run1[A any](cfg RunConfig, a1 TypeInfo[A], prop func(A) bool) Report {
	if err := a1.validate(); err != nil {
		return badArgsReport(err.Error())
	}
	s1 := newArgument(0, a1)
	slots := []slot{s1}

	callProperty := func() bool { return prop(s1.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		if t1.generate(prng) != nil {
			return false
		}
		defer t1.free()
		return prop(t1.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}

// Run2 runs prop against cfg.Trials generated (a1, a2) pairs.
func Run2[A, B any](cfg RunConfig, a1 TypeInfo[A], a2 TypeInfo[B], prop func(A, B) bool) Report {
	if err := a1.validate(); err != nil {
		return badArgsReport(err.Error())
	}
	if err := a2.validate(); err != nil {
		return badArgsReport(err.Error())
	}
	s1 := newArgument(0, a1)
	s2 := newArgument(1, a2)
	slots := []slot{s1, s2}

	callProperty := func() bool { return prop(s1.cur, s2.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		if t1.generate(prng) != nil || t2.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		return prop(t1.cur, t2.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}

// Run3 runs prop against cfg.Trials generated (a1, a2, a3) tuples.
func Run3[A, B, C any](cfg RunConfig, a1 TypeInfo[A], a2 TypeInfo[B], a3 TypeInfo[C], prop func(A, B, C) bool) Report {
	if err := a1.validate(); err != nil {
		return badArgsReport(err.Error())
	}
	if err := a2.validate(); err != nil {
		return badArgsReport(err.Error())
	}
	if err := a3.validate(); err != nil {
		return badArgsReport(err.Error())
	}
	s1 := newArgument(0, a1)
	s2 := newArgument(1, a2)
	s3 := newArgument(2, a3)
	slots := []slot{s1, s2, s3}

	callProperty := func() bool { return prop(s1.cur, s2.cur, s3.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		t3 := newArgument(2, a3)
		if t1.generate(prng) != nil || t2.generate(prng) != nil || t3.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		defer t3.free()
		return prop(t1.cur, t2.cur, t3.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}

// Run4 runs prop against cfg.Trials generated 4-tuples.
func Run4[A, B, C, D any](cfg RunConfig, a1 TypeInfo[A], a2 TypeInfo[B], a3 TypeInfo[C], a4 TypeInfo[D], prop func(A, B, C, D) bool) Report {
	for _, err := range []error{a1.validate(), a2.validate(), a3.validate(), a4.validate()} {
		if err != nil {
			return badArgsReport(err.Error())
		}
	}
	s1 := newArgument(0, a1)
	s2 := newArgument(1, a2)
	s3 := newArgument(2, a3)
	s4 := newArgument(3, a4)
	slots := []slot{s1, s2, s3, s4}

	callProperty := func() bool { return prop(s1.cur, s2.cur, s3.cur, s4.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		t3 := newArgument(2, a3)
		t4 := newArgument(3, a4)
		if t1.generate(prng) != nil || t2.generate(prng) != nil || t3.generate(prng) != nil || t4.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		defer t3.free()
		defer t4.free()
		return prop(t1.cur, t2.cur, t3.cur, t4.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}

// Run5 runs prop against cfg.Trials generated 5-tuples.
func Run5[A, B, C, D, E any](cfg RunConfig, a1 TypeInfo[A], a2 TypeInfo[B], a3 TypeInfo[C], a4 TypeInfo[D], a5 TypeInfo[E], prop func(A, B, C, D, E) bool) Report {
	for _, err := range []error{a1.validate(), a2.validate(), a3.validate(), a4.validate(), a5.validate()} {
		if err != nil {
			return badArgsReport(err.Error())
		}
	}
	s1 := newArgument(0, a1)
	s2 := newArgument(1, a2)
	s3 := newArgument(2, a3)
	s4 := newArgument(3, a4)
	s5 := newArgument(4, a5)
	slots := []slot{s1, s2, s3, s4, s5}

	callProperty := func() bool { return prop(s1.cur, s2.cur, s3.cur, s4.cur, s5.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		t3 := newArgument(2, a3)
		t4 := newArgument(3, a4)
		t5 := newArgument(4, a5)
		if t1.generate(prng) != nil || t2.generate(prng) != nil || t3.generate(prng) != nil || t4.generate(prng) != nil || t5.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		defer t3.free()
		defer t4.free()
		defer t5.free()
		return prop(t1.cur, t2.cur, t3.cur, t4.cur, t5.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}

// Run6 runs prop against cfg.Trials generated 6-tuples.
func Run6[A, B, C, D, E, F any](cfg RunConfig, a1 TypeInfo[A], a2 TypeInfo[B], a3 TypeInfo[C], a4 TypeInfo[D], a5 TypeInfo[E], a6 TypeInfo[F], prop func(A, B, C, D, E, F) bool) Report {
	for _, err := range []error{a1.validate(), a2.validate(), a3.validate(), a4.validate(), a5.validate(), a6.validate()} {
		if err != nil {
			return badArgsReport(err.Error())
		}
	}
	s1 := newArgument(0, a1)
	s2 := newArgument(1, a2)
	s3 := newArgument(2, a3)
	s4 := newArgument(3, a4)
	s5 := newArgument(4, a5)
	s6 := newArgument(5, a6)
	slots := []slot{s1, s2, s3, s4, s5, s6}

	callProperty := func() bool { return prop(s1.cur, s2.cur, s3.cur, s4.cur, s5.cur, s6.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		t3 := newArgument(2, a3)
		t4 := newArgument(3, a4)
		t5 := newArgument(4, a5)
		t6 := newArgument(5, a6)
		if t1.generate(prng) != nil || t2.generate(prng) != nil || t3.generate(prng) != nil || t4.generate(prng) != nil || t5.generate(prng) != nil || t6.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		defer t3.free()
		defer t4.free()
		defer t5.free()
		defer t6.free()
		return prop(t1.cur, t2.cur, t3.cur, t4.cur, t5.cur, t6.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}

// Run7 runs prop against cfg.Trials generated 7-tuples — the highest
// arity the reference engine supports (spec §3).
func Run7[A, B, C, D, E, F, G any](cfg RunConfig, a1 TypeInfo[A], a2 TypeInfo[B], a3 TypeInfo[C], a4 TypeInfo[D], a5 TypeInfo[E], a6 TypeInfo[F], a7 TypeInfo[G], prop func(A, B, C, D, E, F, G) bool) Report {
	for _, err := range []error{a1.validate(), a2.validate(), a3.validate(), a4.validate(), a5.validate(), a6.validate(), a7.validate()} {
		if err != nil {
			return badArgsReport(err.Error())
		}
	}
	s1 := newArgument(0, a1)
	s2 := newArgument(1, a2)
	s3 := newArgument(2, a3)
	s4 := newArgument(3, a4)
	s5 := newArgument(4, a5)
	s6 := newArgument(5, a6)
	s7 := newArgument(6, a7)
	slots := []slot{s1, s2, s3, s4, s5, s6, s7}

	callProperty := func() bool { return prop(s1.cur, s2.cur, s3.cur, s4.cur, s5.cur, s6.cur, s7.cur) }
	regen := func(seed uint64) bool {
		prng := xrand.New(seed)
		t1 := newArgument(0, a1)
		t2 := newArgument(1, a2)
		t3 := newArgument(2, a3)
		t4 := newArgument(3, a4)
		t5 := newArgument(4, a5)
		t6 := newArgument(5, a6)
		t7 := newArgument(6, a7)
		if t1.generate(prng) != nil || t2.generate(prng) != nil || t3.generate(prng) != nil || t4.generate(prng) != nil || t5.generate(prng) != nil || t6.generate(prng) != nil || t7.generate(prng) != nil {
			return false
		}
		defer t1.free()
		defer t2.free()
		defer t3.free()
		defer t4.free()
		defer t5.free()
		defer t6.free()
		defer t7.free()
		return prop(t1.cur, t2.cur, t3.cur, t4.cur, t5.cur, t6.cur, t7.cur)
	}

	return runCore(cfg, slots, callProperty, regen, func() []string { return printAll(slots) })
}
