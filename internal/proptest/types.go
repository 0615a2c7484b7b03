// Package proptest implements the trial runner, shrink driver, and property
// dispatch described in spec §4.5-§4.7: config validation, seed scheduling,
// argument generation (direct or autoshrink-backed), bloom-filtered
// duplicate detection, direct or forked property evaluation, and a
// breadth-first greedy shrink loop.
package proptest

import (
	"errors"
	"io"

	"github.com/orizon-lang/proptest/internal/autoshrink"
	"github.com/orizon-lang/proptest/internal/bitstream"
)

// ErrAllocSkip is returned by an Alloc callback to request that the current
// trial be skipped (counted as a skip, not a failure) without treating it
// as an error.
var ErrAllocSkip = errors.New("proptest: alloc requested skip")

// ShrinkOutcome reports what a user shrink callback (or the autoshrink
// engine) did with one tactic.
type ShrinkOutcome int

const (
	// ShrinkOK means a candidate was produced and should be tried.
	ShrinkOK ShrinkOutcome = iota
	// ShrinkDeadEnd means this tactic produced nothing useful; try the next.
	ShrinkDeadEnd
	// ShrinkNoMoreTactics means every tactic for this argument is exhausted.
	ShrinkNoMoreTactics
)

// AutoshrinkConfig mirrors the type descriptor's autoshrink-config capsule
// (spec §3): enable, initial pool size, per-pool consumption limit,
// trailing-zero handling, and the max-failed-shrinks ceiling. The engine
// does not read ConsumptionLimitBits: generation-mode pools are drawn from
// without a limit. There is no print-mode setting.
type AutoshrinkConfig struct {
	Enable              bool
	InitialPoolBits      uint64
	ConsumptionLimitBits uint64
	LeaveTrailingZeros   bool
	MaxFailedShrinks     uint32
}

func (c AutoshrinkConfig) toEngineConfig() autoshrink.Config {
	return autoshrink.Config{
		MaxFailedShrinks:   c.MaxFailedShrinks,
		LeaveTrailingZeros: c.LeaveTrailingZeros,
	}
}

// TypeInfo is the per-argument capability set described in spec §3: alloc
// is required, everything else is optional. A descriptor must not set both
// Shrink and Autoshrink.Enable — validate (called by the Run, Generate and
// RegisterFork functions) rejects that.
type TypeInfo[T any] struct {
	// Alloc draws bits from src to build one instance. Returning
	// ErrAllocSkip skips the trial; any other error is fatal.
	Alloc func(src *bitstream.Source) (T, error)

	// Free releases an instance, if the type needs it.
	Free func(v T)

	// Hash returns a deterministic digest of v, for bloom deduplication.
	// If nil and Autoshrink is enabled, the pool's consumed-bits hash is
	// used instead; if nil and Autoshrink is disabled, this argument makes
	// the whole run non-hashable, so the bloom filter is not allocated.
	Hash func(v T) uint64

	// Print renders v for failure reports.
	Print func(w io.Writer, v T)

	// Shrink is a user-supplied shrinker. Mutually exclusive with
	// Autoshrink.Enable.
	Shrink func(v T, tactic uint32) (T, ShrinkOutcome, error)

	// Autoshrink enables the bit-pool mutation engine in place of Shrink.
	Autoshrink AutoshrinkConfig
}

// validate checks the invariant that a descriptor supplies at most one of
// Shrink or Autoshrink.Enable, and that Alloc is present.
func (ti TypeInfo[T]) validate() error {
	if ti.Alloc == nil {
		return errors.New("type descriptor missing Alloc")
	}
	if ti.Shrink != nil && ti.Autoshrink.Enable {
		return errors.New("type descriptor sets both Shrink and Autoshrink")
	}
	return nil
}

// hashable reports whether this argument contributes to an all-hashable
// run (spec §4.5: all_hashable = every descriptor has Hash or Autoshrink).
func (ti TypeInfo[T]) hashable() bool {
	return ti.Hash != nil || ti.Autoshrink.Enable
}
