package autoshrink

import (
	"github.com/orizon-lang/proptest/internal/bitpool"
	"github.com/orizon-lang/proptest/internal/bitstream"
)

// Env is the per-argument autoshrink environment described in spec §3:
// it owns the bit pool backing one argument's generation and the adaptive
// model steering that argument's shrink tactics.
type Env struct {
	ArgIndex int
	Config   Config
	Pool     *bitpool.Pool
	Model    *Model
}

// DefaultPoolBits is the initial byte-doubled bit capacity a fresh
// generation pool is allocated with when the type's autoshrink-config
// leaves InitialPoolBits at zero.
const DefaultPoolBits = 4096

// NewEnv allocates a fresh env for argument argIndex. cfg.MaxFailedShrinks
// of zero is resolved to DefaultMaxFailedShrinks lazily by Shrink.
func NewEnv(argIndex int, cfg Config, initialPoolBits uint64) *Env {
	if initialPoolBits == 0 {
		initialPoolBits = DefaultPoolBits
	}
	return &Env{
		ArgIndex: argIndex,
		Config:   cfg,
		Pool:     bitpool.New(initialPoolBits, 0, 64),
		Model:    NewModel(),
	}
}

// Generate attaches Env's pool to source in generation mode, runs alloc,
// and detaches — the monotonicity contract (spec §4.4) requires alloc to
// read only through source so that a mutated pool with smaller values
// yields a simpler instance.
func Generate[T any](e *Env, source *bitstream.Source, alloc func(*bitstream.Source) (T, error)) (T, error) {
	e.Pool.SetShrinking(false)
	source.Attach(e.Pool)
	defer source.Detach()
	return alloc(source)
}

// Replay attaches a candidate pool in shrink mode and runs alloc against
// it, for use after Shrink produces a candidate.
func Replay[T any](candidate *bitpool.Pool, source *bitstream.Source, alloc func(*bitstream.Source) (T, error)) (T, error) {
	candidate.SetShrinking(true)
	source.Attach(candidate)
	defer source.Detach()
	return alloc(source)
}

// HashInstance hashes the consumed prefix of pool, for bloom deduplication
// of autoshrink arguments that have no user-supplied hash callback (spec
// §4.4).
func HashInstance(pool *bitpool.Pool) uint64 {
	return pool.HashConsumed()
}
