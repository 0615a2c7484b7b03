package proptest

import "time"

// ForkPolicy controls whether a trial's property call runs in a forked
// child process (spec §4.7).
type ForkPolicy struct {
	Enable bool

	// Key names a property already registered with internal/fork via
	// RegisterFork1 or RegisterFork2, called at startup before
	// fork.MaybeRunChild (see internal/fork's package doc). When Key is
	// set, Run uses it directly for Dispatch instead of self-registering
	// a throwaway key, since a throwaway key generated inside Run would
	// not exist yet in a freshly re-exec'd child's registry. Leave Key
	// empty only for single-process testing of Fork's plumbing; real
	// fork-mode dispatch across a process boundary requires it.
	Key string

	// Timeout bounds how long the parent waits for the child's result
	// pipe to become readable. Zero means wait indefinitely.
	Timeout time.Duration

	// Signal is delivered first on timeout; defaults to SIGTERM (the
	// fork package supplies the default when Signal is the zero value).
	Signal int

	// ExitGrace bounds how long the parent waits for the child to exit
	// voluntarily after Signal before escalating to SIGKILL. Defaults to
	// 100ms when zero.
	ExitGrace time.Duration
}

// DefaultRunSeed is substituted for RunConfig.Seed when the caller leaves
// it at zero, per spec §4.5.
const DefaultRunSeed uint64 = 0xa13ae1a91ca0a2a1

// DefaultTrials is the trial count used when RunConfig.Trials is zero.
const DefaultTrials = 100

// RunConfig is the immutable configuration for one Run call (spec §3).
type RunConfig struct {
	// Name optionally labels the run for logging/reporting; the engine
	// itself never inspects it.
	Name        string
	Trials      int
	Seed        uint64
	AlwaysSeeds []uint64
	Fork        ForkPolicy
	Hooks       Hooks
}

func (c RunConfig) resolved() RunConfig {
	if c.Trials <= 0 {
		c.Trials = DefaultTrials
	}
	if c.Seed == 0 {
		c.Seed = DefaultRunSeed
	}
	return c
}

// seedFor returns the seed trial i should use: an always-run seed while
// i < len(AlwaysSeeds), the configured base seed at i == len(AlwaysSeeds),
// and otherwise the caller-supplied PRNG-chained seed from the previous
// trial's end (spec §4.5).
func (c RunConfig) seedFor(i int, prevChained uint64) uint64 {
	if i < len(c.AlwaysSeeds) {
		return c.AlwaysSeeds[i]
	}
	if i == len(c.AlwaysSeeds) {
		return c.Seed
	}
	return prevChained
}
