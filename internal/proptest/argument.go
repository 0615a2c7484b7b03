package proptest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/orizon-lang/proptest/internal/autoshrink"
	"github.com/orizon-lang/proptest/internal/bitpool"
	"github.com/orizon-lang/proptest/internal/bitstream"
)

// slot is the type-erased view of one argument that the trial runner and
// shrink driver operate on; argument[T] is its only implementation. Each
// arity-specific Run wrapper builds a []slot from its typed TypeInfo[T]
// values but keeps the concrete *argument[T] around too, so it can read
// back the current typed value for the property call.
type slot interface {
	generate(prng bitstream.PRNG) error
	hashable() bool
	hash() uint64
	free()
	attemptShrink(tactic uint32, decide func(uint) uint64) (ShrinkOutcome, error)
	stageCandidate()
	commitCandidate()
	revertCandidate()
	print() string
}

// panicPRNG is handed to a replay bitstream.Source: a candidate pool is
// always in shrink mode during replay, so DrawShrink never calls back into
// the PRNG, and this should never actually be invoked.
type panicPRNG struct{}

func (panicPRNG) Uint64() uint64 {
	panic("proptest: replay source unexpectedly drew from the PRNG")
}

// argument is the generic per-type state backing one slot: its current
// committed value (and, if autoshrinking, the bit pool it was generated
// from), plus scratch fields for a shrink candidate under consideration.
type argument[T any] struct {
	index int
	ti    TypeInfo[T]

	cur     T
	curPool *bitpool.Pool
	model   *autoshrink.Model

	candidate     T
	candidatePool *bitpool.Pool

	saved     T
	savedPool *bitpool.Pool
}

func newArgument[T any](index int, ti TypeInfo[T]) *argument[T] {
	return &argument[T]{index: index, ti: ti}
}

func (a *argument[T]) generate(prng bitstream.PRNG) error {
	if a.ti.Autoshrink.Enable {
		env := autoshrink.NewEnv(a.index, a.ti.Autoshrink.toEngineConfig(), a.ti.Autoshrink.InitialPoolBits)
		src := bitstream.New(prng)
		v, err := autoshrink.Generate[T](env, src, a.ti.Alloc)
		if err != nil {
			return err
		}
		a.cur = v
		a.curPool = env.Pool
		a.model = env.Model
		return nil
	}
	src := bitstream.New(prng)
	v, err := a.ti.Alloc(src)
	if err != nil {
		return err
	}
	a.cur = v
	return nil
}

func (a *argument[T]) hashable() bool { return a.ti.hashable() }

func (a *argument[T]) hash() uint64 {
	if a.ti.Hash != nil {
		return a.ti.Hash(a.cur)
	}
	if a.ti.Autoshrink.Enable {
		return autoshrink.HashInstance(a.curPool)
	}
	return 0
}

func (a *argument[T]) free() {
	if a.ti.Free != nil {
		a.ti.Free(a.cur)
	}
}

// attemptShrink builds a.candidate (and a.candidatePool, for autoshrink)
// without touching a.cur. ShrinkDeadEnd/ShrinkNoMoreTactics leave no
// candidate to free.
func (a *argument[T]) attemptShrink(tactic uint32, decide func(uint) uint64) (ShrinkOutcome, error) {
	switch {
	case a.ti.Shrink != nil:
		cand, outcome, err := a.ti.Shrink(a.cur, tactic)
		if err != nil {
			return ShrinkNoMoreTactics, err
		}
		if outcome == ShrinkOK {
			a.candidate = cand
		}
		return outcome, nil

	case a.ti.Autoshrink.Enable:
		cfg := a.ti.Autoshrink.toEngineConfig()
		candPool, out := autoshrink.Shrink(a.curPool, a.model, decide, cfg, tactic)
		if out == autoshrink.OutcomeNoMoreTactics {
			return ShrinkNoMoreTactics, nil
		}
		src := bitstream.New(panicPRNG{})
		v, err := autoshrink.Replay[T](candPool, src, a.ti.Alloc)
		if err != nil {
			if errors.Is(err, ErrAllocSkip) {
				return ShrinkDeadEnd, nil
			}
			return ShrinkNoMoreTactics, err
		}
		a.candidate = v
		a.candidatePool = candPool
		// Post-generation model nudge (spec §4.4): building a viable
		// candidate at all counts as the attempted actions having done
		// something useful, ahead of knowing the candidate trial's result.
		a.model.NotifyTrialResult(3, true)
		return ShrinkOK, nil

	default:
		return ShrinkNoMoreTactics, nil
	}
}

func (a *argument[T]) stageCandidate() {
	a.saved, a.savedPool = a.cur, a.curPool
	a.cur, a.curPool = a.candidate, a.candidatePool
}

func (a *argument[T]) commitCandidate() {
	if a.ti.Free != nil {
		a.ti.Free(a.saved)
	}
	if a.model != nil {
		a.model.NotifyTrialResult(8, true)
	}
	a.clearScratch()
}

func (a *argument[T]) revertCandidate() {
	if a.ti.Free != nil {
		a.ti.Free(a.candidate)
	}
	if a.model != nil {
		a.model.NotifyTrialResult(8, false)
	}
	a.cur, a.curPool = a.saved, a.savedPool
	a.clearScratch()
}

func (a *argument[T]) print() string {
	if a.ti.Print == nil {
		return fmt.Sprintf("%+v", a.cur)
	}
	var buf bytes.Buffer
	a.ti.Print(&buf, a.cur)
	return buf.String()
}

func (a *argument[T]) clearScratch() {
	var zero T
	a.saved, a.savedPool = zero, nil
	a.candidate, a.candidatePool = zero, nil
}
