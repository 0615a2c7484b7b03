package proptest

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/orizon-lang/proptest/internal/bitstream"
	protoerrors "github.com/orizon-lang/proptest/internal/errors"
	orizonassert "github.com/orizon-lang/proptest/internal/testrunner/assert"
)

func int8TI() TypeInfo[int8] {
	return TypeInfo[int8]{
		Alloc: func(src *bitstream.Source) (int8, error) {
			v, err := src.Bits(8)
			return int8(v), err
		},
		Hash:       func(v int8) uint64 { return uint64(uint8(v)) },
		Print:      func(w io.Writer, v int8) { fmt.Fprintf(w, "%d", v) },
		Autoshrink: AutoshrinkConfig{Enable: true, InitialPoolBits: 64},
	}
}

// TestRun1ShrinksCounterexampleTowardZero exercises autoshrink end to end:
// any int8 over 10 fails, so Run1 must report FAIL with SuccessfulShrinks > 0
// and exactly one failing argument.
func TestRun1ShrinksCounterexampleTowardZero(t *testing.T) {
	ti := int8TI()
	report := Run1(RunConfig{Trials: 200, Seed: 7}, ti, func(v int8) bool { return v <= 10 })
	orizonassert.Equal(t, report.Result, RunFail)
	orizonassert.True(t, report.SuccessfulShrinks > 0, "expected autoshrink to make progress")
	orizonassert.Equal(t, len(report.FailingArgs), 1)
}

// TestRunShrinkPreHaltStopsOnlyThatArgument confirms Halt from shrink_pre
// ends shrinking cleanly (RunFail, not RunError) rather than aborting the
// whole run.
func TestRunShrinkPreHaltStopsOnlyThatArgument(t *testing.T) {
	ti := int8TI()
	hooks := Hooks{
		ShrinkPre: func(info ShrinkInfo) HookResponse {
			if info.ShrinkCount > 0 {
				return Halt
			}
			return Continue
		},
	}
	report := Run1(RunConfig{Trials: 50, Seed: 3, Hooks: hooks}, ti, func(v int8) bool { return v <= 10 })
	orizonassert.Equal(t, report.Result, RunFail)
}

// TestRunShrinkPreHookErrorBecomesRunError confirms shrink_pre returning
// HookError is fatal and surfaces as a HOOK-categorized RunError, not a
// downgraded RunFail.
func TestRunShrinkPreHookErrorBecomesRunError(t *testing.T) {
	ti := int8TI()
	hooks := Hooks{
		ShrinkPre: func(info ShrinkInfo) HookResponse { return HookError },
	}
	report := Run1(RunConfig{Trials: 50, Seed: 3, Hooks: hooks}, ti, func(v int8) bool { return v <= 10 })
	orizonassert.Equal(t, report.Result, RunError)
	orizonassert.Error(t, report.Err)
	orizonassert.ErrorCategory(t, report.Err, protoerrors.CategoryHook)
}

// TestRunShrinkTrialPostHookErrorBecomesRunError confirms a HookError from
// shrink_trial_post aborts the run as RunError rather than silently
// finishing as an ordinary RunFail.
func TestRunShrinkTrialPostHookErrorBecomesRunError(t *testing.T) {
	ti := int8TI()
	hooks := Hooks{
		ShrinkTrialPost: func(info ShrinkInfo, res RunTrialResult) HookResponse { return HookError },
	}
	report := Run1(RunConfig{Trials: 50, Seed: 3, Hooks: hooks}, ti, func(v int8) bool { return v <= 10 })
	orizonassert.Equal(t, report.Result, RunError)
	orizonassert.ErrorCategory(t, report.Err, protoerrors.CategoryHook)
}

// TestRunShrinkPostHookErrorBecomesRunError mirrors the shrink_trial_post
// case for shrink_post.
func TestRunShrinkPostHookErrorBecomesRunError(t *testing.T) {
	ti := int8TI()
	hooks := Hooks{
		ShrinkPost: func(info ShrinkInfo) HookResponse { return HookError },
	}
	report := Run1(RunConfig{Trials: 50, Seed: 3, Hooks: hooks}, ti, func(v int8) bool { return v <= 10 })
	orizonassert.Equal(t, report.Result, RunError)
	orizonassert.ErrorCategory(t, report.Err, protoerrors.CategoryHook)
}

// TestRunUserShrinkErrorBecomesRunError confirms a user Shrink callback's
// error propagates as a CategoryShrink RunError instead of being swallowed
// into FailedShrinks and an ordinary RunFail.
func TestRunUserShrinkErrorBecomesRunError(t *testing.T) {
	boom := errors.New("shrink exploded")
	ti := TypeInfo[int]{
		Alloc: func(src *bitstream.Source) (int, error) { return 11, nil },
		Hash:  func(v int) uint64 { return uint64(v) },
		Shrink: func(v int, tactic uint32) (int, ShrinkOutcome, error) {
			return 0, ShrinkNoMoreTactics, boom
		},
	}
	report := Run1(RunConfig{Trials: 10, Seed: 1}, ti, func(v int) bool { return v <= 10 })
	orizonassert.Equal(t, report.Result, RunError)
	orizonassert.ErrorCategory(t, report.Err, protoerrors.CategoryShrink)
}
